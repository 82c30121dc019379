package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/nginxlb/internal/httpserver/deps"
	"github.com/MrSnakeDoc/nginxlb/internal/httpserver/handlers"
)

func init() { Register(registerReadyz, AllowList) }

func registerReadyz(r chi.Router, d deps.Deps) {
	r.Get("/readyz", handlers.Readyz(d))
}
