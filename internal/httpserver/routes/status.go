package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/nginxlb/internal/httpserver/deps"
	"github.com/MrSnakeDoc/nginxlb/internal/httpserver/handlers"
)

func init() { Register(registerStatus, AllowList) }

func registerStatus(r chi.Router, d deps.Deps) {
	r.Get("/status", handlers.Status(d))
	r.Get("/status/{host}", handlers.StatusForHost(d))
}
