package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/nginxlb/internal/domain"
	"github.com/MrSnakeDoc/nginxlb/internal/httpserver/deps"
)

type statusResponse struct {
	Mode      string           `json:"mode"`
	Routes    int              `json:"routes"`
	Evaluated int              `json:"evaluated"`
	Failed    int              `json:"failed"`
	Cycles    int              `json:"cycles"`
	LastCycle string           `json:"last_cycle"`
	Outcomes  []domain.Outcome `json:"outcomes"`
}

// Status lists the last outcome of every route in configuration order.
func Status(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		resp := statusResponse{
			Routes:    d.Routes,
			LastCycle: "never",
			Outcomes:  []domain.Outcome{},
		}
		if d.Status != nil {
			resp.Outcomes = d.Status.All()
			resp.Evaluated = len(resp.Outcomes)
			last, cycles := d.Status.LastCycle()
			resp.Cycles = cycles
			if !last.IsZero() {
				resp.LastCycle = last.UTC().Format(time.RFC3339)
			}
		}
		for _, o := range resp.Outcomes {
			if o.Failed() {
				resp.Failed++
			}
		}
		resp.Mode = determineMode(resp)

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// StatusForHost returns the last outcome for a single route.
func StatusForHost(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		host := chi.URLParam(r, "host")
		if d.Status == nil {
			writeError(w, http.StatusNotFound, "unknown host")
			return
		}
		o, ok := d.Status.Get(host)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown host")
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(o)
	}
}

func determineMode(s statusResponse) string {
	if s.Cycles == 0 {
		return "starting"
	}
	if s.Failed > 0 {
		return "degraded" // at least one certificate action failed last cycle
	}
	return "ok"
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
