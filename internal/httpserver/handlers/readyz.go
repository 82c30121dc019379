package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/nginxlb/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready     bool   `json:"ready"`
	Cycles    int    `json:"cycles"`
	LastCycle string `json:"last_cycle,omitempty"`
}

// Readyz reports ready once the first certificate cycle has completed.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		resp := readyzResponse{}
		if d.Status != nil {
			last, cycles := d.Status.LastCycle()
			resp.Cycles = cycles
			resp.Ready = cycles > 0
			if !last.IsZero() {
				resp.LastCycle = last.UTC().Format(time.RFC3339)
			}
		}

		if !resp.Ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
