package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/nginxlb/internal/logger"
	"github.com/MrSnakeDoc/nginxlb/internal/utils"
)

// AllowOnlyCIDRS restricts a route to the given IPs/CIDRs. An empty list does
// not filter. trustProxy makes the client address come from forwarding
// headers, for status endpoints published behind nginx itself.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m, invalid := utils.NewIPMatcher(allowed)
	if len(invalid) > 0 {
		log.Warn("ignoring invalid allow-list entries", logger.Strings("entries", invalid))
	}
	if m.IsEmpty() {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := utils.ClientAddr(r, trustProxy)
			if !m.Allow(addr) {
				log.Debug("status request rejected",
					logger.String("client", addr.String()),
					logger.String("path", r.URL.Path))
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
