package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/JonMunkholm/catalog/internal/config"
)

var (
	corsMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodDelete, http.MethodPatch, http.MethodOptions,
	}, ", ")
	corsHeaders = strings.Join([]string{"Content-Type", "Authorization", "X-Requested-With", "X-API-Key"}, ", ")
	corsExposed = strings.Join([]string{"X-Request-Id", "X-Cache", "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "Retry-After"}, ", ")
)

// CORS adds Cross-Origin Resource Sharing headers for the configured
// origins and answers preflight requests itself.
//
// Requests without an Origin header, or from an origin not in
// cfg.CORSOrigins, pass through without CORS headers. With credentials
// enabled the request origin is echoed even when "*" is configured, since
// browsers reject a wildcard on credentialed responses.
func CORS(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	wildcard := slices.Contains(cfg.CORSOrigins, "*")
	maxAge := strconv.Itoa(int(cfg.CORSMaxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		if len(cfg.CORSOrigins) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			if !wildcard && !slices.Contains(cfg.CORSOrigins, origin) {
				next.ServeHTTP(w, r)
				return
			}

			if wildcard && !cfg.CORSCredentials {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if cfg.CORSCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				if cfg.CORSMaxAge > 0 {
					h.Set("Access-Control-Max-Age", maxAge)
				}
				w.WriteHeader(http.StatusOK)
				return
			}

			h.Set("Access-Control-Expose-Headers", corsExposed)
			next.ServeHTTP(w, r)
		})
	}
}
