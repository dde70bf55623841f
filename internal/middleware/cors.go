package middleware

import (
	"net/http"
	"strings"
)

// CORS allows the configured origin, or any origin when allowed is empty or "*".
func CORS(allowed string) func(http.Handler) http.Handler {
	allowed = strings.TrimRight(strings.TrimSpace(allowed), "/")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				switch {
				case allowed == "" || allowed == "*":
					w.Header().Set("Access-Control-Allow-Origin", "*")
				case origin == allowed:
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
