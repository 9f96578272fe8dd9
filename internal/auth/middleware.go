// Package auth compares every request's bearer token against the one
// shared token configured for this deployment. There are no accounts,
// roles, or per-user claims: a request either carries the configured
// token or it doesn't.
package auth

import (
	"net/http"
	"strings"
)

// Middleware rejects any request whose Authorization header does not
// carry the exact configured token. An empty Token is treated as a
// server misconfiguration, not "auth disabled": every request fails
// closed with 500 rather than silently admitting everyone.
type Middleware struct {
	Token string

	// PublicPaths bypasses the check entirely, for routes like
	// /health that load balancers probe without credentials.
	PublicPaths map[string]bool
}

// NewMiddleware builds a Middleware comparing against token, treating
// the given paths as public.
func NewMiddleware(token string, publicPaths ...string) *Middleware {
	public := make(map[string]bool, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = true
	}
	return &Middleware{Token: token, PublicPaths: public}
}

// Handler returns the HTTP middleware.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.PublicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		if m.Token == "" {
			writeErr(w, http.StatusInternalServerError, "auth token not configured")
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			writeErr(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := extractBearerToken(header)
		if token == "" || token != m.Token {
			writeErr(w, http.StatusForbidden, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractBearerToken extracts the token from a "Bearer <token>" header.
func extractBearerToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func writeErr(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"detail": "` + detail + `"}`))
}
