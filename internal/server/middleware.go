package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireTriggerToken protects the run endpoint with a shared bearer token.
// With no token configured the endpoint is disabled outright rather than
// left open.
func (s *Server) requireTriggerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.config.TriggerToken
		if token == "" {
			s.log.Warn("trigger endpoint accessed but no trigger token is configured")
			http.Error(w, "Trigger endpoint is disabled. Configure server.trigger_token to enable.", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		presented := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			s.log.Warn("invalid trigger token attempt", "remote_addr", r.RemoteAddr)
			http.Error(w, "Invalid trigger token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
