package server

import (
	"fmt"
	"net/http"

	"kinbridge/internal/auth"
)

// withAuth requires a bearer token matching api_token_hash on every route
// except /health. Without a configured hash every request passes.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tokenHash == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok || !auth.VerifyToken(s.tokenHash, token) {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("unauthorized")))
			return
		}
		next.ServeHTTP(w, r)
	})
}
