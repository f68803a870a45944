package api

import (
	"errors"
	"net/http"
	"strings"

	"carpsolver/internal/auth"
)

var errNoToken = errors.New("bearer token required")

// principal resolves the caller from the Authorization header. In dev mode a
// request without a token acts as admin.
func (s *Server) principal(r *http.Request) (auth.Principal, error) {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return s.Auth.Verify(strings.TrimSpace(authz[len("Bearer "):]))
	}
	if s.Auth.Dev() {
		return auth.Principal{Subject: "dev", Role: "admin"}, nil
	}
	return auth.Principal{}, errNoToken
}

// authorize writes 401/403 and returns false unless the caller holds one of
// roles. Admin passes every check.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, roles ...string) (auth.Principal, bool) {
	p, err := s.principal(r)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", err.Error(), r.URL.Path)
		return p, false
	}
	if p.IsAdmin() || len(roles) == 0 {
		return p, true
	}
	for _, role := range roles {
		if p.Role == role {
			return p, true
		}
	}
	writeProblem(w, http.StatusForbidden, "Forbidden", strings.Join(roles, " or ")+" required", r.URL.Path)
	return p, false
}
