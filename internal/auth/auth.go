package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

var ErrUnauthorized = errors.New("unauthorized")

// Authorize reports whether supplied matches the configured secret. An
// empty secret never authorizes anything.
func Authorize(supplied, secret string) bool {
	if supplied == "" || secret == "" {
		return false
	}
	// Use constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(secret)) == 1
}

// Gate guards admin endpoints with a single shared secret
type Gate struct {
	secret     string
	allowQuery bool
}

// NewGate creates a gate. allowQuery enables the legacy ?admin=<token>
// parameter in addition to headers.
func NewGate(secret string, allowQuery bool) *Gate {
	return &Gate{secret: secret, allowQuery: allowQuery}
}

// Token pulls the admin token out of a request. Headers are checked first:
// Authorization: Bearer, then X-Admin-Token, then the query parameter if
// enabled.
func (g *Gate) Token(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if h := r.Header.Get("X-Admin-Token"); h != "" {
		return h
	}
	if g.allowQuery {
		return r.URL.Query().Get("admin")
	}
	return ""
}

// Allowed reports whether the request carries the admin secret
func (g *Gate) Allowed(r *http.Request) bool {
	return Authorize(g.Token(r), g.secret)
}

// AllowedBasic checks the password of HTTP Basic credentials, for clients
// such as WebDAV mounts that cannot send custom headers
func (g *Gate) AllowedBasic(r *http.Request) bool {
	_, password, ok := r.BasicAuth()
	return ok && Authorize(password, g.secret)
}

// Middleware rejects requests without the admin secret. The denial is the
// same whether or not a secret is configured.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Allowed(r) {
			Deny(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Deny writes the uniform JSON denial
func Deny(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   ErrUnauthorized.Error(),
	})
}
