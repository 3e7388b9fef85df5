package httputil

import (
	"context"
	"net/http"
)

type principalKey struct{}

// Principal identifies the caller of an authenticated request.
type Principal struct {
	UserID    string
	SessionID string // empty for dev tokens
}

// WithPrincipal attaches the verified caller to the request context.
func WithPrincipal(r *http.Request, p Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), principalKey{}, p))
}

// GetPrincipal returns the caller set by AuthMiddleware, if any.
func GetPrincipal(r *http.Request) (Principal, bool) {
	p, ok := r.Context().Value(principalKey{}).(Principal)
	return p, ok
}

// GetUserID returns the caller's user id, or "" outside AuthMiddleware.
// Document ownership is keyed on this value.
func GetUserID(r *http.Request) string {
	p, _ := GetPrincipal(r)
	return p.UserID
}
