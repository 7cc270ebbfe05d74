package identity

import (
	"net/http"
	"strings"
)

// Provider - resolves the acting user from an inbound request
type Provider interface {
	UserID(r *http.Request) (string, bool)
}

// HeaderProvider - reads the user token from the Authorization header.
// Token verification belongs to the upstream gateway; the token payload
// here is treated as an opaque user id.
type HeaderProvider struct {
	Header string
}

// NewHeaderProvider - provider over the Authorization header
func NewHeaderProvider() *HeaderProvider {
	return &HeaderProvider{Header: "Authorization"}
}

// UserID - extract bearer token as user id
func (p *HeaderProvider) UserID(r *http.Request) (string, bool) {
	value := r.Header.Get(p.Header)
	if value == "" {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(value, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

// StaticProvider - fixed identity for development and tests
type StaticProvider struct {
	ID string
}

func (p *StaticProvider) UserID(r *http.Request) (string, bool) {
	if p.ID == "" {
		return "", false
	}
	return p.ID, true
}
