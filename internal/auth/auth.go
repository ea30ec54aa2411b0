// Package auth turns an Authorization header into the calling user and hands
// that user to the wrapped handler as an explicit argument.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkordes/recipe-api/internal/domain"
)

// Accepted authorization schemes. "Token" is kept for clients written against
// the classic token-auth header format.
var schemes = []string{"Bearer ", "Token "}

// TokenResolver maps an API key to its active user.
// *service.UserService satisfies this interface.
type TokenResolver interface {
	ResolveToken(ctx context.Context, key string) (domain.User, error)
}

// HandlerFunc is an HTTP handler that requires an authenticated caller.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, user domain.User)

// ErrorWriter renders an error response. The handler package supplies one so
// auth failures use the same JSON envelope as every other error.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Authenticator guards handlers with token authentication.
type Authenticator struct {
	resolver TokenResolver
	writeErr ErrorWriter
}

// NewAuthenticator returns an Authenticator backed by resolver.
func NewAuthenticator(resolver TokenResolver, writeErr ErrorWriter) *Authenticator {
	return &Authenticator{resolver: resolver, writeErr: writeErr}
}

// Wrap adapts h to http.HandlerFunc. Requests without a valid token never reach h.
func (a *Authenticator) Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := a.Authenticate(r)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthenticated) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			}
			a.writeErr(w, r, err)
			return
		}
		h(w, r, user)
	}
}

// Authenticate resolves the caller of r.
// Returns an error wrapping domain.ErrUnauthenticated when no valid token is present.
func (a *Authenticator) Authenticate(r *http.Request) (domain.User, error) {
	key, err := ExtractToken(r.Header.Get("Authorization"))
	if err != nil {
		return domain.User{}, err
	}
	return a.resolver.ResolveToken(r.Context(), key)
}

// ExtractToken returns the key from a "Bearer <key>" or "Token <key>" header.
// Scheme matching is case-insensitive.
func ExtractToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", domain.ErrUnauthenticated)
	}
	for _, scheme := range schemes {
		if len(header) >= len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
			key := strings.TrimSpace(header[len(scheme):])
			if key == "" || strings.ContainsAny(key, " \t") {
				return "", fmt.Errorf("%w: malformed token", domain.ErrUnauthenticated)
			}
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported authorization scheme", domain.ErrUnauthenticated)
}
