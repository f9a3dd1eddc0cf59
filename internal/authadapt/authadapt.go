// Package authadapt is a thin adaptation layer in front of the protocol
// surface: one Authenticator interface shaped like nova's
// internal/auth.Authenticator, with a single concrete bearer-token
// implementation. It intentionally does not grow JWT/OIDC support — no
// such library exists anywhere in the pack — and stays small rather than
// reinvent what a real identity provider would do.
package authadapt

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/horos/libsqld-gateway/internal/protoerr"
)

// Authenticator validates an inbound request and reports the caller's
// identity.
type Authenticator interface {
	Authenticate(r *http.Request) (identity string, ok bool, err error)
}

// BearerAuthenticator checks the Authorization header against a static
// table of accepted tokens, each mapped to a caller identity.
type BearerAuthenticator struct {
	tokens map[string]string // token -> identity
}

// NewBearerAuthenticator builds an authenticator from a token->identity
// table.
func NewBearerAuthenticator(tokens map[string]string) *BearerAuthenticator {
	cp := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return &BearerAuthenticator{tokens: cp}
}

func (a *BearerAuthenticator) Authenticate(r *http.Request) (string, bool, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false, nil
	}
	presented := strings.TrimPrefix(header, prefix)

	for token, identity := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(presented)) == 1 {
			return identity, true, nil
		}
	}
	return "", false, nil
}

// Middleware enforces authentication on every path not in publicPaths.
func Middleware(a Authenticator, publicPaths []string) func(http.Handler) http.Handler {
	public := make(map[string]bool, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			identity, ok, err := a.Authenticate(r)
			if err != nil {
				protoerr.WriteHTTP(w, &protoerr.InternalError{Message: "authentication failed: " + err.Error()})
				return
			}
			if !ok {
				protoerr.WriteHTTP(w, &protoerr.RequestError{Message: "missing or invalid bearer token"})
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), identityKey, identity))
			next.ServeHTTP(w, r)
		})
	}
}

type contextKey struct{}

var identityKey = contextKey{}

// Identity retrieves the authenticated caller identity from a request
// context, if any.
func Identity(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(identityKey).(string)
	return v, ok
}
