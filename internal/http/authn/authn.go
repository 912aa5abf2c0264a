// Package authn authenticates API requests with bearer tokens.
package authn

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrJamesThe3rd/pocketbook/internal/auth"
)

type Verifier interface {
	VerifyToken(token string) (*auth.Identity, error)
}

type ctxKey struct{}

// Middleware rejects requests without a valid bearer token and stores the
// identity in the request context.
func Middleware(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r)
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			id, err := v.VerifyToken(token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}

	return ""
}

// QueryToken moves the access_token query parameter into the Authorization
// header for routes serving EventSource clients, which cannot set headers.
// A header that is already present wins.
func QueryToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("access_token")
		if token != "" && r.Header.Get("Authorization") == "" {
			r = r.Clone(r.Context())
			r.Header.Set("Authorization", "Bearer "+token)
		}

		next.ServeHTTP(w, r)
	})
}

func WithIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Identity returns the authenticated identity, or nil.
func Identity(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(ctxKey{}).(*auth.Identity)
	return id
}

// UserID returns the authenticated user's id, or "" when there is none.
func UserID(ctx context.Context) string {
	if id := Identity(ctx); id != nil {
		return id.ID
	}

	return ""
}
