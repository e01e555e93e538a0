package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ayushsoni02/Canvas-Flow/internal/auth"
	"github.com/ayushsoni02/Canvas-Flow/pkg/state"
)

type contextKey string

const identityKey = contextKey("identity")

// IdentityFrom returns the authenticated identity stored by RequireAuth.
func IdentityFrom(ctx context.Context) (state.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(state.Identity)
	return ident, ok
}

// AuthMiddleware guards HTTP routes with the same credential the WS upgrade
// uses, carried as a Bearer token here since HTTP clients can set headers.
type AuthMiddleware struct {
	verifier *auth.Verifier
}

func NewAuthMiddleware(verifier *auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == "" || tokenString == header {
			unauthorized(w)
			return
		}

		ident, err := a.verifier.Verify(tokenString)
		if err != nil {
			unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized"}`))
}
