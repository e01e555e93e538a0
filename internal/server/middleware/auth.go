package middleware

import (
	"log/slog"
	"net/http"

	"github.com/ayushsoni02/Canvas-Flow/internal/auth"
)

// NewAuthMiddleware verifies the credential before the connection is upgraded.
// Browser WebSocket clients cannot set an Authorization header on the upgrade
// request, so the token travels in the "token" query parameter instead.
func NewAuthMiddleware(logger *slog.Logger, verifier *auth.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				// metadata middleware did not run; chain is miswired
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			tokenString := r.URL.Query().Get("token")
			if tokenString == "" {
				logger.Warn("Connection attempt without token", slog.String("ip", reqMeta.IP))
				http.Error(w, "Missing token", http.StatusUnauthorized)
				return
			}

			ident, err := verifier.Verify(tokenString)
			if err != nil {
				logger.Warn("Invalid token presented", slog.String("ip", reqMeta.IP), slog.Any("error", err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			reqMeta.Identity = ident
			next.ServeHTTP(w, r)
		})
	}
}
