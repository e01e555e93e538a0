package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/ayushsoni02/Canvas-Flow/pkg/state"
)

type contextKey string

const reqMetaKey = contextKey("r-metadata")

// RequestMetadata accumulates per-request facts as the chain runs: the
// metadata middleware fills in the IP, the auth middleware the identity.
type RequestMetadata struct {
	IP       string
	Identity state.Identity
}

func ReqMetadataFrom(ctx context.Context) (*RequestMetadata, bool) {
	reqMeta, ok := ctx.Value(reqMetaKey).(*RequestMetadata)
	return reqMeta, ok
}

// RequestMetadataMiddleware creates and injects the RequestMetadata struct
// into the request. It must be the first middleware in the chain.
func RequestMetadataMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqMeta := &RequestMetadata{}

			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			reqMeta.IP = ip
			ctx := context.WithValue(r.Context(), reqMetaKey, reqMeta)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
