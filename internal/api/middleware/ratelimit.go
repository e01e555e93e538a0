package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimit defines a fixed-window limit for an endpoint pattern.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// RateLimiter throttles the credential endpoints per client IP. Everything
// else passes through: authenticated traffic is already bounded by the
// connection limiter on the WS side.
type RateLimiter struct {
	client *redis.Client
	logger *slog.Logger
	limits map[string]RateLimit
}

func NewRateLimiter(client *redis.Client, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		logger: logger,
		limits: map[string]RateLimit{
			"POST /signup": {10, time.Hour},
			"POST /signin": {30, 15 * time.Minute},
		},
	}
}

// RealIP extracts the client IP from proxy headers or the connection.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Middleware returns the rate limiting middleware. With no redis client
// configured it is a passthrough.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		limit, ok := rl.limits[r.Method+" "+r.URL.Path]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ip := RealIP(r)
		bucket := time.Now().Unix() / int64(limit.Window.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%s:%d", r.URL.Path, ip, bucket)

		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			// redis being down must not take the login path with it
			rl.logger.Warn("Rate limiter unavailable, allowing request", slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(r.Context(), key, limit.Window)
		}

		remaining := limit.Requests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > int64(limit.Requests) {
			rl.logger.Warn("Rate limit exceeded",
				slog.String("ip", ip),
				slog.String("endpoint", r.URL.Path),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
