// Package api is the HTTP surface beside the WebSocket endpoint: account and
// room management, and the replay endpoints a client loads before joining a
// room live.
package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ayushsoni02/Canvas-Flow/internal/api/middleware"
	"github.com/ayushsoni02/Canvas-Flow/internal/auth"
	"github.com/ayushsoni02/Canvas-Flow/internal/store"
)

// NewRouter creates and configures the HTTP router. rdb may be nil, which
// disables rate limiting.
func NewRouter(logger *slog.Logger, st store.Store, verifier *auth.Verifier, tokenTTL time.Duration, rdb *redis.Client) *chi.Mux {
	r := chi.NewRouter()

	// metrics first so every request is captured
	r.Use(middleware.Metrics)

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	limiter := middleware.NewRateLimiter(rdb, logger)
	r.Use(limiter.Middleware)

	// CORS open: the canvas frontend is served from a different origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := NewHandler(logger, st, verifier, tokenTTL)
	authmw := middleware.NewAuthMiddleware(verifier)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", h.Health)

	// public routes
	r.Post("/signup", h.Signup)
	r.Post("/signin", h.Signin)
	r.Get("/room/{slug}", h.GetRoom)
	r.Get("/shapes/{slug}", h.ListShapes)
	r.Get("/chats/{slug}", h.ListChats)

	// authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth)

		r.Post("/room", h.CreateRoom)
		r.Get("/rooms", h.ListRooms)
	})

	return r
}
