package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ayushsoni02/Canvas-Flow/internal/api"
	"github.com/ayushsoni02/Canvas-Flow/internal/auth"
	"github.com/ayushsoni02/Canvas-Flow/internal/metrics"
	"github.com/ayushsoni02/Canvas-Flow/internal/router"
	"github.com/ayushsoni02/Canvas-Flow/internal/server/middleware"
	"github.com/ayushsoni02/Canvas-Flow/internal/store"
	"github.com/ayushsoni02/Canvas-Flow/pkg/config"
	"github.com/ayushsoni02/Canvas-Flow/pkg/state"
	"github.com/ayushsoni02/Canvas-Flow/pkg/state/statemanager"
	"github.com/ayushsoni02/Canvas-Flow/pkg/transport"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type App struct {
	logger      *slog.Logger
	registry    state.Manager
	eventRouter *router.EventRouter
	store       store.Store
	wg          sync.WaitGroup
	http        *http.Server
	config      *config.Config

	ctx context.Context
}

func NewApp(logger *slog.Logger, rootCtx context.Context, cfg *config.Config, st store.Store) (*App, error) {
	registry := statemanager.NewInMemoryManager(logger)
	eventRouter := router.NewEventRouter(logger, registry, st)
	verifier := auth.NewVerifier(cfg.Server.Auth.JWTSecret)

	app := &App{
		logger:      logger,
		registry:    registry,
		eventRouter: eventRouter,
		store:       st,
		config:      cfg,
		ctx:         rootCtx,
	}

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		rdb = redis.NewClient(opts)
	}

	connCounter := middleware.UserConnectionCounter(registry.UserConnectionCount)
	// Close over the registry so the limiter can evict the oldest connection
	// in cycle mode.
	connCycler := func(userID string) {
		oldest, found := registry.FindOldestUserConnection(userID)
		if found {
			logger.Info("Cycling connection: closing oldest",
				slog.String("userID", userID),
				slog.String("connID", oldest.ID.String()),
			)
			oldest.Transport.Close(errors.New("connection cycled by new connection"))
		}
	}

	// The WS endpoint hangs off a plain ServeMux beside the chi API: the API
	// middlewares wrap the ResponseWriter, and the upgrade needs the raw
	// hijackable writer.
	mux := http.NewServeMux()
	mux.Handle("/", api.NewRouter(logger, st, verifier, cfg.Server.Auth.TokenTTL, rdb))
	mux.Handle("/ws",
		middleware.Chain(http.HandlerFunc(app.upgradeHandler),
			middleware.RequestMetadataMiddleware(),
			middleware.NewRequestLogger(logger),
			middleware.NewAuthMiddleware(logger, verifier),
			middleware.NewConnectionLimiter(
				logger,
				connCounter,
				connCycler,
				cfg.Server.ConnectionLimit,
			),
		),
	)

	app.http = &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
		BaseContext: func(l net.Listener) context.Context {
			return app.ctx
		},
	}

	return app, nil
}

func (a *App) Run() error {
	go func() {
		a.logger.Info("Server starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed", slog.Any("error", err))
		}
	}()

	<-a.ctx.Done()
	return a.Shutdown()
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, _ := middleware.ReqMetadataFrom(r.Context())
	connLogger := a.logger.With(
		slog.String("remoteAddr", reqMeta.IP),
		slog.String("userID", reqMeta.Identity.UserID),
	)

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		a.logger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	conn := transport.NewConnection(
		r.Context(),
		&a.wg,
		wsConn,
		transport.ConnectionConfig(a.config.Transport),
		a.logger,
	)

	if _, err := a.registry.RegisterConnection(conn, reqMeta.Identity); err != nil {
		connLogger.Error("Failed to register connection state", slog.Any("error", err))
		conn.Close(err)
		return
	}
	metrics.ActiveConnections.Inc()

	conn.SetOnMessageHandler(a.eventRouter.HandleMessage)
	conn.SetOnCloseHandler(func(id uuid.UUID, err error) {
		connLogger.Info("Deregistering connection due to closure", slog.String("connID", id.String()))
		a.eventRouter.HandleDisconnect(id)
		metrics.ActiveConnections.Dec()
	})

	connLogger.Info("User connection fully established")
	conn.Run()
	<-conn.Done()
}

// Shutdown runs the graceful shutdown sequence.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	a.logger.Info("Closing all active connections...")
	for _, conn := range a.registry.AllConnections() {
		conn.Transport.Close(errors.New("graceful shutdown"))
	}

	// wait for all connection goroutines to finish their cleanup
	a.wg.Wait()
	a.logger.Info("Server shut down gracefully.")
	return nil
}
