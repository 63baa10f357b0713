package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"livepoll/internal/api"
	"livepoll/internal/config"
	"livepoll/internal/history"
	"livepoll/internal/poll"
	"livepoll/internal/websocket"
	"livepoll/pkg/interfaces"
)

// Application coordinates all system components. Initialization follows
// dependency order: History -> Gateway -> Coordinator -> WebSocket handler ->
// API -> HTTP.
type Application struct {
	config       *config.Config
	logger       *zap.Logger
	historyStore interfaces.HistoryStore
	gateway      *websocket.Gateway
	coordinator  *poll.Coordinator
	apiServer    *api.Server
	httpServer   *http.Server
}

// NewApplication creates an application instance with all components wired.
func NewApplication(cfg *config.Config, logger *zap.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	historyStore, err := newHistoryStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}

	gateway := websocket.NewGateway(logger.Named("gateway"))

	coordinator := poll.New(poll.Options{
		Gateway:         gateway,
		History:         historyStore,
		Logger:          logger.Named("coordinator"),
		DefaultDuration: cfg.Poll.DefaultDurationSeconds,
		KickGrace:       cfg.Poll.KickGrace,
	})

	wsHandler := websocket.NewHandler(
		gateway,
		coordinator,
		cfg.WebSocket.PingInterval,
		cfg.WebSocket.ReadTimeout,
		logger.Named("websocket"),
	)

	apiServer := api.NewServer(coordinator, gateway, logger.Named("api"))

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "Hello World")
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:       cfg,
		logger:       logger,
		historyStore: historyStore,
		gateway:      gateway,
		coordinator:  coordinator,
		apiServer:    apiServer,
		httpServer:   httpServer,
	}, nil
}

// newHistoryStore selects the history backend: in-memory by default, SQLite
// when a database path is configured.
func newHistoryStore(cfg *config.Config, logger *zap.Logger) (interfaces.HistoryStore, error) {
	if cfg.History.DatabasePath == "" {
		return history.NewMemoryStore(), nil
	}
	return history.NewSQLiteStore(cfg.History.DatabasePath, logger.Named("history"))
}

// Start begins serving. The coordinator starts first so events can be
// processed the moment the HTTP server accepts connections.
func (app *Application) Start(ctx context.Context) error {
	app.logger.Info("starting livepoll", zap.String("addr", app.httpServer.Addr))

	if err := app.coordinator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start coordinator: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		_ = app.coordinator.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		app.logger.Info("livepoll started")
		return nil
	case <-ctx.Done():
		_ = app.coordinator.Stop()
		return ctx.Err()
	}
}

// Stop shuts down in reverse dependency order: HTTP -> coordinator ->
// history store.
func (app *Application) Stop(ctx context.Context) error {
	app.logger.Info("shutting down livepoll")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		app.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	if err := app.coordinator.Stop(); err != nil && err != poll.ErrNotRunning {
		app.logger.Warn("coordinator shutdown error", zap.Error(err))
	}

	if err := app.historyStore.Close(); err != nil {
		app.logger.Warn("history store shutdown error", zap.Error(err))
	}

	app.logger.Info("livepoll shutdown complete")
	return nil
}

// Addr returns the server address for external connections.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
