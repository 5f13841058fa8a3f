package entrypoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/gallery/internal/auth"
	"github.com/mrlokans/gallery/internal/config"
	"github.com/mrlokans/gallery/internal/database"
	http_controllers "github.com/mrlokans/gallery/internal/http"
	"github.com/mrlokans/gallery/internal/logger"
	"github.com/mrlokans/gallery/internal/scheduler"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// SetupLogger installs the default logger from configuration.
func SetupLogger(cfg config.Log) {
	logger.SetDefault(logger.New(logger.Config{
		Level:      cfg.Level,
		Format:     cfg.Format,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
	}))
	if cfg.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// within the configured timeout.
func Serve(ctx context.Context, router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server at %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("Shutdown Server, waiting %v before killing", timeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting work before draining background jobs
	if onShutdown != nil {
		onShutdown(shutdownCtx)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("Server exiting")
	return nil
}

// Run wires the application and serves HTTP until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) error {
	logger.Info("Starting gallery v%s", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.WithError(err).Error("Error closing application")
		}
	}()

	var authMiddleware *auth.Middleware
	switch cfg.Auth.Mode {
	case config.AuthModeToken:
		logger.Info("Authentication mode: token")
		authMiddleware = auth.NewMiddleware(app.Users, cfg.Auth, auth.NewFailureGuard(auth.DefaultFailureGuardConfig()))
	case config.AuthModeNone, "":
		logger.Info("Authentication mode: none (every request acts as the default user)")
		if _, err := app.Users.EnsureDefaultUser(); err != nil {
			return fmt.Errorf("failed to ensure default user: %w", err)
		}
	default:
		return fmt.Errorf("unsupported auth mode: %s", cfg.Auth.Mode)
	}

	sessionDB, err := sessionStoreDB(app)
	if err != nil {
		return err
	}
	sessionManager, err := auth.NewSessionManager(sessionDB, cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	var sched *scheduler.Scheduler
	routerCfg := http_controllers.RouterConfig{
		Imports:        app.Service,
		Database:       app.DB,
		AuthMiddleware: authMiddleware,
		SessionManager: sessionManager,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Version:        version,
	}
	if cfg.Storage.Backend == "" || cfg.Storage.Backend == "local" {
		routerCfg.MediaDir = cfg.Storage.LocalDir
		routerCfg.MediaURL = cfg.Storage.PublicURL
	}

	if app.Tasks != nil {
		routerCfg.Tasks = app.Tasks
		go app.Tasks.Start(workerCtx)

		sched = scheduler.New(cfg.Scheduler, app.Tasks, app.Imports)
		if err := sched.Start(workerCtx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if sched != nil {
			sched.Stop()
		}
		if app.Tasks != nil {
			app.Tasks.Stop(ctx)
		}
		cancelWorkers()
	}

	return Serve(ctx, router, cfg, onShutdown)
}

// sessionStoreDB returns the SQLite handle sessions are stored in. The main
// database is used when it is SQLite, otherwise the task queue database.
// Nil falls back to in-memory sessions.
func sessionStoreDB(app *App) (*sql.DB, error) {
	if database.DriverName(app.Config.Database) == "sqlite" {
		sqlDB, err := app.DB.DB.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get SQL DB for sessions: %w", err)
		}
		return sqlDB, nil
	}
	if app.Tasks != nil {
		return app.Tasks.DB(), nil
	}
	logger.Warn("Sessions are kept in memory; pending connections are lost on restart")
	return nil, nil
}
