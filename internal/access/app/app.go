package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/hiredeck/hiredeck/internal/access/audit"
	httpapi "github.com/hiredeck/hiredeck/internal/access/http"
	"github.com/hiredeck/hiredeck/internal/access/obs"
	"github.com/hiredeck/hiredeck/internal/access/service"
	"github.com/hiredeck/hiredeck/internal/access/store"
	"github.com/hiredeck/hiredeck/internal/access/store/drivers/sqlite"
	"github.com/hiredeck/hiredeck/pkg/cryptox"
	"github.com/hiredeck/hiredeck/pkg/jwtx"
	"github.com/hiredeck/hiredeck/pkg/ratelimit"
	"github.com/hiredeck/hiredeck/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the access service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	limiter    *ratelimit.Limiter
	rdb        *redis.Client          // nil unless a shared rate-limit store is configured
	memSweeper *ratelimit.MemoryStore // nil when the redis store is in use

	credentialService   *service.CredentialService
	sessionService      *service.SessionService
	inviteService       *service.InviteService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "access-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.SessionSecret == "" {
		return nil, errors.New("ACCESS_SESSION_SECRET is required")
	}

	cryptox.SetPepperPath(cfg.PepperFile)
	obs.Init()

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	app.initRateLimiter()
	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("access service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down access service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("access service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initRateLimiter picks the counter store: Redis when configured, so every
// instance shares one window per key, otherwise process-local memory.
func (app *Application) initRateLimiter() {
	var opts []ratelimit.Option
	if app.cfg.RateLimitFailOpen {
		opts = append(opts, ratelimit.FailOpen())
	}

	if app.cfg.RedisAddr != "" {
		app.rdb = redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr})
		app.limiter = ratelimit.New(ratelimit.NewRedisStore(app.rdb, "access:rl"), opts...)
		app.logger.Info("rate limiter using shared redis store", "addr", app.cfg.RedisAddr)
		return
	}

	memStore := ratelimit.NewMemoryStore()
	app.limiter = ratelimit.New(memStore, opts...)
	app.memSweeper = memStore
}

func (app *Application) initServices() error {
	signer, err := jwtx.NewHS256Signer([]byte(app.cfg.SessionSecret))
	if err != nil {
		return fmt.Errorf("session signer: %w", err)
	}
	verifier, err := jwtx.NewHS256Verifier([]byte(app.cfg.SessionSecret), app.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("session verifier: %w", err)
	}

	app.credentialService = &service.CredentialService{Store: app.db}
	app.sessionService = &service.SessionService{
		Store:         app.db,
		Signer:        signer,
		Verifier:      verifier,
		Issuer:        app.cfg.Issuer,
		SessionTTL:    app.cfg.SessionTTL,
		RememberMeTTL: app.cfg.RememberMeTTL,
	}
	app.inviteService = &service.InviteService{
		Store:    app.db,
		Sessions: app.sessionService,
	}

	var sweepers []service.Sweeper
	if app.memSweeper != nil {
		sweepers = append(sweepers, app.memSweeper)
	}
	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		sweepers...,
	)

	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.db,
		app.limiter,
		audit.New(app.logger),
		app.logger,
		httpapi.RouterOptions{
			Version:       BuildVersion,
			TrustProxy:    app.cfg.TrustProxy,
			SecureCookies: app.cfg.SecureCookies(),
			Limits:        app.cfg.RateLimits(),
		},
	)
	router.Credentials = app.credentialService
	router.Sessions = app.sessionService
	router.Invites = app.inviteService
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: router,
	}
}
