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
	"time"

	"github.com/aussiebroadwan/cradle/internal/auth/biometric"
	httpapi "github.com/aussiebroadwan/cradle/internal/auth/http"
	"github.com/aussiebroadwan/cradle/internal/auth/keychain"
	"github.com/aussiebroadwan/cradle/internal/auth/service"
	"github.com/aussiebroadwan/cradle/internal/auth/store"
	"github.com/aussiebroadwan/cradle/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/cradle/pkg/cryptox"
	"github.com/aussiebroadwan/cradle/pkg/jwtx"
	"github.com/aussiebroadwan/cradle/pkg/slogx"
	"github.com/getsentry/sentry-go"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the session engine to storage and the HTTP facade.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	tokens   *service.TokenService
	gate     *biometric.Gate
	sessions *service.SessionManager

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with every dependency initialised and the
// stored session, if any, restored.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "cradle-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initSentry(); err != nil {
		return nil, err
	}

	secrets, err := LoadSecrets(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(secrets); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

func (app *Application) initSentry() error {
	if app.cfg.SentryDSN == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              app.cfg.SentryDSN,
		Environment:      app.cfg.Env,
		Release:          BuildVersion,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	app.logger.Info("sentry enabled")
	return nil
}

// initDatabase opens the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

func (app *Application) initServices(secrets Secrets) error {
	signer, err := jwtx.NewSignerHS256(secrets.TokenSecret)
	if err != nil {
		return fmt.Errorf("failed to create token signer: %w", err)
	}
	app.tokens = service.NewTokenService(signer)
	app.tokens.AccessTTL = app.cfg.AccessTTL
	app.tokens.RefreshTTL = app.cfg.RefreshTTL

	sealer, err := cryptox.NewSealer(secrets.KeychainKey)
	if err != nil {
		return fmt.Errorf("failed to create keychain sealer: %w", err)
	}
	vault := keychain.New(app.db, sealer)

	var device biometric.Authenticator = biometric.Unavailable{}
	if secrets.PasscodeSecret != "" {
		device = biometric.NewPasscodeAuthenticator(secrets.PasscodeSecret)
	}
	app.gate = biometric.NewGate(device, vault)

	app.sessions = service.NewSessionManager(service.SessionConfig{
		Directory: &service.StoreDirectory{Store: app.db},
		Tokens:    app.tokens,
		Vault:     vault,
		Gate:      app.gate,
		Hasher:    cryptox.NewPasswordHasher(secrets.Pepper),
	})

	ctx := slogx.WithContext(context.Background(), app.logger)
	state, err := app.sessions.RestoreSession(ctx)
	if err != nil {
		// Restore always lands somewhere usable; a failure only means the
		// stored session was dropped.
		app.logger.Warn("stored session discarded", slogx.Err(err))
	}
	app.logger.Info("session restored", "state", state.String())
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.tokens, BuildVersion, app.db, app.logger)
	router.Sessions = app.sessions
	router.Gate = app.gate
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              app.cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Run starts the server and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("auth service starting", "addr", app.cfg.Addr(), "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig.String())
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones, and closes
// the database. The session stays in storage for the next start.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")
	defer sentry.Flush(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", slogx.Err(err))
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", slogx.Err(err))
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", slogx.Err(err))
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}
