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

	httpapi "github.com/studyroom/studyroom/internal/auth/http"
	"github.com/studyroom/studyroom/internal/auth/service"
	"github.com/studyroom/studyroom/internal/auth/store"
	"github.com/studyroom/studyroom/internal/auth/store/drivers/sqlite"
	"github.com/studyroom/studyroom/pkg/cryptox"
	"github.com/studyroom/studyroom/pkg/jwtx"
	"github.com/studyroom/studyroom/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires the auth service together: store, signing key,
// services, HTTP server and the background reaper.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	signer *jwtx.Signer

	codeService    *service.CodeService
	mfaService     *service.MFAService
	sessionService *service.SessionService
	lockoutGuard   *service.LockoutGuard
	authService    *service.AuthService
	accountService *service.AccountService
	housekeeping   *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initSigner(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeeping.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully stops the HTTP server, the reaper and the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeping.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
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

// initSigner loads the Ed25519 signing key from disk when configured,
// otherwise generates an ephemeral one. Ephemeral keys invalidate all
// session proofs on restart, which is acceptable for dev.
func (app *Application) initSigner() error {
	var pem []byte
	switch {
	case app.cfg.SigningKeyFile != "":
		b, err := os.ReadFile(app.cfg.SigningKeyFile)
		if err != nil {
			return fmt.Errorf("failed to read signing key: %w", err)
		}
		pem = b
	default:
		b, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return fmt.Errorf("failed to generate signing key: %w", err)
		}
		pem = b
		app.logger.Warn("using ephemeral signing key; session proofs will not survive a restart")
	}

	signer, err := jwtx.NewSignerEdDSA("primary", pem)
	if err != nil {
		return fmt.Errorf("failed to initialize signer: %w", err)
	}
	app.signer = signer
	return nil
}

func (app *Application) initServices() error {
	app.codeService = service.NewCodeService(app.db, service.CodeServiceConfig{
		TTL:      app.cfg.CodeTTL,
		Cooldown: app.cfg.CodeCooldown,
	})
	app.mfaService = service.NewMFAService(app.db, service.MFAServiceConfig{
		Issuer: app.cfg.Issuer,
	})
	app.sessionService = service.NewSessionService(app.db, app.signer, app.mfaService, service.SessionServiceConfig{
		Issuer:       app.cfg.Issuer,
		SessionTTL:   app.cfg.SessionTTL,
		ElevationTTL: app.cfg.ElevationTTL,
	})
	app.lockoutGuard = service.NewLockoutGuard(app.db, service.LockoutGuardConfig{
		Threshold: app.cfg.LockoutThreshold,
	})
	app.accountService = service.NewAccountService(app.db)

	authService, err := service.NewAuthService(
		app.db,
		app.codeService,
		app.mfaService,
		app.sessionService,
		app.lockoutGuard,
		service.NewLogMailer(app.logger),
		cryptox.NewHashPool(app.cfg.HashPoolSize),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize auth service: %w", err)
	}
	app.authService = authService

	app.housekeeping = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		0,
	)
	return nil
}

func (app *Application) initHTTP() {
	verifier := jwtx.NewVerifierEdDSA(app.cfg.Issuer, app.signer)

	router := httpapi.NewRouter(verifier, BuildVersion, app.db, app.logger)
	router.AuthService = app.authService
	router.MFAService = app.mfaService
	router.SessionService = app.sessionService
	router.AccountService = app.accountService
	router.CodeService = app.codeService
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: router,
	}
}
