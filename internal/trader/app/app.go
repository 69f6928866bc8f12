package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/auth"
	httpapi "github.com/aussiebroadwan/tradelink/internal/trader/http"
	"github.com/aussiebroadwan/tradelink/internal/trader/journal"
	"github.com/aussiebroadwan/tradelink/internal/trader/session"
	"github.com/aussiebroadwan/tradelink/pkg/httpx"
	"github.com/aussiebroadwan/tradelink/pkg/slogx"
	"github.com/sourcegraph/conc"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	keySetRefreshInterval = time.Minute
)

// Application wires the token authority, session, journal and status API.
type Application struct {
	cfg    Config
	logger *slog.Logger

	authority *auth.Authority
	journal   *journal.Store
	session   *session.Client

	router *httpapi.Router
	server *http.Server // nil when the status API is disabled
}

// New creates a new Application. Nothing touches the network until Run.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tradelink",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initJournal(); err != nil {
		return nil, err
	}

	app.authority = auth.New(cfg.authConfig(), auth.WithLogger(app.logger))

	app.session = session.New(cfg.sessionConfig(), app.authority, session.Options{
		Logger:  app.logger,
		Journal: app.journal,
	})

	app.initHTTP()
	return app, nil
}

// Session exposes the trading session for order entry.
func (app *Application) Session() *session.Client { return app.session }

// Handler is the status API handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run blocks until SIGINT/SIGTERM, a fatal session error or a server
// failure, then shuts down.
func (app *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.RunContext(ctx)
}

// RunContext is Run with the caller owning cancellation.
func (app *Application) RunContext(ctx context.Context) error {
	app.logger.Info("tradelink starting", "version", BuildVersion, "venue", app.cfg.Venue.WSURL)

	app.authority.FetchKeySet(ctx)
	if err := app.session.Connect(ctx); err != nil {
		_ = app.session.Close()
		return fmt.Errorf("connect session: %w", err)
	}
	app.logger.Info("session connected")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg conc.WaitGroup
	serverErrors := make(chan error, 1)

	wg.Go(func() { app.refreshKeySet(runCtx) })

	if app.server != nil {
		ln, err := net.Listen("tcp", app.server.Addr)
		if err != nil {
			cancel()
			wg.Wait()
			_ = app.session.Close()
			return fmt.Errorf("status api listen: %w", err)
		}
		app.logger.Info("status api listening", "addr", ln.Addr().String())
		wg.Go(func() {
			if err := app.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrors <- err
			}
		})
	}

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutdown requested")
	case err := <-app.session.Fatal():
		app.logger.Error("session ended", "err", err)
		runErr = fmt.Errorf("session failed: %w", err)
	case err := <-serverErrors:
		runErr = fmt.Errorf("server failed: %w", err)
	}

	cancel()
	if err := app.Shutdown(); err != nil && runErr == nil {
		runErr = fmt.Errorf("graceful shutdown failed: %w", err)
	}
	wg.Wait()
	return runErr
}

// Shutdown stops the status API, then closes the session and journal.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down tradelink...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if app.server != nil {
		if err := app.server.Shutdown(ctx); err != nil {
			app.logger.Error("graceful server shutdown failed", "error", err)
			if err := app.server.Close(); err != nil {
				app.logger.Error("error closing server", "error", err)
			}
		}
	}

	if err := app.session.Close(); err != nil {
		app.logger.Error("error closing session", "error", err)
		return err
	}

	app.logger.Info("tradelink stopped")
	return nil
}

// refreshKeySet keeps the verification keys warm; FetchKeySet only hits
// the network once the cached set is stale or empty.
func (app *Application) refreshKeySet(ctx context.Context) {
	t := time.NewTicker(keySetRefreshInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			app.authority.FetchKeySet(ctx)
		}
	}
}

func (app *Application) initJournal() error {
	if app.cfg.Journal.File == "" {
		app.logger.Info("order journal disabled")
		return nil
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.Journal.File)
	st, err := journal.Open(context.Background(), dsn)
	if err != nil {
		return fmt.Errorf("failed to open order journal: %w", err)
	}
	app.journal = st

	app.logger.Info("order journal ready", "file", app.cfg.Journal.File)
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.session, app.authority.KeySet(), BuildVersion, app.logger)
	if app.journal != nil {
		router.History = app.journal
	}
	if app.cfg.Status.RequireAuth {
		router.Verifier = app.authority.Verifier()
		router.Scopes = app.cfg.Status.Scopes
	}
	router.ProbeLimit = httpx.RateLimitFromEnv("PROBE", router.ProbeLimit)
	router.QueryLimit = httpx.RateLimitFromEnv("QUERY", router.QueryLimit)
	router.ApplyRoutes()
	app.router = router

	if app.cfg.Status.Addr == "" {
		app.logger.Info("status api disabled")
		return
	}
	app.server = &http.Server{
		Addr:              app.cfg.Status.Addr,
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
