// Package cli is the optiflow command-line shell. It owns the application
// root: one session store, one token repository and one event bus per process.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/optiflow/optiflow/internal/core/domain"
	"github.com/optiflow/optiflow/internal/core/ports"
	"github.com/optiflow/optiflow/internal/core/service"
	"github.com/optiflow/optiflow/internal/infrastructure/config"
	mongodb "github.com/optiflow/optiflow/internal/infrastructure/db/mongo"
	redisdb "github.com/optiflow/optiflow/internal/infrastructure/db/redis"
	"github.com/optiflow/optiflow/internal/infrastructure/events"
	"github.com/optiflow/optiflow/internal/infrastructure/health"
	"github.com/optiflow/optiflow/internal/infrastructure/httpclient"
	"github.com/optiflow/optiflow/internal/infrastructure/tokenstore"
	"github.com/optiflow/optiflow/internal/metrics"
	"github.com/optiflow/optiflow/pkg/logger"
)

const sessionExpiredNotice = "session expired: run `optiflow auth login` to sign in again"

// Streams are the process's standard output and error.
type Streams struct {
	Out io.Writer
	Err io.Writer
}

// StdStreams returns os.Stdout and os.Stderr.
func StdStreams() Streams {
	return Streams{Out: os.Stdout, Err: os.Stderr}
}

// App is everything a command needs. Build one with New and release it with
// Close.
type App struct {
	cfg    *config.Config
	log    zerolog.Logger
	out    io.Writer
	errOut io.Writer
	prompt Prompter

	tokens  tokenstore.Store
	bus     *events.Bus
	session *service.SessionStore

	vendors  ports.VendorAPI
	orders   ports.OrderAPI
	calendar ports.CalendarAPI
	users    ports.UserAPI
	reports  *service.ReportService
	health   *health.Checker
}

// Builder creates the App for a command invocation.
type Builder func(ctx context.Context, s Streams) (*App, error)

// DefaultBuilder loads configuration from the environment and initialises
// the process logger.
func DefaultBuilder(ctx context.Context, s Streams) (*App, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: s.Err})
	return New(ctx, cfg, log, s, huhPrompter{})
}

// New wires the application root for cfg.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, s Streams, p Prompter) (*App, error) {
	tokens, err := tokenstore.Open(ctx, tokenstore.Config{
		Driver: cfg.Token.Store,
		Key:    cfg.Token.Key,
		File:   cfg.Token.File,
		Redis: redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  cfg.Token.Timeout,
		},
		Mongo: mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  cfg.Token.Timeout,
		},
		SQLiteDSN: cfg.Token.SQLiteDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}

	bus := events.New()
	gw := httpclient.NewGateway(nil, tokens, bus, log)
	client := httpclient.NewClient(cfg.APIURL, httpclient.NewHTTPClient(gw, cfg.HTTPTimeout))

	var opts []service.SessionOption
	if cfg.RevokeOnLogout {
		opts = append(opts, service.WithServerRevocation())
	}
	session, err := service.NewSessionStore(
		httpclient.NewAuthAPI(client),
		tokens,
		bus,
		domain.ParseAdminSet(cfg.AdminUsers),
		log,
		opts...,
	)
	if err != nil {
		tokens.Close()
		return nil, err
	}

	app := &App{
		cfg:      cfg,
		log:      log,
		out:      s.Out,
		errOut:   s.Err,
		prompt:   p,
		tokens:   tokens,
		bus:      bus,
		session:  session,
		vendors:  httpclient.NewVendorsAPI(client),
		orders:   httpclient.NewOrdersAPI(client),
		calendar: httpclient.NewCalendarAPI(client),
		users:    httpclient.NewUsersAPI(client),
	}
	app.reports = service.NewReportService(app.orders, app.vendors, log)

	app.health = health.NewChecker(cfg.APIURL, &http.Client{Timeout: cfg.HTTPTimeout})
	if pinger, ok := tokens.(ports.Pinger); ok {
		app.health.Register("token_store", pinger)
	}

	if err := bus.OnAuthLost(func(domain.AuthLostEvent) {
		fmt.Fprintln(app.errOut, sessionExpiredNotice)
	}); err != nil {
		tokens.Close()
		return nil, fmt.Errorf("subscribe auth-lost: %w", err)
	}
	return app, nil
}

// Close drains pending event handlers, writes the metrics textfile when one
// is configured and releases the token store.
func (a *App) Close() error {
	a.bus.WaitAsync()
	if a.cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			a.log.Warn().Err(err).Str("path", a.cfg.MetricsFile).Msg("failed to write metrics")
		}
	}
	return a.tokens.Close()
}

// requireSession fails with domain.ErrNotAuthenticated when nobody is signed in.
func (a *App) requireSession() (domain.Session, error) {
	s := a.session.Snapshot()
	if !s.IsAuthenticated() {
		return s, fmt.Errorf("%w: run `optiflow auth login` first", domain.ErrNotAuthenticated)
	}
	return s, nil
}

// requireAdmin guards admin-only commands before any request is sent.
func (a *App) requireAdmin() error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	if s.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: admin role required", domain.ErrForbidden)
	}
	return nil
}
