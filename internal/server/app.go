// Package server wires configuration, storage, the auth service and the
// HTTP surface together and runs them until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/tokenauth/internal/logging"
	"github.com/dmitrijs2005/tokenauth/internal/server/auth"
	"github.com/dmitrijs2005/tokenauth/internal/server/config"
	"github.com/dmitrijs2005/tokenauth/internal/server/httpserver"
	"github.com/dmitrijs2005/tokenauth/internal/server/metrics"
	"github.com/dmitrijs2005/tokenauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tokenauth/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	metrics *metrics.Metrics
	auth    *services.AuthService
}

// NewApp opens the database, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	m := metrics.New(nil)
	m.RegisterDB(db)

	tokens := auth.NewTokenFactory(c.AccessTokenValidityDuration, c.RefreshTokenValidityMonths, time.Now)
	svc := services.NewAuthService(db, rm, tokens, auth.NewArgon2Hasher())

	return &App{config: c, logger: logger, db: db, metrics: m, auth: svc}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpserver.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.auth, app.metrics, app.config.ShutdownTimeout)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until the HTTP server stops, either on a signal or on error.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
