// Package server wires configuration, storage, services and the HTTP and
// gRPC endpoints into one application and runs it until a signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/cache"
	"github.com/dmitrijs2005/cropauth/internal/dbx"
	"github.com/dmitrijs2005/cropauth/internal/logging"
	"github.com/dmitrijs2005/cropauth/internal/server/auth"
	"github.com/dmitrijs2005/cropauth/internal/server/config"
	"github.com/dmitrijs2005/cropauth/internal/server/gateway"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cropauth/internal/server/services"
	"github.com/jonboulle/clockwork"

	gs "github.com/dmitrijs2005/cropauth/internal/server/grpc"
	hs "github.com/dmitrijs2005/cropauth/internal/server/http"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 10 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 5 * time.Second
)

// logOutput is where the application log goes; tests replace it.
var logOutput io.Writer = os.Stdout

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	httpServer  *http.Server
	grpcServer  *gs.GRPCServer
}

// NewApp opens the store selected by the config, runs migrations and builds
// every service and endpoint.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(logOutput, c.LogFormat, c.LogLevel)
	clock := clockwork.NewRealClock()

	app := &App{config: c, logger: logger}

	if c.UsesDefaultSecret() {
		logger.Warn(ctx, "using the default token secret key, set CROPAUTH_SECRET_KEY or -s")
	}

	if c.UsesMemoryStore() {
		logger.Warn(ctx, "using in-memory store, data is lost on restart")
		app.repomanager = repomanager.NewInMemoryRepositoryManager(nil)
	} else {
		db, err := dbx.Open(ctx, c.DatabaseDSN, dbx.DefaultPoolOptions())
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.db = db
		app.repomanager = repomanager.NewPostgresRepositoryManager()

		if err := app.repomanager.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	hasher := auth.NewBcryptHasher(c.BcryptCost)
	tokens := auth.NewTokenIssuer([]byte(c.SecretKey), c.TokenValidity, clock, logger)

	credentials := services.NewCredentialService(app.db, app.repomanager, hasher, c, clock, logger)
	sessions := services.NewSessionService(app.db, app.repomanager, c, clock, logger)
	users := services.NewUserService(app.db, app.repomanager, credentials, sessions, tokens, logger)
	predictions := services.NewPredictionService(app.db, app.repomanager, cache.New(clock, logger), c, clock, logger)

	gw := gateway.New(tokens, sessions, logger)

	health := func(ctx context.Context) error { return app.repomanager.Ping(ctx, app.db) }
	handler := hs.NewHandler(users, sessions, predictions, gw, health, clock, logger)

	app.httpServer = &http.Server{
		Addr:         c.HTTPAddr,
		Handler:      hs.NewRouter(handler),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	app.grpcServer = gs.NewGRPCServer(c.GRPCAddr, gw, sessions, logger)

	return app, nil
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
	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "HTTP shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.httpServer.Addr)

	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves HTTP and gRPC until ctx is cancelled or a termination signal
// arrives, then shuts both down and closes the store.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close", "error", err)
		}
	}
	app.logger.Info(ctx, "App stopped")
}
