// Package server wires the E-IMZO auth service together: storage, the
// E-IMZO client, the HTTP API and the auxiliary gRPC health and metrics
// listeners. It also handles graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/eimzo-auth/internal/eimzo"
	"github.com/dmitrijs2005/eimzo-auth/internal/logging"
	"github.com/dmitrijs2005/eimzo-auth/internal/metrics"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/challenges"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/config"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/httpapi"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/eimzo-auth/internal/server/grpc"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "eimzo_session"

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   redis.UniversalClient
	metrics *metrics.Metrics
	api     *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if c.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db, metrics: metrics.New()}

	if err := app.init(ctx); err != nil {
		app.close()
		return nil, err
	}

	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	rm, err := repomanager.NewPostgresRepositoryManager(app.db)
	if err != nil {
		return fmt.Errorf("repository manager init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	var store eimzo.ChallengeRecorder = challenges.Discard
	if c.RedisAddr != "" {
		app.redis = challenges.NewRedisClient(challenges.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		store = challenges.NewRedisStore(app.redis)
	} else {
		app.logger.Warn(ctx, "Redis address is empty, issued challenges are not recorded")
	}

	client, err := eimzo.NewClient(eimzo.Config{
		BaseURL:            c.EimzoServerURL,
		FrontendURL:        c.EimzoFrontendURL,
		Timeout:            c.EimzoTimeout,
		InsecureSkipVerify: c.EimzoSkipTLSVerify(),
	}, store, eimzo.WithObserver(app.metrics), eimzo.WithLogger(app.logger.With("module", "eimzo")))
	if err != nil {
		return fmt.Errorf("E-IMZO client init error: %w", err)
	}

	us := services.NewUserService(app.db, rm, app.logger, app.metrics)
	as := services.NewAuthService(app.db, rm, us, client, c, app.logger, app.metrics)

	h := httpapi.NewHandler(as, us, client, httpapi.CookieConfig{
		Name:   SessionCookieName,
		Secure: c.CookieSecure,
	}, app.logger)

	router, err := httpapi.NewRouter(h, httpapi.RouterOptions{
		Logger:         app.logger,
		Metrics:        app.metrics,
		TrustedProxies: c.TrustedProxies,
	})
	if err != nil {
		return fmt.Errorf("router init error: %w", err)
	}

	app.api = httpapi.NewServer(c.EndpointAddrHTTP, router, app.logger)
	return nil
}

// ping checks the database and, when configured, Redis.
func (app *App) ping(ctx context.Context) error {
	if err := app.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if app.redis != nil {
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (app *App) close() {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	errs = append(errs, app.db.Close())
	if err := errors.Join(errs...); err != nil {
		app.logger.Error(context.Background(), "close error", "error", err)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// run starts one listener and cancels the whole app when it fails.
func (app *App) run(ctx context.Context, cancelFunc context.CancelFunc, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		app.logger.Error(ctx, "server error", "server", name, "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting app...", "env", app.config.AppEnv)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.run(ctx, cancelFunc, "http", app.api.Run)
	}()

	if app.config.EndpointAddrGRPC != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.ping)
			app.run(ctx, cancelFunc, "grpc", s.Run)
		}()
	}

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := metrics.NewServer(app.config.MetricsAddr, app.metrics, app.logger)
			app.run(ctx, cancelFunc, "metrics", s.Run)
		}()
	}

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
}
