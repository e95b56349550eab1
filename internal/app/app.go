package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haguru/eduquest/config"
	"github.com/haguru/eduquest/internal/interfaces"
	"github.com/haguru/eduquest/internal/middleware"
	"github.com/haguru/eduquest/internal/routes"
	"github.com/haguru/eduquest/internal/server"
	dynamoUserRepo "github.com/haguru/eduquest/internal/userrepo/dynamodb"
	fileUserRepo "github.com/haguru/eduquest/internal/userrepo/file"
	mongoUserRepo "github.com/haguru/eduquest/internal/userrepo/mongo"
	postgresUserRepo "github.com/haguru/eduquest/internal/userrepo/postgres"
	"github.com/haguru/eduquest/internal/userservice"
	"github.com/haguru/eduquest/pkg/databases/dynamodb"
	"github.com/haguru/eduquest/pkg/databases/mongo"
	"github.com/haguru/eduquest/pkg/databases/postgres"
	"github.com/haguru/eduquest/pkg/metrics"
	"github.com/haguru/eduquest/pkg/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ShutdownTimeout bounds the graceful drain of in-flight requests.
var ShutdownTimeout = 10 * time.Second

// App represents the main application, containing server and configuration.
// It owns the user repository and closes it on shutdown.
type App struct {
	Server   interfaces.Server
	Config   *config.ServiceConfig
	Logger   interfaces.Logger
	Metrics  interfaces.Metrics
	userRepo interfaces.UserRepository
}

// NewApp creates and configures a new App instance.
func NewApp(configPath string) (*App, error) {
	cfg, err := config.LoadServiceConfig(configPath, config.NewValidator())
	if err != nil {
		return nil, err
	}

	logger := zerolog.NewZerologLogger(cfg.ServiceName)
	logger.SetLevel(cfg.LogLevel)

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: newAppMetrics(cfg.ServiceName),
	}

	ctx := context.Background()
	userRepo, err := app.initializeUserRepo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize user repository: %v", err)
	}
	app.userRepo = userRepo

	// Ensure the backing schema, index or table exists
	if err = userRepo.EnsureIndices(ctx); err != nil {
		_ = userRepo.Close(ctx)
		return nil, fmt.Errorf("failed to ensure indices: %v", err)
	}

	userService := userservice.NewUserService(userRepo, logger)
	route := routes.NewRoute(app.Metrics, userService, logger, config.NewValidator())

	serverInstance := server.NewServer(cfg.Host, cfg.Port, logger)
	app.Server = serverInstance
	if err := app.addRoutes(route); err != nil {
		_ = userRepo.Close(ctx)
		return nil, err
	}

	return app, nil
}

func newAppMetrics(serviceName string) interfaces.Metrics {
	appMetrics := metrics.NewMetrics(serviceName)
	routes.RegisterMetrics(appMetrics)
	return appMetrics
}

func (app *App) addRoutes(route *routes.Route) error {
	limit := middleware.RateLimitMiddleware(
		middleware.NewLimiter(app.Config.RateLimit.RequestsPerSecond, app.Config.RateLimit.Burst),
		app.Metrics, routes.RateLimitedTotal)

	metricsHandler := promhttp.HandlerFor(app.Metrics.GetRegistry(), promhttp.HandlerOpts{})

	handlers := []struct {
		pattern string
		handler http.Handler
	}{
		{routes.MetricsRouteAPI, metricsHandler},
		{routes.RegisterRouteAPI, limit(http.HandlerFunc(route.Register))},
		{routes.LoginRouteAPI, limit(http.HandlerFunc(route.Login))},
		{routes.StreakRouteAPI, http.HandlerFunc(route.Streak)},
		{routes.ProgressRouteAPI, http.HandlerFunc(route.Progress)},
		{routes.ReadProgressRouteAPI, http.HandlerFunc(route.ReadProgress)},
	}
	for _, h := range handlers {
		if err := app.Server.AddRoute(h.pattern, otelhttp.NewHandler(h.handler, h.pattern)); err != nil {
			return fmt.Errorf("failed to add route %s: %v", h.pattern, err)
		}
	}
	return nil
}

// Run serves until SIGINT/SIGTERM, then drains requests and closes the repository.
func (app *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.RunContext(ctx)
}

// RunContext serves until ctx is done or the listener fails.
func (app *App) RunContext(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Server.ListenAndServe()
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		app.Logger.Info("Shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := app.Server.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("Graceful shutdown failed", "error", err)
		}
		serveErr = <-errCh
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := app.userRepo.Close(closeCtx); err != nil {
		app.Logger.Error("Failed to close user repository", "error", err)
		serveErr = errors.Join(serveErr, err)
	}
	return serveErr
}

func (app *App) initializeUserRepo(ctx context.Context) (interfaces.UserRepository, error) {
	dbCfg := app.Config.Database

	switch dbCfg.Type {
	case config.DatabaseFile:
		return fileUserRepo.NewFileUserRepository(dbCfg.File.Path)

	case config.DatabaseMongo:
		dbClient := mongo.NewMongoDB(&dbCfg.MongoDB, app.Logger)
		if err := dbClient.Connect(ctx, dbCfg.MongoDB.DSN); err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
		}
		return mongoUserRepo.NewMongoUserRepository(dbClient, dbCfg.MongoDB.Collection)

	case config.DatabasePostgres:
		opts := dbCfg.Postgres.Options
		dbClient := postgres.NewPostgresDatabaseClient(opts.MaxOpenConns, opts.MaxIdleConns, opts.ConnMaxLifetime)
		if err := dbClient.Connect(ctx, dbCfg.Postgres.DSN); err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %v", err)
		}
		return postgresUserRepo.NewPostgresUserRepository(dbClient.DB())

	case config.DatabaseDynamoDB:
		client, err := dynamodb.NewClient(ctx, dbCfg.DynamoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to create DynamoDB client: %v", err)
		}
		return dynamoUserRepo.NewDynamoUserRepository(app.Logger, client, dbCfg.DynamoDB.TableName)

	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbCfg.Type)
	}
}
