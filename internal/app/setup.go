// Package app contains the application setup for the beer stock service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/beerstock/internal/config"
	"github.com/abgdnv/beerstock/internal/service"
	"github.com/abgdnv/beerstock/internal/store"
	grpcImpl "github.com/abgdnv/beerstock/internal/transport/grpc"
	"github.com/abgdnv/beerstock/internal/transport/rest"
	"github.com/abgdnv/beerstock/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/beerstock/pkg/config"
	"github.com/abgdnv/beerstock/pkg/messaging"
	"github.com/abgdnv/beerstock/pkg/nats"
	"github.com/abgdnv/beerstock/pkg/server"
	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const serviceName = "beerstock"

// CloseFunc releases a resource acquired during setup.
type CloseFunc func()

type Dependencies struct {
	StockService   service.StockService
	Logger         *slog.Logger
	MetricsHandler http.Handler
}

func SetupDependencies(beerStore store.BeerStore, publisher messaging.Publisher, logger *slog.Logger, metrics http.Handler) *Dependencies {
	return &Dependencies{
		StockService:   service.NewService(beerStore, publisher),
		Logger:         logger,
		MetricsHandler: metrics,
	}
}

// SetupStore connects the beer store selected by store.driver.
// The returned CloseFunc releases the underlying connection.
func SetupStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.BeerStore, CloseFunc, error) {
	switch cfg.Store.Driver {
	case pkgconfig.StoreDriverMemory:
		logger.Info("Using in-memory beer store")
		return store.NewInMemoryStore(), func() {}, nil

	case pkgconfig.StoreDriverPostgres:
		if cfg.Database.Migrate {
			if err := store.Migrate(cfg.Database.URL); err != nil {
				return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
			}
			logger.Info("Database migrations applied")
		}
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database connection pool: %w", err)
		}
		logger.Info("Successfully connected to the database!")
		return store.NewPgStore(dbPool), dbPool.Close, nil

	case pkgconfig.StoreDriverSQLite:
		db, err := bootstrap.NewSQLiteDB(cfg.SQLite.DSN)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				if err := sqlDB.Close(); err != nil {
					logger.Error("Failed to close sqlite database", slog.Any("error", err))
				}
			}
		}
		gormStore, err := store.NewGormStore(db)
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		logger.Info("Using sqlite beer store", slog.String("dsn", cfg.SQLite.DSN))
		return gormStore, closeDB, nil

	case pkgconfig.StoreDriverRedis:
		client, err := bootstrap.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Timeout)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Successfully connected to redis", slog.String("addr", cfg.Redis.Addr))
		return store.NewRedisStore(client), func() {
			if err := client.Close(); err != nil {
				logger.Error("Failed to close redis client", slog.Any("error", err))
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
}

// SetupPublisher returns the JetStream publisher when NATS is enabled and a no-op publisher otherwise.
func SetupPublisher(ctx context.Context, cfg pkgconfig.NATSConfig, logger *slog.Logger) (messaging.Publisher, CloseFunc, error) {
	if !cfg.Enabled {
		logger.Info("NATS disabled, stock events are dropped")
		return messaging.NoopPublisher{}, func() {}, nil
	}
	nc, err := nats.NewClient(cfg.Url, cfg.Timeout)
	if err != nil {
		return nil, nil, err
	}
	js, err := nats.NewJetStreamContext(nc)
	if err != nil {
		return nil, nil, err
	}
	if _, err := nats.EnsureStream(ctx, js, cfg.Stream, messaging.BeersSubjects); err != nil {
		nc.Close()
		return nil, nil, err
	}
	logger.Info("Publishing stock events to NATS", slog.String("stream", cfg.Stream))
	return nats.NewNatsPublisher(js), func() {
		if err := nc.Drain(); err != nil {
			logger.Error("Failed to drain NATS connection", slog.Any("error", err))
		}
	}, nil
}

// SetupHttpHandler initializes the routes of the beer stock application.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes of the beer stock application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	beerHandler := rest.NewHandler(deps.StockService, deps.Logger)
	beerHandler.RegisterRoutes(mux)
	if deps.MetricsHandler != nil {
		mux.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
}

// SetupHttpServer creates and configures an HTTP server for the beer stock application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, serviceName, mux)
}

// SetupGrpcServer initializes the gRPC server with the beer stock and health services.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) (*grpc.Server, *health.Server) {
	healthServer := health.NewServer()
	beerRegisterFunc := func(s *grpc.Server) {
		grpcImpl.RegisterBeerStockServer(s, grpcImpl.NewServer(deps.StockService, deps.Logger))
	}
	healthRegisterFunc := func(s *grpc.Server) {
		grpc_health_v1.RegisterHealthServer(s, healthServer)
	}
	grpcServer := server.NewGRPCServer(deps.Logger, reflectionEnabled, beerRegisterFunc, healthRegisterFunc)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcImpl.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return grpcServer, healthServer
}
