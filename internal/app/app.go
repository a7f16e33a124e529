package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godilite/kpi-server/internal/config"
	handler "github.com/godilite/kpi-server/internal/grpc"
	"github.com/godilite/kpi-server/internal/repository"
	"github.com/godilite/kpi-server/internal/seed"
	"github.com/godilite/kpi-server/internal/service"
	"github.com/godilite/kpi-server/pkg/cache"
	dbbuilder "github.com/godilite/kpi-server/pkg/database"
	grpcsrv "github.com/godilite/kpi-server/pkg/grpc/server"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger     *zap.Logger
	dbPool     *sql.DB
	cache      *cache.Cache
	grpcServer *grpcsrv.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	dbPool, err := dbbuilder.New(
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
		dbbuilder.WithSchema(repository.Schema),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))

	cacheClient, err := cache.New(ctx,
		cache.WithAddress(cfg.RedisAddr),
		cache.WithPassword(cfg.RedisPassword),
		cache.WithDB(cfg.RedisDB),
		cache.WithKeyPrefix(cfg.RedisKeyPrefix),
	)
	if err != nil {
		_ = dbPool.Close()
		return nil, fmt.Errorf("cache init failed: %w", err)
	}
	logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))

	kpiRepo := repository.NewKpiRepository(dbPool)

	ingestion := service.NewIngestionService(kpiRepo, cacheClient, logger.Named("ingestion"), cfg.ConfigCacheTTL)

	if cfg.SeedPath != "" {
		doc, err := seed.Load(cfg.SeedPath)
		if err != nil {
			_ = cacheClient.Close()
			_ = dbPool.Close()
			return nil, err
		}
		if err := doc.Apply(ctx, ingestion); err != nil {
			_ = cacheClient.Close()
			_ = dbPool.Close()
			return nil, fmt.Errorf("apply seed file: %w", err)
		}
		logger.Info("Seed file applied",
			zap.String("path", cfg.SeedPath),
			zap.Int("kpis", len(doc.Kpis)),
			zap.Int("grants", len(doc.Grants)))
	}

	grpcHandlers := handler.NewGRPCHandlers(ingestion, logger)

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(cfg.GRPCLoggingEnabled),
		grpcsrv.WithRecovery(true),
		grpcsrv.WithMaxRecvMsgSize(cfg.GRPCMaxRecvMsgBytes),
	)
	if err != nil {
		_ = cacheClient.Close()
		_ = dbPool.Close()
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}

	grpcServer.RegisterServiceWithHealth(handler.ServiceName, func(s *grpc.Server) {
		handler.RegisterKpiScoringServer(s, grpcHandlers)
	})

	return &App{
		logger:     logger,
		dbPool:     dbPool,
		cache:      cacheClient,
		grpcServer: grpcServer,
	}, nil
}

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run() error {
	a.logger.Info("application starting")

	a.grpcServer.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.logger.Info("application shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.grpcServer.Shutdown(ctx); err != nil {
		a.logger.Warn("gRPC shutdown did not complete in time", zap.Error(err))
	}

	if err := a.cache.Close(); err != nil {
		a.logger.Error("cache shutdown error", zap.Error(err))
	}
	if err := a.dbPool.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
	}

	a.logger.Info("graceful shutdown completed")

	_ = a.logger.Sync()
	return nil
}
