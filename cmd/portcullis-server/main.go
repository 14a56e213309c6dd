package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/config"
	"github.com/BrandonDHaskell/Portcullis/server/internal/db"
	"github.com/BrandonDHaskell/Portcullis/server/internal/grpcserver"
	"github.com/BrandonDHaskell/Portcullis/server/internal/httpapi"
	"github.com/BrandonDHaskell/Portcullis/server/internal/ingest"
	"github.com/BrandonDHaskell/Portcullis/server/internal/logging"
	"github.com/BrandonDHaskell/Portcullis/server/internal/metrics"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store/memory"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store/postgres"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store/sqlite"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/summary"
	"github.com/BrandonDHaskell/Portcullis/server/internal/stream"
	"github.com/BrandonDHaskell/Portcullis/server/internal/tracing"
)

func main() {
	configFlag := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(config.DetermineConfigPath(*configFlag))
	if err != nil {
		fmt.Fprintf(os.Stderr, "portcullis-server: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Encoding:   cfg.Log.Encoding,
		FilePath:   cfg.Log.FilePath,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "portcullis-server: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// backend is an opened store together with its readiness probe and cleanup.
type backend struct {
	stores store.Stores
	ping   func(ctx context.Context) error
	close  func()
}

func openBackend(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (backend, error) {
	dbCfg := db.Config{
		Driver:      cfg.DB.Driver,
		Path:        cfg.DB.Path,
		PostgresURL: cfg.DB.PostgresURL,
		MaxConns:    cfg.DB.MaxConns,
	}

	switch cfg.DB.Driver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		return backend{stores: memory.New(), close: func() {}}, nil

	case "postgres":
		pool, err := db.OpenPostgres(ctx, dbCfg)
		if err != nil {
			return backend{}, err
		}
		return backend{
			stores: postgres.New(pool).Stores(),
			ping:   pool.Ping,
			close:  pool.Close,
		}, nil

	default:
		sqlDB, err := db.OpenSQLite(ctx, dbCfg)
		if err != nil {
			return backend{}, err
		}
		writer := db.NewWorker(sqlDB, db.WithQueueSize(cfg.DB.WriteQueue), db.WithObserver(m.DBJob))
		return backend{
			stores: sqlite.New(sqlDB, writer),
			ping:   sqlDB.PingContext,
			close: func() {
				writer.Close()
				_ = sqlDB.Close()
			},
		}, nil
	}
}

func newSummaryModel(ctx context.Context, cfg config.SummaryConfig, logger *zap.Logger) summary.Model {
	if cfg.APIKey == "" {
		logger.Warn("no summary API key configured; summaries will fail")
		return summary.UnavailableModel{}
	}
	model, err := summary.NewGeminiModel(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		logger.Warn("summary model unavailable", zap.Error(err))
		return summary.UnavailableModel{}
	}
	return model
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "portcullis-server",
		Environment: cfg.Server.Env,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	m := metrics.New()

	be, err := openBackend(ctx, cfg, m, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.DB.Driver, err)
	}
	defer be.close()
	st := be.stores

	// Services
	v := service.NewValidator()
	logs := service.NewAccessLogService(st.AccessLogs, v, m, logger)
	dir := service.NewDirectory(st.Gates, st.Vehicles)
	accessSvc := service.NewAccessService(dir, st.Schedules, logs, service.AccessPolicy{
		AllowAll:       cfg.Access.AllowAll,
		ScheduleWindow: cfg.Access.ScheduleWindow,
	}, m, logger)

	flow, err := summary.NewFlow(summary.Config{
		Prompt:     cfg.Summary.Prompt,
		StartField: cfg.Summary.StartField,
		EndField:   cfg.Summary.EndField,
		Timeout:    cfg.Summary.Timeout,
	}, newSummaryModel(ctx, cfg.Summary, logger))
	if err != nil {
		return fmt.Errorf("summary prompt: %w", err)
	}
	summarySvc := service.NewSummaryService(flow, dir, st.AccessLogs, m, logger)

	// Live feed
	hub := stream.NewHub(cfg.CORS.AllowedOrigins, m, logger)
	go hub.Run(ctx)
	logs.Observe(hub)

	pruner := service.NewAccessLogPruner(st.AccessLogs, service.PrunerConfig{
		RetentionDays: cfg.Access.RetentionDays,
		Interval:      cfg.Access.PruneInterval,
	}, m, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	if cfg.AMQP.Enabled {
		consumer, err := ingest.Dial(ingest.Config{
			URL:                cfg.AMQP.URL,
			Queue:              cfg.AMQP.Queue,
			DeadLetterExchange: cfg.AMQP.DeadLetterExchange,
			Prefetch:           cfg.AMQP.Prefetch,
		}, logs, m, logger)
		if err != nil {
			return err
		}
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("ingest consumer stopped", zap.Error(err))
			}
		}()
	}

	// gRPC health
	var grpcSrv *grpcserver.Server
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcSrv = grpcserver.New(be.ping, 10*time.Second, logger)
		go grpcSrv.Watch(ctx)
		go func() {
			logger.Info("grpc health listening", zap.String("addr", cfg.Server.GRPCAddr))
			if err := grpcSrv.Serve(lis); err != nil {
				logger.Error("grpc server error", zap.Error(err))
				stop()
			}
		}()
	}

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:         logger,
		Metrics:        m,
		Addr:           cfg.Server.HTTPAddr,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		Dev:            cfg.IsDev(),
		Auth:           httpapi.AuthConfig{JWTSecret: cfg.Auth.JWTSecret, DevUserID: cfg.Auth.DevUserID},
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimit: httpapi.RateLimitConfig{
			RatePerSecond: cfg.RateLimit.RatePerSecond,
			Burst:         cfg.RateLimit.Burst,
			TTL:           cfg.RateLimit.TTL,
		},
		Ready:            be.ping,
		GateService:      service.NewGateService(st.Gates, v),
		VehicleService:   service.NewVehicleService(st.Vehicles, v),
		ScheduleService:  service.NewScheduleService(st.Schedules, v),
		AccessLogService: logs,
		AccessService:    accessSvc,
		SummaryService:   summarySvc,
		DashboardService: service.NewDashboardService(st),
		Seeder:           service.NewSeeder(st, logs, logger),
		Stream:           hub,
	})

	go func() {
		logger.Info("http listening",
			zap.String("addr", cfg.Server.HTTPAddr),
			zap.String("env", cfg.Server.Env),
			zap.String("db", cfg.DB.Driver),
		)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	return srv.Shutdown(shutdownCtx)
}
