package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/oriys/inkwell/internal/api"
	"github.com/oriys/inkwell/internal/config"
	"github.com/oriys/inkwell/internal/grpc"
	"github.com/oriys/inkwell/internal/logging"
	"github.com/oriys/inkwell/internal/metrics"
	"github.com/oriys/inkwell/internal/observability"
	"github.com/oriys/inkwell/internal/ratelimit"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var (
		httpAddr string
		grpcAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http") {
				cfg.Server.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("grpc") {
				cfg.Server.GRPCAddr = grpcAddr
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP address (empty disables)")
	cmd.Flags().StringVar(&grpcAddr, "grpc", "", "gRPC health address (empty disables)")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	obs := cfg.Observability
	if err := observability.Init(ctx, observability.Config{
		Enabled:     obs.Tracing.Enabled,
		Exporter:    obs.Tracing.Exporter,
		Endpoint:    obs.Tracing.Endpoint,
		ServiceName: obs.Tracing.ServiceName,
		SampleRate:  obs.Tracing.SampleRate,
	}); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := observability.Shutdown(shutdownCtx); err != nil {
			logging.Op().Warn("tracer shutdown", "error", err)
		}
	}()
	if obs.Metrics.Enabled {
		metrics.InitPrometheus(obs.Metrics.Namespace, nil)
	}

	engine, closeStore, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		limiter = ratelimit.New(
			ratelimit.NewFallbackBackend(ratelimit.NewRedisBackend(rdb)),
			ratelimit.Config{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				BurstSize:         cfg.RateLimit.BurstSize,
			},
		)
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Server.HTTPAddr != "" {
		httpServer := api.NewHTTPServer(cfg.Server.HTTPAddr, api.ServerConfig{
			Engine:  engine,
			Limiter: limiter,
		})
		g.Go(func() error {
			logging.Op().Info("HTTP server started", "address", cfg.Server.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	if cfg.Server.GRPCAddr != "" {
		grpcServer := grpc.NewServer(grpc.Config{
			Address: cfg.Server.GRPCAddr,
			Store:   engine,
		})
		g.Go(func() error {
			return grpcServer.ListenAndServe(ctx)
		})
	}

	err = g.Wait()
	logging.Op().Info("inkwell stopped")
	return err
}
