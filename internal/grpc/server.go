// Package grpc exposes the standard gRPC health service for inkwell. Health
// follows the entity store: when the store stops answering pings the server
// reports NOT_SERVING so load balancers drain the replica.
package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/oriys/inkwell/internal/logging"
	"github.com/oriys/inkwell/internal/observability"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall ("")
// status.
const ServiceName = "inkwell.Engine"

// Pinger is what the health watcher probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds configuration for the gRPC server
type Config struct {
	Address       string
	Store         Pinger
	CheckInterval time.Duration
}

// Server wraps a grpc.Server carrying the health and reflection services
type Server struct {
	cfg        Config
	grpcServer *grpc.Server
	health     *health.Server
}

func NewServer(cfg Config) *Server {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 5 * time.Second
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			observability.UnaryServerInterceptor(),
			statusInterceptor,
		),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	reflection.Register(grpcServer)

	return &Server{cfg: cfg, grpcServer: grpcServer, health: healthServer}
}

// Serve checks store health once, then serves on lis until Stop is called or
// ctx is done. The store is re-checked every CheckInterval.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.checkStore(ctx)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.watchStore(watchCtx)
	go func() {
		<-watchCtx.Done()
		s.Stop()
	}()

	logging.Op().Info("gRPC server started", "address", lis.Addr().String())
	if err := s.grpcServer.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// ListenAndServe listens on cfg.Address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(ctx, lis)
}

// Stop marks every service NOT_SERVING and stops the server gracefully.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

func (s *Server) watchStore(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkStore(ctx)
		}
	}
}

func (s *Server) checkStore(ctx context.Context) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if s.cfg.Store != nil {
		pingCtx, cancel := context.WithTimeout(ctx, s.cfg.CheckInterval)
		err := s.cfg.Store.Ping(pingCtx)
		cancel()
		if err != nil {
			logging.Op().Warn("store ping failed, reporting NOT_SERVING", "error", err)
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
