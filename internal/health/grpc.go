package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// ServiceName is the gRPC health service name reported alongside "".
const ServiceName = "taskflow"

// GRPCServer serves grpc.health.v1.Health with a status that follows
// periodic database checks.
type GRPCServer struct {
	srv      *grpc.Server
	health   *grpchealth.Server
	checker  *Checker
	interval time.Duration
}

// NewGRPCServer creates a health server polling checker every interval.
func NewGRPCServer(checker *Checker, interval time.Duration) *GRPCServer {
	srv := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    2 * time.Minute,
			Timeout: 10 * time.Second,
		}),
	)
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &GRPCServer{srv: srv, health: hs, checker: checker, interval: interval}
}

// ListenAndServe listens on addr and serves until ctx is done.
func (g *GRPCServer) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen for grpc health on %s: %w", addr, err)
	}
	return g.Serve(ctx, lis)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (g *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	g.refresh(ctx)
	go g.poll(ctx)
	go func() {
		<-ctx.Done()
		g.health.Shutdown()
		g.srv.GracefulStop()
	}()

	slog.Info("gRPC health server listening", "addr", lis.Addr().String())
	if err := g.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve grpc health: %w", err)
	}
	return nil
}

func (g *GRPCServer) poll(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.refresh(ctx)
		}
	}
}

func (g *GRPCServer) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := g.checker.Check(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("gRPC health: database check failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(ServiceName, status)
}
