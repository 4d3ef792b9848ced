package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Pinger is the database health probe.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// GRPC is the daemon's gRPC surface: the standard health service, whose
// status follows the database, and reflection for grpcurl.
type GRPC struct {
	server *grpc.Server
	health *health.Server
	db     Pinger
	logger *slog.Logger
}

func NewGRPC(db Pinger, logger *slog.Logger) *GRPC {
	if logger == nil {
		logger = slog.Default()
	}
	s := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(s)
	return &GRPC{server: s, health: hs, db: db, logger: logger}
}

// Serve blocks until lis fails or Stop is called.
func (g *GRPC) Serve(lis net.Listener) error {
	g.logger.Info("server.grpc.serving", "addr", lis.Addr().String())
	return g.server.Serve(lis)
}

// WatchDB pings the database every interval and flips the health status
// between SERVING and NOT_SERVING until ctx is done.
func (g *GRPC) WatchDB(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			err := g.db.HealthCheck(ctx, interval/2)
			switch {
			case err != nil && serving:
				serving = false
				g.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
				g.logger.Warn("server.health.not_serving", "error", err)
			case err == nil && !serving:
				serving = true
				g.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
				g.logger.Info("server.health.serving")
			}
		}
	}
}

// Stop marks the service as not serving and drains in-flight calls.
func (g *GRPC) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
