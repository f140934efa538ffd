// Package health exposes the standard gRPC health service, driven by a
// periodic check of the backing store.
package health

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is reported alongside the overall ("") status.
const ServiceName = "cosmic.Backend"

const checkTimeout = 2 * time.Second

// Checker returns nil while its dependency is reachable.
type Checker func(ctx context.Context) error

type Server struct {
	grpc     *grpc.Server
	status   *health.Server
	check    Checker
	interval time.Duration
	log      logrus.FieldLogger
}

func NewServer(check Checker, interval time.Duration, log logrus.FieldLogger) *Server {
	s := &Server{
		grpc:     grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler())),
		status:   health.NewServer(),
		check:    check,
		interval: interval,
		log:      log,
	}
	healthpb.RegisterHealthServer(s.grpc, s.status)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(s.grpc)

	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Watch checks immediately and then every interval until ctx is done.
func (s *Server) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		current := s.runCheck(ctx)
		if current != last {
			s.log.WithField("status", current.String()).Info("health status changed")
			last = current
		}
		s.setStatus(current)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) GracefulStop() {
	s.status.Shutdown()
	s.grpc.GracefulStop()
}

func (s *Server) runCheck(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := s.check(ctx); err != nil {
		s.log.WithError(err).Warn("health check failed")
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

func (s *Server) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.status.SetServingStatus("", st)
	s.status.SetServingStatus(ServiceName, st)
}
