package server

import (
	"fmt"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the gRPC name reported for the TCP protocol listener.
const HealthService = "greenhouse.Server"

// WithHealth reports SERVING on h while the listener accepts and NOT_SERVING
// after Close.
func WithHealth(h *health.Server) Option {
	return func(s *Server) { s.health = h }
}

func (s *Server) setHealth(st healthpb.HealthCheckResponse_ServingStatus) {
	if s.health == nil {
		return
	}
	s.health.SetServingStatus(HealthService, st)
	s.health.SetServingStatus("", st)
}

// NewHealthServer builds a gRPC server exposing only grpc.health.v1.Health.
func NewHealthServer() (*grpc.Server, *health.Server) {
	h := health.NewServer()
	h.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	g := grpc.NewServer()
	healthpb.RegisterHealthServer(g, h)
	return g, h
}

// ServeHealth listens on addr and blocks serving g.
func ServeHealth(g *grpc.Server, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", addr, err)
	}
	log.Printf("server: grpc health listening on %s", ln.Addr())
	return g.Serve(ln)
}
