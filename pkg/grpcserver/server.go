// Package grpcserver exposes the standard gRPC health service for orchestrator probes.
package grpcserver

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Server struct {
	GRPC   *grpc.Server
	Health *health.Server
	lis    net.Listener
}

// Run starts serving on addr in the background. Services report NOT_SERVING
// until SetServing is called.
func Run(addr string, services ...string) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	for _, svc := range append([]string{""}, services...) {
		hs.SetServingStatus(svc, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	go func() {
		_ = gs.Serve(lis)
	}()
	return &Server{GRPC: gs, Health: hs, lis: lis}, nil
}

func (s *Server) Addr() net.Addr { return s.lis.Addr() }

func (s *Server) SetServing(services ...string) {
	for _, svc := range append([]string{""}, services...) {
		s.Health.SetServingStatus(svc, healthpb.HealthCheckResponse_SERVING)
	}
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	s.Health.Shutdown()
	s.GRPC.GracefulStop()
}
