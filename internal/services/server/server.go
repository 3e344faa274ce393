package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/clock"
	"github.com/LeonardoBeccarini/greenhouse_project/internal/greenhouse"
	"github.com/LeonardoBeccarini/greenhouse_project/internal/metrics"
	"github.com/LeonardoBeccarini/greenhouse_project/internal/model/entities"
	"github.com/LeonardoBeccarini/greenhouse_project/pkg/cipher"
)

// SnapshotSaver persists greenhouse snapshots.
type SnapshotSaver interface {
	SaveAll(snaps []entities.GreenhouseSnapshot) error
}

// Server accepts protocol clients and runs one session goroutine each.
type Server struct {
	clock    *clock.Clock
	registry *greenhouse.Registry
	codec    cipher.Codec
	saver    SnapshotSaver
	health   *health.Server

	monitor   *Monitor
	broadcast broadcaster

	mu       sync.Mutex
	ln       net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	ready    chan struct{}
	tickSub  clock.SubscriptionID
	sessions sync.WaitGroup
}

type Option func(*Server)

// WithCodec sets the line transform; the default is the identity.
func WithCodec(c cipher.Codec) Option {
	return func(s *Server) { s.codec = c }
}

// WithSaver enables "saveserverstate".
func WithSaver(saver SnapshotSaver) Option {
	return func(s *Server) { s.saver = saver }
}

func New(c *clock.Clock, reg *greenhouse.Registry, opts ...Option) *Server {
	s := &Server{
		clock:    c,
		registry: reg,
		codec:    cipher.Identity(),
		conns:    make(map[net.Conn]struct{}),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.monitor = NewMonitor(c, reg.Get)
	metrics.Greenhouses.Set(float64(reg.Len()))
	return s
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is done or Close is called. Shutdown closes
// the listener and every client socket and waits for sessions to end.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return net.ErrClosed
	}
	s.ln = ln
	s.tickSub = s.clock.Subscribe(clock.SubscriberFunc(metrics.TicksTotal.Inc))
	s.setHealth(healthpb.HealthCheckResponse_SERVING)
	close(s.ready)
	s.mu.Unlock()
	log.Printf("server: listening on %s", ln.Addr())

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.sessions.Wait()
				return nil
			}
			log.Printf("server: accept error: %v", err)
			continue
		}
		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			defer s.untrack(conn)
			newSession(s, conn).run()
		}()
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// Addr blocks until Serve has a listener.
func (s *Server) Addr() net.Addr {
	<-s.ready
	return s.ln.Addr()
}

// Ready is closed once Serve is accepting.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Close stops accepting, closes every session socket and leaves the clock.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	for c := range s.conns {
		_ = c.Close()
	}
	if ln != nil {
		s.clock.Unsubscribe(s.tickSub)
	}
	s.mu.Unlock()

	s.setHealth(healthpb.HealthCheckResponse_NOT_SERVING)
	s.monitor.Close()
	if ln != nil {
		return ln.Close()
	}
	return nil
}

// CreateGreenhouse adds a greenhouse and tells broadcast subscribers.
func (s *Server) CreateGreenhouse() *greenhouse.GreenHouse {
	gh := s.registry.Create()
	metrics.Greenhouses.Set(float64(s.registry.Len()))
	log.Printf("server: created greenhouse id=%d", gh.ID())
	s.broadcast.send(fmt.Sprintf("Notice: Greenhouse %d was created.", gh.ID()))
	return gh
}

// Snapshots exports every greenhouse.
func (s *Server) Snapshots() []entities.GreenhouseSnapshot {
	list := s.registry.List()
	out := make([]entities.GreenhouseSnapshot, 0, len(list))
	for _, gh := range list {
		out = append(out, gh.Snapshot())
	}
	return out
}

// SaveState persists every greenhouse and returns how many were written.
func (s *Server) SaveState() (int, error) {
	if s.saver == nil {
		return 0, errors.New("no snapshot store configured")
	}
	snaps := s.Snapshots()
	if err := s.saver.SaveAll(snaps); err != nil {
		return 0, err
	}
	log.Printf("server: saved %d greenhouses", len(snaps))
	return len(snaps), nil
}

func (s *Server) Monitor() *Monitor { return s.monitor }
