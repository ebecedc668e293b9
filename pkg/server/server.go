package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Xenebia/Radar-Scan/pkg/config"
	"github.com/Xenebia/Radar-Scan/pkg/host"
	"github.com/Xenebia/Radar-Scan/pkg/names"
	"github.com/Xenebia/Radar-Scan/pkg/radar"
	"github.com/Xenebia/Radar-Scan/pkg/registry"
	"github.com/Xenebia/Radar-Scan/pkg/scanner"
	"github.com/Xenebia/Radar-Scan/pkg/subnet"
)

// Server runs the scanner and the radar clock, and serves the radar
// over HTTP. It implements radar.View for in-process renderers.
type Server struct {
	registry   *registry.Registry
	state      *radar.State
	clock      *radar.Clock
	scanner    *scanner.Scanner
	logger     *logrus.Logger
	prefix     string
	listenPort string
	apiEnabled bool

	httpServer *http.Server
	listener   net.Listener
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewServer resolves the subnet and builds the scanner, clock and probes
// described by cfg.
func NewServer(cfg *config.Config, logger *logrus.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = subnet.Resolve()
	}
	logger.Infof("Scanning subnet %s0/24", prefix)

	reg := registry.New()
	state := radar.NewState(cfg.Radius)

	checks, err := buildChecks(cfg.Probe, subnet.Addresses(prefix))
	if err != nil {
		return nil, err
	}
	logger.Infof("Using %s probe with timeout %v", cfg.Probe.Type, cfg.Probe.Timeout)

	opts := []scanner.Option{
		scanner.WithInterval(cfg.Scan.Interval),
		scanner.WithWorkers(cfg.Scan.Workers),
		scanner.WithRate(cfg.Scan.Rate),
	}
	if cfg.Names.Enabled {
		server := cfg.Names.Server
		if server == "" {
			server = subnet.Gateway(prefix)
		}
		resolver, err := names.New(server,
			names.WithTimeout(cfg.Names.Timeout),
			names.WithMDNS(cfg.Names.MDNS),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, scanner.WithNames(resolver))
		logger.Infof("Resolving hostnames via %s", server)
	}

	scn, err := scanner.New(reg, state, checks, logger, opts...)
	if err != nil {
		return nil, err
	}

	clock, err := radar.NewClock(state, reg, logger)
	if err != nil {
		return nil, err
	}

	return &Server{
		registry:   reg,
		state:      state,
		clock:      clock,
		scanner:    scn,
		logger:     logger,
		prefix:     prefix,
		listenPort: cfg.Server.ListenPort,
		apiEnabled: cfg.Server.Enabled,
	}, nil
}

// Start launches the scanner, the clock and, if enabled, the HTTP API.
// Nothing is started when the API port cannot be bound.
func (s *Server) Start() error {
	if s.apiEnabled {
		if err := s.startAPI(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.scanner.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.clock.Run(ctx)
	}()
	return nil
}

// Stop signals the scanner and clock to stop at their next boundary,
// shuts the API down, and waits for everything to exit.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Errorf("API server shutdown: %v", err)
		}
	}
	s.wg.Wait()
	s.logger.Info("Scanner and clock stopped.")
}

// Prefix returns the subnet prefix being swept.
func (s *Server) Prefix() string {
	return s.prefix
}

// Redraw signals after every clock tick.
func (s *Server) Redraw() <-chan struct{} {
	return s.clock.Redraw()
}

// Hosts returns a snapshot of all known hosts ordered by address.
func (s *Server) Hosts() []host.Host {
	return s.registry.Snapshot()
}

// Angle returns the current sweep angle.
func (s *Server) Angle() float64 {
	return s.state.Angle()
}

// Radius returns the current radar radius.
func (s *Server) Radius() int {
	return s.state.Radius()
}

// SetRadius changes the radar radius, clamped to the allowed range.
func (s *Server) SetRadius(r int) {
	s.state.SetRadius(r)
	s.logger.Debugf("Radius set to %d", s.state.Radius())
}

var _ radar.View = (*Server)(nil)
