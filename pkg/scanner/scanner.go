// Package scanner sweeps the subnet, probing every address and recording
// the hosts that answer in the registry.
//
// One sweep probes each address once. Hosts that answer are placed on the
// radar at a distance proportional to their latency and at a fresh random
// bearing; hosts that stayed silent are marked offline once the sweep
// completes. Probe failures never abort a sweep and are not retried until
// the next one.
package scanner

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Xenebia/Radar-Scan/pkg/check"
	"github.com/Xenebia/Radar-Scan/pkg/host"
	"github.com/Xenebia/Radar-Scan/pkg/radar"
	"github.com/Xenebia/Radar-Scan/pkg/registry"
)

const (
	// DefaultInterval is the pause between two sweeps.
	DefaultInterval = 4 * time.Second

	// DefaultWorkers is the number of probes in flight at once.
	DefaultWorkers = 64

	// DefaultRate is the number of probes started per second.
	DefaultRate = 500

	// FullScaleLatency is the latency that places a host on the outer ring.
	FullScaleLatency = 120 * time.Millisecond
)

// NameLookup resolves a hostname for an address.
type NameLookup interface {
	Lookup(ctx context.Context, address string) (string, error)
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Probed    int
	Found     int
	Duration  time.Duration
	Cancelled bool
}

// Scanner repeatedly sweeps a fixed set of probe targets.
type Scanner struct {
	registry *registry.Registry
	state    *radar.State
	checks   []check.Check
	logger   *logrus.Logger

	interval time.Duration
	workers  int
	limit    rate.Limit
	names    NameLookup

	randMu sync.Mutex
	rand   *rand.Rand

	lookups sync.WaitGroup
}

// Option is a functional option for configuring a Scanner.
type Option func(*Scanner) error

// WithInterval sets the pause between sweeps.
func WithInterval(d time.Duration) Option {
	return func(s *Scanner) error {
		if d < 0 {
			return fmt.Errorf("interval must not be negative, got %v", d)
		}
		s.interval = d
		return nil
	}
}

// WithWorkers sets how many probes may run at once.
func WithWorkers(n int) Option {
	return func(s *Scanner) error {
		if n < 1 {
			return fmt.Errorf("workers must be at least 1, got %d", n)
		}
		s.workers = n
		return nil
	}
}

// WithRate caps how many probes start per second. Zero removes the cap.
func WithRate(perSecond float64) Option {
	return func(s *Scanner) error {
		switch {
		case perSecond < 0:
			return fmt.Errorf("rate must not be negative, got %v", perSecond)
		case perSecond == 0:
			s.limit = rate.Inf
		default:
			s.limit = rate.Limit(perSecond)
		}
		return nil
	}
}

// WithNames enables hostname lookups for newly discovered hosts.
func WithNames(n NameLookup) Option {
	return func(s *Scanner) error {
		s.names = n
		return nil
	}
}

// WithRand sets the random source used for host bearings.
func WithRand(r *rand.Rand) Option {
	return func(s *Scanner) error {
		s.rand = r
		return nil
	}
}

// New creates a Scanner probing checks and recording results in reg.
// Distances are scaled by the radius held in state.
func New(reg *registry.Registry, state *radar.State, checks []check.Check, logger *logrus.Logger, opts ...Option) (*Scanner, error) {
	if reg == nil || state == nil {
		return nil, fmt.Errorf("scanner: registry and state are required")
	}
	if len(checks) == 0 {
		return nil, fmt.Errorf("scanner: at least one check is required")
	}

	s := &Scanner{
		registry: reg,
		state:    state,
		checks:   checks,
		logger:   logger,
		interval: DefaultInterval,
		workers:  DefaultWorkers,
		limit:    rate.Limit(DefaultRate),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("scanner: %w", err)
		}
	}

	return s, nil
}

// Run sweeps until ctx is cancelled, pausing for the interval between sweeps.
func (s *Scanner) Run(ctx context.Context) {
	defer s.lookups.Wait()

	s.logger.Infof("Scanner started: %d targets, interval %v", len(s.checks), s.interval)
	for {
		if ctx.Err() != nil {
			s.logger.Info("Scanner received shutdown signal.")
			return
		}

		res := s.Sweep(ctx)
		if res.Cancelled {
			s.logger.Info("Scanner received shutdown signal during sweep.")
			return
		}
		online, offline := s.registry.Counts()
		s.logger.Infof("Sweep finished in %v: %d/%d answered, %d online, %d offline",
			res.Duration.Round(time.Millisecond), res.Found, res.Probed, online, offline)

		select {
		case <-time.After(s.interval):
		case <-ctx.Done():
			s.logger.Info("Scanner received shutdown signal.")
			return
		}
	}
}

// Sweep probes every target once and updates the registry. A sweep cut
// short by ctx does not mark anything offline.
func (s *Scanner) Sweep(ctx context.Context) SweepResult {
	start := time.Now()
	limiter := rate.NewLimiter(s.limit, s.workers)

	var mu sync.Mutex
	found := make(map[string]struct{})
	probed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, chk := range s.checks {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		probed++
		g.Go(func() error {
			res := chk.Run(gctx)
			if !res.Success {
				s.logger.Debugf("Probe %s failed: %v", chk.Target(), res.Err)
				return nil
			}
			s.record(ctx, chk.Target(), res)

			mu.Lock()
			found[chk.Target()] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	result := SweepResult{
		Probed:   probed,
		Found:    len(found),
		Duration: time.Since(start),
	}
	if ctx.Err() != nil {
		result.Cancelled = true
		return result
	}

	s.registry.MarkOffline(found)
	return result
}

// record places a responding host on the radar.
func (s *Scanner) record(ctx context.Context, address string, res check.Result) {
	pos := ComputePosition(res.Latency, s.state.Radius(), s.bearing())
	seenAt := res.Timestamp.Add(res.Latency)

	created := s.registry.Upsert(address, pos, res.Latency, seenAt)
	s.logger.Debugf("Host %s answered in %v", address, res.Latency)
	if created {
		s.logger.Infof("Discovered host %s (latency %v)", address, res.Latency)
		s.lookupName(ctx, address)
	}
}

func (s *Scanner) lookupName(ctx context.Context, address string) {
	if s.names == nil {
		return
	}
	s.lookups.Add(1)
	go func() {
		defer s.lookups.Done()
		name, err := s.names.Lookup(ctx, address)
		if err != nil {
			s.logger.Debugf("No hostname for %s: %v", address, err)
			return
		}
		s.registry.SetHostname(address, name)
		s.logger.Debugf("Host %s is %s", address, name)
	}()
}

// bearing returns a uniformly random angle in [0, 2π).
func (s *Scanner) bearing() float64 {
	if s.rand == nil {
		return rand.Float64() * radar.FullTurn
	}
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rand.Float64() * radar.FullTurn
}

// ComputePosition converts a latency and bearing into a radar offset.
// The distance is latency/FullScaleLatency of the radius, capped at the
// radius, and truncated to whole render units.
func ComputePosition(latency time.Duration, radius int, angle float64) host.Position {
	dist := Distance(latency, radius)
	return host.Position{
		X: int(float64(dist) * math.Cos(angle)),
		Y: int(float64(dist) * math.Sin(angle)),
	}
}

// Distance returns min(radius, latency_ms/120 * radius) in whole units.
func Distance(latency time.Duration, radius int) int {
	if latency < 0 {
		latency = 0
	}
	scaled := float64(latency) / float64(FullScaleLatency) * float64(radius)
	return int(math.Min(float64(radius), scaled))
}
