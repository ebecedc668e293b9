package scanner

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Xenebia/Radar-Scan/pkg/check"
	"github.com/Xenebia/Radar-Scan/pkg/radar"
	"github.com/Xenebia/Radar-Scan/pkg/registry"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// network is a fake subnet: addresses listed in up answer with their latency.
type network struct {
	mu    sync.Mutex
	up    map[string]time.Duration
	calls map[string]int
}

func newNetwork(up map[string]time.Duration) *network {
	return &network{up: up, calls: make(map[string]int)}
}

func (n *network) set(up map[string]time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.up = up
}

func (n *network) probe(addr string) check.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[addr]++
	if lat, ok := n.up[addr]; ok {
		return check.Succeeded(time.Now(), lat)
	}
	return check.Failed(time.Now(), errors.New("timeout"))
}

type fakeCheck struct {
	net    *network
	target string
}

func (f *fakeCheck) Type() string                       { return "fake" }
func (f *fakeCheck) Target() string                     { return f.target }
func (f *fakeCheck) Run(_ context.Context) check.Result { return f.net.probe(f.target) }

func checksFor(n *network, addrs ...string) []check.Check {
	out := make([]check.Check, len(addrs))
	for i, a := range addrs {
		out[i] = &fakeCheck{net: n, target: a}
	}
	return out
}

type stubNames struct {
	mu    sync.Mutex
	calls []string
}

func (s *stubNames) Lookup(_ context.Context, address string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, address)
	return "host-" + address, nil
}

func newScanner(t *testing.T, reg *registry.Registry, state *radar.State, checks []check.Check, opts ...Option) *Scanner {
	t.Helper()
	opts = append([]Option{WithRate(0), WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	s, err := New(reg, state, checks, testLogger(), opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestNew_Validation(t *testing.T) {
	n := newNetwork(nil)
	checks := checksFor(n, "10.0.0.1")

	if _, err := New(nil, radar.NewState(200), checks, testLogger()); err == nil {
		t.Error("expected error for nil registry")
	}
	if _, err := New(registry.New(), nil, checks, testLogger()); err == nil {
		t.Error("expected error for nil state")
	}
	if _, err := New(registry.New(), radar.NewState(200), nil, testLogger()); err == nil {
		t.Error("expected error for no checks")
	}
	if _, err := New(registry.New(), radar.NewState(200), checks, testLogger(), WithWorkers(0)); err == nil {
		t.Error("expected error for zero workers")
	}
	if _, err := New(registry.New(), radar.NewState(200), checks, testLogger(), WithRate(-1)); err == nil {
		t.Error("expected error for negative rate")
	}
	if _, err := New(registry.New(), radar.NewState(200), checks, testLogger(), WithInterval(-time.Second)); err == nil {
		t.Error("expected error for negative interval")
	}
}

func TestDistance(t *testing.T) {
	cases := []struct {
		latency time.Duration
		radius  int
		want    int
	}{
		{0, 200, 0},
		{60 * time.Millisecond, 200, 100},
		{120 * time.Millisecond, 200, 200},
		{500 * time.Millisecond, 200, 200},
		{30 * time.Millisecond, 120, 30},
		{90 * time.Millisecond, 260, 195},
		{-time.Millisecond, 200, 0},
	}
	for _, c := range cases {
		if got := Distance(c.latency, c.radius); got != c.want {
			t.Errorf("Distance(%v, %d) = %d, want %d", c.latency, c.radius, got, c.want)
		}
	}
}

func TestDistance_MonotonicAndBounded(t *testing.T) {
	prev := -1
	for ms := 0; ms <= 400; ms++ {
		d := Distance(time.Duration(ms)*time.Millisecond, 200)
		if d < prev {
			t.Fatalf("distance decreased at %dms: %d < %d", ms, d, prev)
		}
		if d > 200 {
			t.Fatalf("distance %d exceeds radius at %dms", d, ms)
		}
		prev = d
	}
}

func TestComputePosition(t *testing.T) {
	pos := ComputePosition(60*time.Millisecond, 200, 0)
	if pos.X != 100 || pos.Y != 0 {
		t.Errorf("expected (100, 0), got %+v", pos)
	}

	pos = ComputePosition(60*time.Millisecond, 200, math.Pi/2)
	if pos.X != 0 || pos.Y != 100 {
		t.Errorf("expected (0, 100), got %+v", pos)
	}

	for _, angle := range []float64{0.3, 1.7, 3.9, 5.5} {
		pos = ComputePosition(time.Second, 200, angle)
		if d := pos.Distance(); d > 200 {
			t.Errorf("angle %f: distance %f exceeds radius", angle, d)
		}
	}
}

func TestSweep_DiscoversHost(t *testing.T) {
	reg := registry.New()
	n := newNetwork(map[string]time.Duration{"10.0.0.5": 60 * time.Millisecond})
	s := newScanner(t, reg, radar.NewState(200), checksFor(n, "10.0.0.4", "10.0.0.5", "10.0.0.6"))

	res := s.Sweep(context.Background())
	if res.Probed != 3 || res.Found != 1 {
		t.Errorf("expected 3 probed / 1 found, got %+v", res)
	}

	if reg.Len() != 1 {
		t.Fatalf("expected only the responding host in the registry, got %d", reg.Len())
	}
	h, ok := reg.Get("10.0.0.5")
	if !ok {
		t.Fatal("expected 10.0.0.5 in registry")
	}
	if !h.Online {
		t.Error("expected host to be online")
	}
	if h.Fade != 255 {
		t.Errorf("expected fade 255, got %d", h.Fade)
	}
	if d := h.Position.Distance(); math.Abs(d-100) > 2 {
		t.Errorf("expected distance ≈100, got %f", d)
	}
	if h.Latency != 60*time.Millisecond {
		t.Errorf("expected latency 60ms, got %v", h.Latency)
	}
}

func TestSweep_ProbesEachAddressOnce(t *testing.T) {
	n := newNetwork(map[string]time.Duration{})
	addrs := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"}
	s := newScanner(t, registry.New(), radar.NewState(200), checksFor(n, addrs...), WithWorkers(2))

	s.Sweep(context.Background())

	for _, a := range addrs {
		if n.calls[a] != 1 {
			t.Errorf("expected one probe of %s, got %d", a, n.calls[a])
		}
	}
}

func TestSweep_CapsAtRadius(t *testing.T) {
	reg := registry.New()
	n := newNetwork(map[string]time.Duration{"10.0.0.5": 900 * time.Millisecond})
	s := newScanner(t, reg, radar.NewState(150), checksFor(n, "10.0.0.5"))

	s.Sweep(context.Background())

	h, _ := reg.Get("10.0.0.5")
	if d := h.Position.Distance(); d > 150 || d < 148 {
		t.Errorf("expected distance capped near 150, got %f", d)
	}
}

func TestSweep_HostDisappears(t *testing.T) {
	reg := registry.New()
	n := newNetwork(map[string]time.Duration{
		"10.0.0.5": 60 * time.Millisecond,
		"10.0.0.6": 10 * time.Millisecond,
	})
	s := newScanner(t, reg, radar.NewState(200), checksFor(n, "10.0.0.5", "10.0.0.6"))

	s.Sweep(context.Background())
	before, _ := reg.Get("10.0.0.5")

	n.set(map[string]time.Duration{"10.0.0.6": 10 * time.Millisecond})
	s.Sweep(context.Background())

	after, _ := reg.Get("10.0.0.5")
	if after.Online {
		t.Error("expected 10.0.0.5 to be offline after missing a sweep")
	}
	if after.Position != before.Position {
		t.Errorf("expected position unchanged, got %+v then %+v", before.Position, after.Position)
	}
	if after.Fade != before.Fade {
		t.Errorf("expected fade unchanged, got %d then %d", before.Fade, after.Fade)
	}

	still, _ := reg.Get("10.0.0.6")
	if !still.Online {
		t.Error("expected 10.0.0.6 to stay online")
	}
}

func TestSweep_RadiusChangeAppliesNextSweep(t *testing.T) {
	reg := registry.New()
	state := radar.NewState(200)
	n := newNetwork(map[string]time.Duration{"10.0.0.5": 120 * time.Millisecond})
	s := newScanner(t, reg, state, checksFor(n, "10.0.0.5"))

	s.Sweep(context.Background())
	state.SetRadius(120)
	s.Sweep(context.Background())

	h, _ := reg.Get("10.0.0.5")
	if d := h.Position.Distance(); d > 120 || d < 118 {
		t.Errorf("expected distance near new radius 120, got %f", d)
	}
}

func TestSweep_CancelledDoesNotMarkOffline(t *testing.T) {
	reg := registry.New()
	n := newNetwork(map[string]time.Duration{"10.0.0.5": time.Millisecond})
	s := newScanner(t, reg, radar.NewState(200), checksFor(n, "10.0.0.5"))
	s.Sweep(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := s.Sweep(ctx)

	if !res.Cancelled {
		t.Error("expected sweep to report cancellation")
	}
	h, _ := reg.Get("10.0.0.5")
	if !h.Online {
		t.Error("a cancelled sweep must not mark hosts offline")
	}
}

func TestSweep_NamesLookedUpOnce(t *testing.T) {
	reg := registry.New()
	names := &stubNames{}
	n := newNetwork(map[string]time.Duration{"10.0.0.5": time.Millisecond})
	s := newScanner(t, reg, radar.NewState(200), checksFor(n, "10.0.0.5"), WithNames(names))

	s.Sweep(context.Background())
	s.Sweep(context.Background())
	s.lookups.Wait()

	names.mu.Lock()
	calls := len(names.calls)
	names.mu.Unlock()
	if calls != 1 {
		t.Errorf("expected one lookup for a new host, got %d", calls)
	}

	h, _ := reg.Get("10.0.0.5")
	if h.Hostname != "host-10.0.0.5" {
		t.Errorf("expected hostname to be recorded, got %q", h.Hostname)
	}
}

func TestFadeScenario(t *testing.T) {
	reg := registry.New()
	state := radar.NewState(200)
	n := newNetwork(map[string]time.Duration{"10.0.0.5": 60 * time.Millisecond})
	s := newScanner(t, reg, state, checksFor(n, "10.0.0.5"))

	clock, err := radar.NewClock(state, reg, testLogger())
	if err != nil {
		t.Fatalf("NewClock failed: %v", err)
	}

	s.Sweep(context.Background())
	n.set(nil)
	s.Sweep(context.Background())

	for i := 0; i < 10; i++ {
		clock.Tick()
	}
	h, _ := reg.Get("10.0.0.5")
	if h.Online || h.Fade != 235 {
		t.Errorf("after 10 ticks: expected offline with fade 235, got online=%v fade=%d", h.Online, h.Fade)
	}

	for i := 10; i < 128; i++ {
		clock.Tick()
	}
	h, _ = reg.Get("10.0.0.5")
	if h.Fade != 0 {
		t.Errorf("after 128 ticks: expected fade 0, got %d", h.Fade)
	}
	if h.Visible() {
		t.Error("expected faded host not to be drawn")
	}
	if len(reg.Snapshot()) != 1 {
		t.Error("expected faded host to remain in the snapshot")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	reg := registry.New()
	n := newNetwork(map[string]time.Duration{"10.0.0.5": time.Millisecond})
	s := newScanner(t, reg, radar.NewState(200), checksFor(n, "10.0.0.5"), WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for reg.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("first sweep did not complete")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scanner did not stop during the interval wait")
	}
}
