package server

import (
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Xenebia/Radar-Scan/pkg/config"
	"github.com/Xenebia/Radar-Scan/pkg/host"
	"github.com/Xenebia/Radar-Scan/pkg/radar"
	"github.com/Xenebia/Radar-Scan/pkg/registry"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestServer returns a server with a registry and state but no
// scanner or clock, for exercising handlers.
func newTestServer() *Server {
	return &Server{
		registry: registry.New(),
		state:    radar.NewState(radar.DefaultRadius),
		logger:   testLogger(),
	}
}

func TestNewServer_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Probe.Type = "carrier-pigeon"

	if _, err := NewServer(cfg, testLogger()); err == nil {
		t.Fatal("expected error for unknown probe type")
	}
}

func TestNewServer_UsesConfiguredPrefix(t *testing.T) {
	cfg := config.Default()
	cfg.Prefix = "10.1.2."
	cfg.Probe.Type = "tcp"
	cfg.Names.Enabled = false
	cfg.Server.Enabled = false

	s, err := NewServer(cfg, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Prefix() != "10.1.2." {
		t.Errorf("expected prefix 10.1.2., got %q", s.Prefix())
	}
	if s.Radius() != radar.DefaultRadius {
		t.Errorf("expected radius %d, got %d", radar.DefaultRadius, s.Radius())
	}
}

func TestNewServer_WithNames(t *testing.T) {
	cfg := config.Default()
	cfg.Prefix = "10.1.2."
	cfg.Probe.Type = "tcp"
	cfg.Server.Enabled = false

	if _, err := NewServer(cfg, testLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServer_ViewMethods(t *testing.T) {
	s := newTestServer()
	s.registry.Upsert("192.168.1.9", host.Position{X: 3, Y: 4}, time.Millisecond, time.Now())

	hosts := s.Hosts()
	if len(hosts) != 1 || hosts[0].Address != "192.168.1.9" {
		t.Fatalf("unexpected hosts: %+v", hosts)
	}

	s.SetRadius(150)
	if s.Radius() != 150 {
		t.Errorf("expected radius 150, got %d", s.Radius())
	}

	s.SetRadius(1000)
	if s.Radius() != radar.MaxRadius {
		t.Errorf("expected radius clamped to %d, got %d", radar.MaxRadius, s.Radius())
	}

	s.SetRadius(0)
	if s.Radius() != radar.MinRadius {
		t.Errorf("expected radius clamped to %d, got %d", radar.MinRadius, s.Radius())
	}
}

func TestServer_StartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sweep of loopback subnet in short mode")
	}

	cfg := config.Default()
	cfg.Prefix = "127.0.0."
	cfg.Probe.Type = "tcp"
	cfg.Probe.Timeout = 200 * time.Millisecond
	cfg.Probe.TCPPorts = []int{1}
	cfg.Names.Enabled = false
	cfg.Server.ListenPort = "0"

	s, err := NewServer(cfg, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	resp, err := http.Get("http://" + s.listener.Addr().String() + "/api/radius")
	if err != nil {
		s.Stop()
		t.Fatalf("API request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from the API, got %d", resp.StatusCode)
	}

	select {
	case <-s.Redraw():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a redraw signal after start")
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, ok := s.registry.Get("127.0.0.1"); ok {
			break
		}
		if time.Now().After(deadline) {
			s.Stop()
			t.Fatal("expected 127.0.0.1 to be discovered")
		}
		time.Sleep(50 * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	held, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer held.Close()
	_, port, err := net.SplitHostPort(held.Addr().String())
	if err != nil {
		t.Fatalf("split %q: %v", held.Addr(), err)
	}

	s := newTestServer()
	s.apiEnabled = true
	s.listenPort = port

	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("expected Start to fail while the port is held")
	}
	if s.cancel != nil {
		t.Error("scanner and clock should not start when the API cannot bind")
	}

	s.Stop()
}
