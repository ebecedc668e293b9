package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Xenebia/Radar-Scan/pkg/host"
)

// handlePrometheus writes Prometheus-formatted metrics for the radar and
// every known host.
func (s *Server) handlePrometheus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")

	hosts := s.registry.Snapshot()

	w.Write([]byte("# HELP radar_radius Current radar radius in render units.\n"))
	w.Write([]byte("# TYPE radar_radius gauge\n"))
	w.Write(fmt.Appendf([]byte{}, "radar_radius %d\n", s.state.Radius()))

	counts := map[HostStatus]int{HostStatusUp: 0, HostStatusFading: 0, HostStatusDown: 0}
	for _, h := range hosts {
		counts[computeHostStatus(h)]++
	}
	w.Write([]byte("# HELP radar_hosts Number of known hosts by status.\n"))
	w.Write([]byte("# TYPE radar_hosts gauge\n"))
	for _, status := range []HostStatus{HostStatusUp, HostStatusFading, HostStatusDown} {
		w.Write(fmt.Appendf([]byte{}, "radar_hosts{status=\"%s\"} %d\n", status, counts[status]))
	}

	families := []struct {
		name  string
		help  string
		value func(h host.Host) int64
	}{
		{"radar_host_online", "Whether the host answered the last sweep (1=up, 0=down).", func(h host.Host) int64 {
			if h.Online {
				return 1
			}
			return 0
		}},
		{"radar_host_fade", "Marker opacity of the host (0-255).", func(h host.Host) int64 {
			return int64(h.Fade)
		}},
		{"radar_host_latency_us", "Latest round-trip time in microseconds.", func(h host.Host) int64 {
			return h.Latency.Microseconds()
		}},
	}

	// Each family's samples must stay contiguous.
	for _, f := range families {
		w.Write(fmt.Appendf([]byte{}, "# HELP %s %s\n", f.name, f.help))
		w.Write(fmt.Appendf([]byte{}, "# TYPE %s gauge\n", f.name))
		for _, h := range hosts {
			w.Write(fmt.Appendf([]byte{}, "%s{address=\"%s\"} %d\n", f.name, sanitizePrometheusLabel(h.Address), f.value(h)))
		}
	}
}

// sanitizePrometheusLabel escapes backslash, double-quote, and newline
// characters in a Prometheus label value as the text exposition format requires.
func sanitizePrometheusLabel(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
