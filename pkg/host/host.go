package host

import (
	"math"
	"time"
)

// MaxFade is the fade value of an online host.
const MaxFade = 255

// Position is an offset from the radar centre in render units.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Distance returns the euclidean distance of the position from the centre.
func (p Position) Distance() float64 {
	return math.Hypot(float64(p.X), float64(p.Y))
}

// Host represents a discovered address and its liveness.
type Host struct {
	Address  string        `json:"address"`            // Dotted quad, the host identity
	Hostname string        `json:"hostname,omitempty"` // Reverse lookup result, if any
	Position Position      `json:"position"`           // Offset from the radar centre
	Online   bool          `json:"online"`             // Reachable in the last sweep
	Fade     int           `json:"fade"`               // Marker opacity, 0-255
	Latency  time.Duration `json:"latency"`            // Latest round-trip time
	LastSeen time.Time     `json:"lastseen"`           // Time of the latest successful probe
}

// Visible reports whether a marker should be drawn for the host.
// Online hosts are drawn solid, offline hosts fade out until Fade hits zero.
// Hosts that are not visible are still listed.
func (h Host) Visible() bool {
	return h.Online || h.Fade > 0
}

// Label returns the hostname when known, otherwise the address.
func (h Host) Label() string {
	if h.Hostname != "" {
		return h.Hostname
	}
	return h.Address
}
