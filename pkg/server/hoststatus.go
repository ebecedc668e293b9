package server

import (
	"github.com/Xenebia/Radar-Scan/pkg/host"
)

// HostStatus is the display state of a host, included in API responses.
// The string values are stable and map onto marker colours:
// "up" (solid green), "fading" (red, fading), "down" (no marker).
type HostStatus string

const (
	// HostStatusUp means the host answered the last sweep.
	HostStatusUp HostStatus = "up"
	// HostStatusFading means the host went silent and its marker is fading.
	HostStatusFading HostStatus = "fading"
	// HostStatusDown means the marker has faded out completely.
	HostStatusDown HostStatus = "down"
)

// computeHostStatus derives the display state of a host.
func computeHostStatus(h host.Host) HostStatus {
	switch {
	case h.Online:
		return HostStatusUp
	case h.Fade > 0:
		return HostStatusFading
	default:
		return HostStatusDown
	}
}
