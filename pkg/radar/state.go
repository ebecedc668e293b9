// Package radar holds the sweep angle and radius, and the clock that
// advances the sweep and fades out hosts that went offline.
package radar

import (
	"math"
	"sync/atomic"

	"github.com/Xenebia/Radar-Scan/pkg/host"
)

const (
	// MinRadius and MaxRadius bound the radar radius.
	MinRadius = 120
	MaxRadius = 260

	// DefaultRadius is the radius at startup.
	DefaultRadius = 200

	// FullTurn is one revolution of the sweep, in radians.
	FullTurn = 2 * math.Pi
)

// View is what a renderer needs from the radar: host snapshots, the sweep
// angle, the radius, and a way to change the radius.
type View interface {
	Hosts() []host.Host
	Angle() float64
	Radius() int
	SetRadius(r int)
}

// State is the process-wide radar state. Angle and radius are stored as
// atomics so the clock, the scanner and renderers never block each other.
type State struct {
	angle  atomic.Uint64 // math.Float64bits of the angle
	radius atomic.Int64
}

// NewState creates a State with angle 0 and the given radius, clamped.
func NewState(radius int) *State {
	s := &State{}
	s.SetRadius(radius)
	return s
}

// Angle returns the current sweep angle in [0, 2π).
func (s *State) Angle() float64 {
	return math.Float64frombits(s.angle.Load())
}

// Radius returns the current radar radius.
func (s *State) Radius() int {
	return int(s.radius.Load())
}

// SetRadius stores r clamped to [MinRadius, MaxRadius].
func (s *State) SetRadius(r int) {
	s.radius.Store(int64(ClampRadius(r)))
}

// Advance moves the sweep angle forward by step, wrapping at a full turn,
// and returns the new angle. Only the clock calls this.
func (s *State) Advance(step float64) float64 {
	for {
		old := s.angle.Load()
		next := math.Mod(math.Float64frombits(old)+step, FullTurn)
		if next < 0 {
			next += FullTurn
		}
		if s.angle.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}

// ClampRadius bounds r to [MinRadius, MaxRadius].
func ClampRadius(r int) int {
	switch {
	case r < MinRadius:
		return MinRadius
	case r > MaxRadius:
		return MaxRadius
	}
	return r
}
