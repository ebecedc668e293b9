package radar

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultPeriod is the clock tick interval.
	DefaultPeriod = 25 * time.Millisecond

	// DefaultAngleStep is how far the sweep moves per tick, in radians.
	DefaultAngleStep = 0.04

	// DefaultFadeStep is how much offline hosts fade per tick.
	DefaultFadeStep = 2
)

// Decayer fades offline hosts. The host registry implements it.
type Decayer interface {
	DecayOffline(step int)
}

// Clock advances the sweep angle and decays offline hosts on a fixed period.
// After every tick it signals Redraw.
type Clock struct {
	state     *State
	decayer   Decayer
	logger    *logrus.Logger
	period    time.Duration
	angleStep float64
	fadeStep  int
	redraw    chan struct{}
}

// ClockOption is a functional option for configuring a Clock.
type ClockOption func(*Clock) error

// WithPeriod sets the tick interval.
func WithPeriod(d time.Duration) ClockOption {
	return func(c *Clock) error {
		if d <= 0 {
			return fmt.Errorf("period must be positive, got %v", d)
		}
		c.period = d
		return nil
	}
}

// WithFadeStep sets how much offline hosts fade per tick.
func WithFadeStep(step int) ClockOption {
	return func(c *Clock) error {
		if step < 0 {
			return fmt.Errorf("fade step must not be negative, got %d", step)
		}
		c.fadeStep = step
		return nil
	}
}

// NewClock creates a Clock driving state and decayer.
func NewClock(state *State, decayer Decayer, logger *logrus.Logger, opts ...ClockOption) (*Clock, error) {
	if state == nil || decayer == nil {
		return nil, fmt.Errorf("clock: state and decayer are required")
	}

	c := &Clock{
		state:     state,
		decayer:   decayer,
		logger:    logger,
		period:    DefaultPeriod,
		angleStep: DefaultAngleStep,
		fadeStep:  DefaultFadeStep,
		redraw:    make(chan struct{}, 1),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("clock: %w", err)
		}
	}

	return c, nil
}

// Redraw delivers a signal after each tick. Signals coalesce: a slow
// reader sees at most one pending redraw.
func (c *Clock) Redraw() <-chan struct{} {
	return c.redraw
}

// Tick performs a single clock step.
func (c *Clock) Tick() {
	c.state.Advance(c.angleStep)
	c.decayer.DecayOffline(c.fadeStep)

	select {
	case c.redraw <- struct{}{}:
	default:
	}
}

// Run ticks until ctx is cancelled.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	c.logger.Debugf("Radar clock started with period %v", c.period)
	for {
		select {
		case <-ticker.C:
			c.Tick()
		case <-ctx.Done():
			c.logger.Debug("Radar clock received shutdown signal.")
			return
		}
	}
}
