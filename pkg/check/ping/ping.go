// Package ping implements a reachability probe that shells out to the
// system ping binary.
//
// It parses the ping output for round-trip time and returns a
// check.Result carrying that latency.
package ping

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Xenebia/Radar-Scan/pkg/check"
)

const (
	// TypeName is the registered name for this check type.
	TypeName = "ping"

	// DefaultTimeout is the default ping timeout.
	DefaultTimeout = 600 * time.Millisecond
)

// Ping implements check.Check using the system ping command.
type Ping struct {
	target  string
	timeout time.Duration
	binary  string
}

// New creates a Ping check with the given target and options.
func New(target string, opts ...Option) (*Ping, error) {
	if target == "" {
		return nil, fmt.Errorf("ping: target must not be empty")
	}

	p := &Ping{
		target:  target,
		timeout: DefaultTimeout,
		binary:  "ping",
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("ping: %w", err)
		}
	}

	return p, nil
}

// Option is a functional option for configuring a Ping check.
type Option func(*Ping) error

// WithTimeout sets the ping timeout duration.
func WithTimeout(d time.Duration) Option {
	return func(p *Ping) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		p.timeout = d
		return nil
	}
}

// WithBinary sets the ping executable to run.
func WithBinary(path string) Option {
	return func(p *Ping) error {
		if path == "" {
			return fmt.Errorf("binary must not be empty")
		}
		p.binary = path
		return nil
	}
}

// Type returns the check type name.
func (p *Ping) Type() string {
	return TypeName
}

// Target returns the probed address.
func (p *Ping) Target() string {
	return p.target
}

// Run sends a single echo request and returns a Result.
// The whole command is killed once the timeout elapses.
func (p *Ping) Run(ctx context.Context) check.Result {
	now := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// -W only takes whole seconds on most systems; the context enforces the real bound.
	timeoutSec := fmt.Sprintf("%.0f", math.Max(1, math.Ceil(p.timeout.Seconds())))
	cmd := exec.CommandContext(ctx, p.binary, "-c", "1", "-W", timeoutSec, p.target)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return check.Failed(now, fmt.Errorf("ping %s: %w", p.target, err))
	}

	latency, err := parseOutput(out.String())
	if err != nil {
		return check.Failed(now, fmt.Errorf("ping %s: %w", p.target, err))
	}

	return check.Succeeded(now, latency)
}

// Factory creates a Ping check from a config map.
// Required key: "target" (string).
// Optional keys: "timeout" (duration string or time.Duration), "binary" (string).
func Factory(config map[string]any) (check.Check, error) {
	target, err := check.TargetSetting(config)
	if err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	var opts []Option

	timeout, ok, err := check.DurationSetting(config, "timeout")
	if err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	if ok {
		opts = append(opts, WithTimeout(timeout))
	}

	binary, ok, err := check.StringSetting(config, "binary")
	if err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	if ok {
		opts = append(opts, WithBinary(binary))
	}

	return New(target, opts...)
}

// parseOutput extracts the round-trip time from the reply line of a single
// echo, e.g. "64 bytes from 10.0.0.5: icmp_seq=1 ttl=64 time=0.412 ms".
// Linux and BSD ping both report milliseconds.
func parseOutput(output string) (time.Duration, error) {
	for _, line := range strings.Split(output, "\n") {
		_, rest, found := strings.Cut(line, "time=")
		if !found {
			continue
		}
		rtt, unit, _ := strings.Cut(strings.TrimSpace(rest), " ")
		if strings.HasSuffix(rtt, "ms") {
			rtt, unit = strings.TrimSuffix(rtt, "ms"), "ms"
		}
		if strings.TrimSpace(unit) != "ms" {
			return 0, fmt.Errorf("unexpected time unit %q", unit)
		}

		ms, err := strconv.ParseFloat(rtt, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse RTT %q: %w", rtt, err)
		}
		return time.Duration(ms * float64(time.Millisecond)), nil
	}
	return 0, fmt.Errorf("RTT not found in ping output")
}
