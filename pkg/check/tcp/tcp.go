// Package tcp implements a connect-based reachability probe.
//
// A host counts as reachable when any configured port either accepts the
// connection or actively refuses it: both mean something at that address
// answered. Only silence until the timeout counts as unreachable. This works
// without raw sockets or elevated privileges.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/Xenebia/Radar-Scan/pkg/check"
)

const (
	// TypeName is the registered name for this check type.
	TypeName = "tcp"

	// DefaultTimeout is the default connect timeout.
	DefaultTimeout = 600 * time.Millisecond
)

// DefaultPorts are tried when no ports are configured.
var DefaultPorts = []int{7, 22, 80, 443, 445}

// Check implements check.Check by dialing TCP ports on the target.
type Check struct {
	target  string
	ports   []int
	timeout time.Duration
	dialer  *net.Dialer
}

// Option is a functional option for configuring a TCP Check.
type Option func(*Check) error

// WithTimeout sets the connect timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Check) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithPorts sets the ports to dial.
func WithPorts(ports []int) Option {
	return func(c *Check) error {
		if len(ports) == 0 {
			return fmt.Errorf("at least one port is required")
		}
		for _, p := range ports {
			if p < 1 || p > 65535 {
				return fmt.Errorf("port %d out of range", p)
			}
		}
		c.ports = append([]int(nil), ports...)
		return nil
	}
}

// New creates a TCP Check for the given target.
func New(target string, opts ...Option) (*Check, error) {
	if target == "" {
		return nil, fmt.Errorf("tcp: target must not be empty")
	}

	c := &Check{
		target:  target,
		ports:   DefaultPorts,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("tcp: %w", err)
		}
	}

	c.dialer = &net.Dialer{Timeout: c.timeout}
	return c, nil
}

// Type returns the check type name.
func (c *Check) Type() string {
	return TypeName
}

// Target returns the probed address.
func (c *Check) Target() string {
	return c.target
}

// Run dials every configured port in parallel and reports the first answer.
func (c *Check) Run(ctx context.Context) check.Result {
	now := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type answer struct {
		latency time.Duration
		err     error
	}
	answers := make(chan answer, len(c.ports))

	for _, port := range c.ports {
		go func(port int) {
			addr := net.JoinHostPort(c.target, strconv.Itoa(port))
			start := time.Now()
			conn, err := c.dialer.DialContext(ctx, "tcp", addr)
			elapsed := time.Since(start)
			if err == nil {
				conn.Close()
				answers <- answer{latency: elapsed}
				return
			}
			if refused(err) {
				answers <- answer{latency: elapsed}
				return
			}
			answers <- answer{err: err}
		}(port)
	}

	var lastErr error
	for range c.ports {
		a := <-answers
		if a.err == nil {
			return check.Succeeded(now, a.latency)
		}
		lastErr = a.err
	}
	return check.Failed(now, fmt.Errorf("tcp %s: %w", c.target, lastErr))
}

// refused reports whether the peer actively rejected the connection.
func refused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}

// Factory creates a TCP Check from a config map.
// Required key: "target" (string).
// Optional keys: "timeout" (duration string or time.Duration),
// "ports" ([]int, or []any of numbers as decoded from JSON/YAML).
func Factory(config map[string]any) (check.Check, error) {
	target, err := check.TargetSetting(config)
	if err != nil {
		return nil, fmt.Errorf("tcp: %w", err)
	}

	var opts []Option

	timeout, ok, err := check.DurationSetting(config, "timeout")
	if err != nil {
		return nil, fmt.Errorf("tcp: %w", err)
	}
	if ok {
		opts = append(opts, WithTimeout(timeout))
	}

	if v, ok := config["ports"]; ok {
		ports, err := parsePorts(v)
		if err != nil {
			return nil, fmt.Errorf("tcp: %w", err)
		}
		opts = append(opts, WithPorts(ports))
	}

	return New(target, opts...)
}

func parsePorts(v any) ([]int, error) {
	switch p := v.(type) {
	case []int:
		return p, nil
	case []any:
		ports := make([]int, 0, len(p))
		for _, item := range p {
			switch n := item.(type) {
			case int:
				ports = append(ports, n)
			case float64:
				ports = append(ports, int(n))
			default:
				return nil, fmt.Errorf("'ports' entries must be numbers, got %T", item)
			}
		}
		return ports, nil
	}
	return nil, fmt.Errorf("'ports' must be a list of numbers, got %T", v)
}
