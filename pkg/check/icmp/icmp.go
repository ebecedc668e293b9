// Package icmp implements an ICMP echo reachability probe.
//
// Privileged processes use a raw ip4:icmp socket. Everyone else falls back
// to an unprivileged udp4 "ping socket", where the kernel owns the echo
// identifier. Replies are matched on source address, sequence number and
// a payload derived from the target address.
package icmp

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"time"

	"github.com/jpillora/ipmath"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/Xenebia/Radar-Scan/pkg/check"
)

const (
	// TypeName is the registered name for this check type.
	TypeName = "icmp"

	// DefaultTimeout is the default echo timeout.
	DefaultTimeout = 600 * time.Millisecond

	protocolICMP = 1
)

// Check implements check.Check using a single ICMP echo request.
type Check struct {
	target  net.IP
	timeout time.Duration
	udp     bool
	source  string
}

// Option is a functional option for configuring an ICMP Check.
type Option func(*Check) error

// WithTimeout sets the echo timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Check) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithUDP selects the unprivileged udp4 socket instead of a raw socket.
func WithUDP(udp bool) Option {
	return func(c *Check) error {
		c.udp = udp
		return nil
	}
}

// WithSource binds the probe socket to a local IPv4 address.
func WithSource(addr string) Option {
	return func(c *Check) error {
		if net.ParseIP(addr).To4() == nil {
			return fmt.Errorf("source %q is not an IPv4 address", addr)
		}
		c.source = addr
		return nil
	}
}

// New creates an ICMP Check for an IPv4 target. Non-root processes default
// to udp4 sockets.
func New(target string, opts ...Option) (*Check, error) {
	ip := net.ParseIP(target).To4()
	if ip == nil {
		return nil, fmt.Errorf("icmp: target %q is not an IPv4 address", target)
	}

	c := &Check{
		target:  ip,
		timeout: DefaultTimeout,
		udp:     os.Geteuid() != 0,
		source:  "0.0.0.0",
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("icmp: %w", err)
		}
	}

	return c, nil
}

// Type returns the check type name.
func (c *Check) Type() string {
	return TypeName
}

// Target returns the probed address.
func (c *Check) Target() string {
	return c.target.String()
}

// Run sends one echo request and waits for the matching reply.
func (c *Check) Run(ctx context.Context) check.Result {
	now := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return check.Failed(now, fmt.Errorf("icmp %s: %w", c.target, err))
	}

	network := "ip4:icmp"
	var dst net.Addr = &net.IPAddr{IP: c.target}
	if c.udp {
		network = "udp4"
		dst = &net.UDPAddr{IP: c.target}
	}

	conn, err := icmp.ListenPacket(network, c.source)
	if err != nil {
		return check.Failed(now, fmt.Errorf("icmp %s: listen %s: %w", c.target, network, err))
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return check.Failed(now, fmt.Errorf("icmp %s: %w", c.target, err))
	}

	// unblock the read early if the parent context goes away
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	payload := ipmath.Hash(c.target)
	seq := rand.IntN(1 << 16)
	msg, err := (&icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  seq,
			Data: payload,
		},
	}).Marshal(nil)
	if err != nil {
		return check.Failed(now, fmt.Errorf("icmp %s: marshal: %w", c.target, err))
	}

	sent := time.Now()
	if _, err := conn.WriteTo(msg, dst); err != nil {
		return check.Failed(now, fmt.Errorf("icmp %s: send: %w", c.target, err))
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			return check.Failed(now, fmt.Errorf("icmp %s: %w", c.target, err))
		}
		rtt := time.Since(sent)

		if !c.target.Equal(peerIP(peer)) {
			continue
		}
		if matchReply(buf[:n], seq, payload) {
			return check.Succeeded(now, rtt)
		}
	}
}

// matchReply reports whether b is the echo reply to our request.
func matchReply(b []byte, seq int, payload []byte) bool {
	msg, err := icmp.ParseMessage(protocolICMP, b)
	if err != nil || msg.Type != ipv4.ICMPTypeEchoReply {
		return false
	}
	reply, ok := msg.Body.(*icmp.Echo)
	if !ok {
		return false
	}
	return reply.Seq == seq && bytes.Equal(reply.Data, payload)
}

func peerIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP
	case *net.IPAddr:
		return a.IP
	}
	return nil
}

// Factory creates an ICMP Check from a config map.
// Required key: "target" (string).
// Optional keys: "timeout" (duration string or time.Duration), "udp" (bool),
// "source" (string).
func Factory(config map[string]any) (check.Check, error) {
	target, err := check.TargetSetting(config)
	if err != nil {
		return nil, fmt.Errorf("icmp: %w", err)
	}

	var opts []Option

	timeout, ok, err := check.DurationSetting(config, "timeout")
	if err != nil {
		return nil, fmt.Errorf("icmp: %w", err)
	}
	if ok {
		opts = append(opts, WithTimeout(timeout))
	}

	if v, ok := config["udp"]; ok {
		udp, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("icmp: 'udp' must be a bool, got %T", v)
		}
		opts = append(opts, WithUDP(udp))
	}

	source, ok, err := check.StringSetting(config, "source")
	if err != nil {
		return nil, fmt.Errorf("icmp: %w", err)
	}
	if ok {
		opts = append(opts, WithSource(source))
	}

	return New(target, opts...)
}
