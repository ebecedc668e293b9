// Package names looks up hostnames for discovered addresses.
//
// A PTR query goes to the configured DNS server (usually the subnet's
// router) and, in parallel, to the host itself over multicast DNS. The
// first answer wins.
package names

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 2 * time.Second

	mdnsPort = "5353"
	dnsPort  = "53"
)

// Resolver performs reverse lookups.
type Resolver struct {
	server  string // host:port of the DNS server
	mdns    bool
	timeout time.Duration
	client  *dns.Client
}

// Option is a functional option for configuring a Resolver.
type Option func(*Resolver) error

// WithTimeout sets the lookup timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		r.timeout = d
		return nil
	}
}

// WithMDNS enables or disables the unicast mDNS query to the host itself.
func WithMDNS(enabled bool) Option {
	return func(r *Resolver) error {
		r.mdns = enabled
		return nil
	}
}

// New creates a Resolver that queries server. A server without a port
// gets port 53.
func New(server string, opts ...Option) (*Resolver, error) {
	if server == "" {
		return nil, fmt.Errorf("names: server must not be empty")
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, dnsPort)
	}

	r := &Resolver{
		server:  server,
		mdns:    true,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("names: %w", err)
		}
	}

	r.client = &dns.Client{Timeout: r.timeout}
	return r, nil
}

// Lookup returns the first PTR name found for address, without the
// trailing dot or a ".local" suffix.
func (r *Resolver) Lookup(ctx context.Context, address string) (string, error) {
	arpa, err := dns.ReverseAddr(address)
	if err != nil {
		return "", fmt.Errorf("names: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)
	msg.RecursionDesired = true

	servers := []string{r.server}
	if r.mdns {
		servers = append(servers, net.JoinHostPort(address, mdnsPort))
	}

	type answer struct {
		name string
		err  error
	}
	answers := make(chan answer, len(servers))
	for _, server := range servers {
		go func(server string) {
			name, err := r.query(ctx, msg.Copy(), server)
			answers <- answer{name: name, err: err}
		}(server)
	}

	var lastErr error
	for range servers {
		a := <-answers
		if a.err == nil {
			return a.name, nil
		}
		lastErr = a.err
	}
	return "", fmt.Errorf("names: lookup %s: %w", address, lastErr)
}

func (r *Resolver) query(ctx context.Context, msg *dns.Msg, server string) (string, error) {
	resp, _, err := r.client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return "", err
	}
	if resp.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("rcode %s from %s", dns.RcodeToString[resp.Rcode], server)
	}
	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return trimName(ptr.Ptr), nil
		}
	}
	return "", fmt.Errorf("no PTR answer from %s", server)
}

func trimName(name string) string {
	name = strings.TrimSuffix(name, ".")
	return strings.TrimSuffix(name, ".local")
}
