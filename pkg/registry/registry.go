// Package registry holds the state of every host the radar has seen.
//
// The Registry is the only structure shared between the scanner and the
// radar clock. Each method takes the lock for the whole update, so readers
// never observe a partially written Host. Hosts are never removed.
package registry

import (
	"encoding/binary"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/Xenebia/Radar-Scan/pkg/host"
)

// Registry maps addresses to host state. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	hosts map[string]*host.Host
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		hosts: make(map[string]*host.Host),
	}
}

// Upsert records a successful probe of address. A new host is created
// online with full fade; an existing one has its position, latency and
// last-seen time overwritten and is brought back online at full fade.
// It reports whether the host was newly created.
func (r *Registry) Upsert(address string, pos host.Position, latency time.Duration, seenAt time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, exists := r.hosts[address]
	if !exists {
		h = &host.Host{Address: address}
		r.hosts[address] = h
	}
	h.Position = pos
	h.Latency = latency
	h.LastSeen = seenAt
	h.Online = true
	h.Fade = host.MaxFade
	return !exists
}

// MarkOffline flags every host whose address is not in seen as offline.
// Fade is left untouched; decay is the clock's job.
func (r *Registry) MarkOffline(seen map[string]struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for addr, h := range r.hosts {
		if _, ok := seen[addr]; !ok {
			h.Online = false
		}
	}
}

// DecayOffline lowers the fade of every offline host by step, floored at 0.
func (r *Registry) DecayOffline(step int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range r.hosts {
		if h.Online {
			continue
		}
		h.Fade -= step
		if h.Fade < 0 {
			h.Fade = 0
		}
	}
}

// SetHostname records a resolved name for a known host.
// Unknown addresses are ignored.
func (r *Registry) SetHostname(address, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.hosts[address]; ok {
		h.Hostname = name
	}
}

// Get returns a copy of the host stored under address.
func (r *Registry) Get(address string) (host.Host, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.hosts[address]
	if !ok {
		return host.Host{}, false
	}
	return *h, true
}

// Len returns the number of known hosts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hosts)
}

// Counts returns the number of online and offline hosts.
func (r *Registry) Counts() (online, offline int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.hosts {
		if h.Online {
			online++
		} else {
			offline++
		}
	}
	return online, offline
}

// Snapshot returns copies of all hosts ordered by address.
// Callers may keep the result without further locking.
func (r *Registry) Snapshot() []host.Host {
	r.mu.RLock()
	out := make([]host.Host, 0, len(r.hosts))
	for _, h := range r.hosts {
		out = append(out, *h)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return addressKey(out[i].Address) < addressKey(out[j].Address)
	})
	return out
}

func addressKey(address string) uint32 {
	ip := net.ParseIP(address).To4()
	if ip == nil {
		return 0
	}
	return binary.BigEndian.Uint32(ip)
}
