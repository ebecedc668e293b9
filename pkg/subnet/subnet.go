// Package subnet determines which /24 the radar sweeps.
//
// Resolution never fails: any problem enumerating interfaces degrades to
// DefaultPrefix.
package subnet

import (
	"fmt"
	"net"
	"strings"

	"github.com/jpillora/ipmath"
)

const (
	// DefaultPrefix is used when no usable interface address is found.
	DefaultPrefix = "192.168.1."

	// HostCount is the number of addresses in one sweep (.1 through .254).
	HostCount = 254
)

// Interface is the subset of a network interface the resolver inspects.
type Interface struct {
	Name  string
	Flags net.Flags
	Addrs func() ([]net.Addr, error)
}

// Resolver picks the subnet prefix from a list of interfaces.
type Resolver struct {
	// Interfaces lists candidate interfaces. Defaults to SystemInterfaces.
	Interfaces func() ([]Interface, error)
}

// Resolve returns the subnet prefix of the system's first usable interface.
func Resolve() string {
	return (&Resolver{}).Resolve()
}

// Resolve returns the first three octets of the first IPv4 address on an
// up, non-loopback interface, followed by a trailing dot. It returns
// DefaultPrefix when nothing qualifies or enumeration fails.
func (r *Resolver) Resolve() string {
	list := r.Interfaces
	if list == nil {
		list = SystemInterfaces
	}

	intfs, err := list()
	if err != nil {
		return DefaultPrefix
	}

	for _, intf := range intfs {
		if intf.Flags&net.FlagUp == 0 || intf.Flags&net.FlagLoopback != 0 {
			continue
		}
		if intf.Addrs == nil {
			continue
		}
		ifAddrs, err := intf.Addrs()
		if err != nil {
			// One broken interface must not hide the others.
			continue
		}
		for _, addr := range ifAddrs {
			ip := addrIP(addr)
			if ip == nil {
				continue
			}
			if v4 := ip.To4(); v4 != nil {
				return Prefix(v4)
			}
		}
	}
	return DefaultPrefix
}

// SystemInterfaces lists the host's interfaces. Addresses are read lazily,
// one interface at a time.
func SystemInterfaces() ([]Interface, error) {
	intfs, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	out := make([]Interface, 0, len(intfs))
	for _, intf := range intfs {
		out = append(out, Interface{Name: intf.Name, Flags: intf.Flags, Addrs: intf.Addrs})
	}
	return out, nil
}

// Prefix returns the leading three octets of ip plus a trailing dot.
func Prefix(ip net.IP) string {
	v4 := ip.To4()
	if v4 == nil {
		return DefaultPrefix
	}
	return fmt.Sprintf("%d.%d.%d.", v4[0], v4[1], v4[2])
}

// ValidPrefix reports whether prefix looks like "a.b.c." with octets in range.
func ValidPrefix(prefix string) bool {
	if !strings.HasSuffix(prefix, ".") || strings.Count(prefix, ".") != 3 {
		return false
	}
	return net.ParseIP(prefix+"0").To4() != nil
}

// Addresses returns the sweep set prefix+1 through prefix+254.
func Addresses(prefix string) []string {
	ip := net.ParseIP(prefix + "1").To4()
	if ip == nil {
		return nil
	}

	addrs := make([]string, 0, HostCount)
	for i := 0; i < HostCount; i++ {
		addrs = append(addrs, ip.String())
		ip = ipmath.NextIP(ip)
	}
	return addrs
}

// Gateway guesses the router address of a prefix (the .1 host).
func Gateway(prefix string) string {
	return prefix + "1"
}

func addrIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.IPNet:
		return a.IP
	case *net.IPAddr:
		return a.IP
	}
	ip, _, err := net.ParseCIDR(addr.String())
	if err != nil {
		return net.ParseIP(addr.String())
	}
	return ip
}
