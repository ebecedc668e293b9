package server

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Xenebia/Radar-Scan/pkg/check"
	"github.com/Xenebia/Radar-Scan/pkg/check/icmp"
	"github.com/Xenebia/Radar-Scan/pkg/check/ping"
	"github.com/Xenebia/Radar-Scan/pkg/check/tcp"
	"github.com/Xenebia/Radar-Scan/pkg/config"
)

// newCheckRegistry returns a registry with every built-in probe type.
func newCheckRegistry() (*check.Registry, error) {
	reg := check.NewRegistry()
	for name, factory := range map[string]check.Factory{
		icmp.TypeName: icmp.Factory,
		ping.TypeName: ping.Factory,
		tcp.TypeName:  tcp.Factory,
	} {
		if err := reg.Register(name, factory); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// buildChecks creates one probe of the configured type per address.
func buildChecks(cfg config.ProbeConfig, addresses []string) ([]check.Check, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("no addresses to probe")
	}

	reg, err := newCheckRegistry()
	if err != nil {
		return nil, err
	}
	if types := reg.Types(); !slices.Contains(types, cfg.Type) {
		return nil, fmt.Errorf("unknown probe type %q, want one of %s", cfg.Type, strings.Join(types, ", "))
	}
	return reg.CreateAll(cfg.Type, probeSettings(cfg), addresses)
}

// probeSettings translates probe configuration into factory config keys
// understood by the selected probe type.
func probeSettings(cfg config.ProbeConfig) map[string]any {
	settings := map[string]any{
		"timeout": cfg.Timeout,
	}
	switch cfg.Type {
	case icmp.TypeName:
		if cfg.UDP != nil {
			settings["udp"] = *cfg.UDP
		}
		if cfg.Source != "" {
			settings["source"] = cfg.Source
		}
	case ping.TypeName:
		if cfg.Binary != "" {
			settings["binary"] = cfg.Binary
		}
	case tcp.TypeName:
		if len(cfg.TCPPorts) > 0 {
			settings["ports"] = cfg.TCPPorts
		}
	}
	return settings
}
