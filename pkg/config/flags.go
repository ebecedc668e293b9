package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Flags are the command-line overrides shared by both binaries. Zero
// values leave the loaded configuration untouched.
type Flags struct {
	Config     string        `help:"YAML config file (defaults are used when empty)"`
	Radius     int           `help:"Radar radius, 120 to 260"`
	Prefix     string        `help:"Subnet prefix to sweep, e.g. 192.168.1. (default: first private interface)"`
	Probe      string        `help:"Probe type: icmp, ping or tcp"`
	Timeout    time.Duration `help:"Per-address probe timeout"`
	UDP        bool          `help:"Use unprivileged UDP ICMP sockets (auto-enabled for non-root users)"`
	Source     string        `help:"Local IPv4 address the icmp probe sends from"`
	Ports      string        `help:"Comma separated ports for the tcp probe"`
	Interval   time.Duration `help:"Pause between sweeps"`
	Workers    int           `help:"Concurrent probes"`
	Rate       float64       `help:"Probes per second"`
	DNS        string        `help:"DNS server for reverse lookups (default: subnet gateway)"`
	NoNames    bool          `help:"Disable hostname lookups"`
	ListenPort string        `help:"HTTP API port"`
	NoAPI      bool          `help:"Disable the HTTP API"`
	LogLevel   string        `help:"Log level: debug, info, warn or error"`
	LogFile    string        `help:"Append logs to this file"`
}

// Load reads the file named by f.Config and applies the flag overrides.
func (f *Flags) Load() (*Config, error) {
	cfg, err := Load(f.Config)
	if err != nil {
		return nil, err
	}
	if err := f.Apply(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Apply overrides cfg with every flag that was set.
func (f *Flags) Apply(cfg *Config) error {
	if f.Radius != 0 {
		cfg.Radius = f.Radius
	}
	if f.Prefix != "" {
		cfg.Prefix = f.Prefix
	}
	if f.Probe != "" {
		cfg.Probe.Type = f.Probe
	}
	if f.Timeout != 0 {
		cfg.Probe.Timeout = f.Timeout
	}
	if f.UDP {
		udp := true
		cfg.Probe.UDP = &udp
	}
	if f.Source != "" {
		cfg.Probe.Source = f.Source
	}
	if f.Ports != "" {
		ports, err := parsePorts(f.Ports)
		if err != nil {
			return err
		}
		cfg.Probe.TCPPorts = ports
	}
	if f.Interval != 0 {
		cfg.Scan.Interval = f.Interval
	}
	if f.Workers != 0 {
		cfg.Scan.Workers = f.Workers
	}
	if f.Rate != 0 {
		cfg.Scan.Rate = f.Rate
	}
	if f.DNS != "" {
		cfg.Names.Server = f.DNS
	}
	if f.NoNames {
		cfg.Names.Enabled = false
	}
	if f.ListenPort != "" {
		cfg.Server.ListenPort = f.ListenPort
	}
	if f.NoAPI {
		cfg.Server.Enabled = false
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Logging.File = f.LogFile
	}
	return nil
}

func parsePorts(s string) ([]int, error) {
	var ports []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		p, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("ports: %q is not a number", field)
		}
		ports = append(ports, p)
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("ports: no ports in %q", s)
	}
	return ports, nil
}
