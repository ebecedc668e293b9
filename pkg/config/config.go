// Package config loads radar settings.
//
// Settings come from built-in defaults, optionally overlaid by a YAML file.
// Keys missing from the file keep their default values. Command-line flags
// are applied on top by the binaries.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Xenebia/Radar-Scan/pkg/radar"
	"github.com/Xenebia/Radar-Scan/pkg/subnet"
)

// Config represents the complete radar configuration.
type Config struct {
	Radius  int           `yaml:"radius"`
	Prefix  string        `yaml:"prefix"` // empty means resolve from interfaces
	Probe   ProbeConfig   `yaml:"probe"`
	Scan    ScanConfig    `yaml:"scan"`
	Names   NamesConfig   `yaml:"names"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// ProbeConfig selects and tunes the reachability probe.
type ProbeConfig struct {
	Type     string        `yaml:"type"` // icmp, ping or tcp
	Timeout  time.Duration `yaml:"timeout"`
	UDP      *bool         `yaml:"udp"`    // icmp only; unset picks by privilege
	Source   string        `yaml:"source"` // icmp only; local IPv4 address to send from
	Binary   string        `yaml:"binary"`
	TCPPorts []int         `yaml:"tcp_ports"`
}

// ScanConfig controls sweep pacing.
type ScanConfig struct {
	Interval time.Duration `yaml:"interval"`
	Workers  int           `yaml:"workers"`
	Rate     float64       `yaml:"rate"` // probes per second, 0 = unlimited
}

// NamesConfig controls reverse lookups of discovered hosts.
type NamesConfig struct {
	Enabled bool          `yaml:"enabled"`
	Server  string        `yaml:"server"` // empty means the subnet gateway
	Timeout time.Duration `yaml:"timeout"`
	MDNS    bool          `yaml:"mdns"`
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenPort string `yaml:"listen_port"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Radius: radar.DefaultRadius,
		Probe: ProbeConfig{
			Type:    "icmp",
			Timeout: 600 * time.Millisecond,
		},
		Scan: ScanConfig{
			Interval: 4 * time.Second,
			Workers:  64,
			Rate:     500,
		},
		Names: NamesConfig{
			Enabled: true,
			Timeout: 2 * time.Second,
			MDNS:    true,
		},
		Server: ServerConfig{
			Enabled:    true,
			ListenPort: "1982",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Radius < radar.MinRadius || c.Radius > radar.MaxRadius {
		return fmt.Errorf("radius %d outside [%d, %d]", c.Radius, radar.MinRadius, radar.MaxRadius)
	}
	if c.Prefix != "" && !subnet.ValidPrefix(c.Prefix) {
		return fmt.Errorf("prefix %q must look like 192.168.1.", c.Prefix)
	}
	switch c.Probe.Type {
	case "icmp", "ping", "tcp":
	default:
		return fmt.Errorf("unknown probe type %q", c.Probe.Type)
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %v", c.Probe.Timeout)
	}
	if c.Probe.Source != "" && net.ParseIP(c.Probe.Source).To4() == nil {
		return fmt.Errorf("probe source %q is not an IPv4 address", c.Probe.Source)
	}
	for _, p := range c.Probe.TCPPorts {
		if p < 1 || p > 65535 {
			return fmt.Errorf("tcp port %d out of range", p)
		}
	}
	if c.Scan.Interval < 0 {
		return fmt.Errorf("scan interval must not be negative, got %v", c.Scan.Interval)
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan workers must be at least 1, got %d", c.Scan.Workers)
	}
	if c.Scan.Rate < 0 {
		return fmt.Errorf("scan rate must not be negative, got %v", c.Scan.Rate)
	}
	if c.Names.Enabled && c.Names.Timeout <= 0 {
		return fmt.Errorf("names timeout must be positive, got %v", c.Names.Timeout)
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging level: %w", err)
	}
	return nil
}

// NewLogger builds a logger from the logging settings. When a file is set,
// logs are appended to it instead of stderr; the returned close function
// releases it.
func (c *Config) NewLogger() (*logrus.Logger, func() error, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("logging level: %w", err)
	}
	logger.SetLevel(level)

	if c.Logging.File == "" {
		return logger, func() error { return nil }, nil
	}

	f, err := os.OpenFile(c.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)
	return logger, f.Close, nil
}
