// Package check defines the reachability probes the radar sweeps with.
//
// A Check probes a single target address. Different probe mechanisms
// (ICMP echo, the system ping binary, TCP connect) implement the Check
// interface with their own logic and configuration.
//
// Results are captured in a Result struct, which has the same shape
// regardless of probe type: success/failure, the observed round-trip
// time, and an optional error.
//
// The Registry provides type discovery, allowing probe types to be
// registered by name and instantiated from configuration at runtime.
package check

import (
	"context"
)

// Check is the interface that all probe types must implement.
type Check interface {
	// Type returns the registered name of this probe type (e.g. "icmp", "tcp").
	Type() string

	// Target returns the address this check probes.
	Target() string

	// Run executes the probe and returns a Result.
	// Implementations bound the probe by their own timeout; the provided
	// context can cut it shorter.
	Run(ctx context.Context) Result
}
