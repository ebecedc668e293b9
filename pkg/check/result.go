package check

import (
	"time"
)

// Result captures the outcome of a single probe.
type Result struct {
	// Timestamp is when the probe was started.
	Timestamp time.Time

	// Success indicates whether the target answered.
	Success bool

	// Latency is the observed round-trip time. It is only meaningful
	// when Success is true.
	Latency time.Duration

	// Err holds any error encountered during the probe.
	// A timeout is reported as an error with Success false.
	Err error
}

// Failed builds an unsuccessful Result.
func Failed(started time.Time, err error) Result {
	return Result{
		Timestamp: started,
		Success:   false,
		Err:       err,
	}
}

// Succeeded builds a successful Result with the given round-trip time.
func Succeeded(started time.Time, latency time.Duration) Result {
	return Result{
		Timestamp: started,
		Success:   true,
		Latency:   latency,
	}
}
