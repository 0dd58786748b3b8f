package ingest

import (
	"fmt"
	"runtime"

	"github.com/google/uuid"

	"github.com/jonasinn/fitextractor/internal/fit"
)

// DuplicatePolicy decides what happens to a file whose content hash is
// already registered.
type DuplicatePolicy int

const (
	// DuplicateInsert always registers the file again under a new identifier.
	DuplicateInsert DuplicatePolicy = iota
	// DuplicateSkip skips files already in the registry or seen earlier in
	// the same run (by submission order).
	DuplicateSkip
)

func (p DuplicatePolicy) String() string {
	if p == DuplicateSkip {
		return "skip"
	}
	return "insert"
}

// ParseDuplicatePolicy parses "insert" (or "") and "skip".
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case "", "insert":
		return DuplicateInsert, nil
	case "skip":
		return DuplicateSkip, nil
	}
	return DuplicateInsert, fmt.Errorf("ingest: unknown duplicate policy %q", s)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDecoder replaces the FIT decoder (default fit.SDKDecoder).
func WithDecoder(d fit.Decoder) Option {
	return func(c *Coordinator) {
		if d != nil {
			c.decoder = d
		}
	}
}

// WithParallel selects the worker pool (true, default) or sequential mode.
func WithParallel(on bool) Option {
	return func(c *Coordinator) { c.parallel = on }
}

// WithWorkers bounds the worker pool. n <= 0 means runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n <= 0 {
			n = runtime.NumCPU()
		}
		c.workers = n
	}
}

// WithIncludeUnknown keeps unnamed message types and fields.
func WithIncludeUnknown(on bool) Option {
	return func(c *Coordinator) { c.includeUnknown = on }
}

// WithDuplicatePolicy sets the duplicate policy.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(c *Coordinator) { c.duplicates = p }
}

// WithJob sets the job label used for metrics.
func WithJob(job string) Option {
	return func(c *Coordinator) {
		if job != "" {
			c.job = job
		}
	}
}

// WithNewID replaces the registry identifier generator.
func WithNewID(fn func() uuid.UUID) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithVerbose logs state transitions and per-message inserts.
func WithVerbose(on bool) Option {
	return func(c *Coordinator) { c.verbose = on }
}
