package reconcile

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Reconciler) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithSnapshotGuard enables the low-snapshot sanity guard: a run whose
// usable candidate count falls below fraction times the previous run's
// total_active is rejected as an upstream failure before any writes.
// Fraction 0 disables the guard (the default); the first-ever run is
// never guarded.
func WithSnapshotGuard(fraction float64) Option {
	return func(r *Reconciler) {
		if fraction >= 0 && fraction <= 1 {
			r.guardFraction = fraction
		}
	}
}

// WithLogger sets the logger used during runs.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}
