// Package reconcile maps between the unified timeline and the position of
// the decoded audio when the two disagree on total length.
package reconcile

import "time"

// DefaultThreshold is the drift below which the mapping is the identity.
const DefaultThreshold = 100 * time.Millisecond

// Reconciler is a linear mapping between nominal (timestamp derived) time
// and transport (decoded audio) time. The zero value maps identically.
type Reconciler struct {
	Nominal   time.Duration
	Actual    time.Duration
	Threshold time.Duration
}

// New returns a reconciler for the given durations. A non-positive threshold
// selects DefaultThreshold.
func New(nominal, actual, threshold time.Duration) Reconciler {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Reconciler{Nominal: nominal, Actual: actual, Threshold: threshold}
}

// Scaled reports whether the mapping rescales time.
func (r Reconciler) Scaled() bool {
	if r.Nominal <= 0 || r.Actual <= 0 {
		return false
	}
	diff := r.Actual - r.Nominal
	if diff < 0 {
		diff = -diff
	}
	return diff >= r.threshold()
}

// Drift is the actual duration minus the nominal duration.
func (r Reconciler) Drift() time.Duration {
	return r.Actual - r.Nominal
}

// ToTransport converts a unified timeline position to a transport position.
func (r Reconciler) ToTransport(unified time.Duration) time.Duration {
	if !r.Scaled() {
		return max(unified, 0)
	}
	t := time.Duration(float64(unified) / float64(r.Nominal) * float64(r.Actual))
	return clamp(t, 0, r.Actual)
}

// ToUnified converts a transport position back to the unified timeline. It
// is the inverse of ToTransport.
func (r Reconciler) ToUnified(transport time.Duration) time.Duration {
	if !r.Scaled() {
		return max(transport, 0)
	}
	u := time.Duration(float64(transport) / float64(r.Actual) * float64(r.Nominal))
	return clamp(u, 0, r.Nominal)
}

func (r Reconciler) threshold() time.Duration {
	if r.Threshold <= 0 {
		return DefaultThreshold
	}
	return r.Threshold
}

func clamp(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
