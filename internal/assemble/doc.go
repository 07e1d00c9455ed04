// Package assemble turns the enabled segments into one playable WAV
// resource. Segment audio is resolved, fetched and decoded concurrently,
// normalized to a single format and concatenated in segment order.
//
// Every call to Start bumps a generation counter; a run that finishes after
// a newer run has started releases its result and reports ErrStale.
package assemble
