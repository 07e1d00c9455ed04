// Package timeline holds the narration segments, the enabled set, and the
// pure functions that derive the unified timeline and the display tokens
// used for word highlighting.
package timeline
