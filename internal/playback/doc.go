// Package playback owns the playable resource and its transport. All
// positions exposed by the Controller are on the unified timeline; the
// reconciler maps them to transport positions before every seek.
package playback
