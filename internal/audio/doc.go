// Package audio provides playback transports: a Speaker that plays through
// the system audio device via oto/v3, and a Mock that simulates a device on
// the wall clock for tests and headless runs.
package audio
