// Package wav decodes segment audio into float frames, normalizes sample
// rate and channel count, concatenates buffers and encodes the result as a
// 16-bit PCM WAV stream.
package wav
