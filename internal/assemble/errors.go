package assemble

import (
	"errors"
	"fmt"

	"github.com/dgnsrekt/narrator/internal/wav"
)

var (
	// ErrFetchFailed marks a segment whose bytes could not be retrieved.
	ErrFetchFailed = errors.New("segment fetch failed")
	// ErrDecodeFailed marks a segment whose bytes could not be decoded.
	ErrDecodeFailed = errors.New("segment decode failed")
	// ErrFormatMismatch is reported when segments disagree on format and
	// the reject policy is active.
	ErrFormatMismatch = errors.New("segment format mismatch")
	// ErrNoPlayableAudio means the run produced nothing to play.
	ErrNoPlayableAudio = errors.New("no audio available")
	// ErrStale is returned by a run superseded by a newer one.
	ErrStale = errors.New("assembly superseded by a newer run")

	ErrUnsupportedScheme = errors.New("unsupported audio location scheme")
	ErrStatus            = errors.New("unexpected http status")
	ErrTooLarge          = errors.New("segment audio too large")
)

// SegmentError records why a segment was left out of a run.
type SegmentError struct {
	SegmentID string
	Err       error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %s: %v", e.SegmentID, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// FormatMismatchError is fatal to a run. It matches both ErrFormatMismatch
// and ErrNoPlayableAudio.
type FormatMismatchError struct {
	SegmentID string
	Want      wav.Format
	Got       wav.Format
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("segment %s is %s, want %s", e.SegmentID, e.Got, e.Want)
}

func (e *FormatMismatchError) Is(target error) bool {
	return target == ErrFormatMismatch || target == ErrNoPlayableAudio
}
