package jpegfx

import (
	"context"
	"errors"
)

// ErrUnavailable reports that the effect could not run for a frame. The
// caller is expected to show the source frame unchanged.
var ErrUnavailable = errors.New("jpegfx: effect unavailable")

// Errors wrapping ErrUnavailable.
var (
	// ErrInvalidSettings reports settings outside their accepted ranges.
	ErrInvalidSettings = wrapUnavailable("invalid settings")
	// ErrDegenerate reports a frame that would produce an empty plane.
	ErrDegenerate = wrapUnavailable("degenerate frame dimensions")
)

type unavailableError struct{ msg string }

func wrapUnavailable(msg string) error { return &unavailableError{msg: msg} }

func (e *unavailableError) Error() string { return "jpegfx: " + e.msg }
func (e *unavailableError) Unwrap() error { return ErrUnavailable }

// isCancel reports whether err comes from a cancelled or expired context.
func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
