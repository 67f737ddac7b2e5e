package pipeline

import (
	"errors"
	"fmt"
	"io"
)

// Error kinds. Only source, sink and configuration errors abort a run;
// detection and classification failures are recovered per frame.
var (
	ErrSourceUnavailable     = errors.New("source unavailable")
	ErrSinkWriteFailure      = errors.New("sink write failure")
	ErrDetectionFailure      = errors.New("detection failure")
	ErrClassificationFailure = errors.New("classification failure")
	ErrConfiguration         = errors.New("configuration error")
)

// ErrTruncated marks a stream whose decoder stopped before the frame count
// its container announced.
var ErrTruncated = errors.New("stream ended before its last frame")

// Error wraps a failure with its kind and the operation that produced it.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// SourceError reports that the input could not be opened or read.
func SourceError(op string, err error) error {
	return newError(ErrSourceUnavailable, op, err)
}

// SinkError reports that the output could not be written.
func SinkError(op string, err error) error {
	return newError(ErrSinkWriteFailure, op, err)
}

// ConfigError reports an unusable option.
func ConfigError(op string, err error) error {
	return newError(ErrConfiguration, op, err)
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, ErrSinkWriteFailure) ||
		errors.Is(err, ErrConfiguration)
}

// EndOfStream is what a source reports once its decoder yields no more frames
// at position. A stream that announced total frames and stopped short is
// truncated; one without a count (total <= 0) simply ended.
func EndOfStream(position, total int) error {
	if total > 0 && position < total {
		return fmt.Errorf("%w: stopped at frame %d of %d", ErrTruncated, position, total)
	}
	return io.EOF
}
