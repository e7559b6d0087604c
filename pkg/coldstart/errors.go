package coldstart

import (
	"errors"
	"fmt"
)

var (
	// ErrBatchSize means the aggregator did not receive exactly one response.
	ErrBatchSize = errors.New("cold-start aggregator expects exactly one upstream response")

	// ErrMissingRequest means the original request could not be recovered
	// from the response meta.
	ErrMissingRequest = errors.New("original request missing from response meta")
)

// ProtocolError is a fatal misuse of the aggregator by the calling layer.
// It is never retried.
type ProtocolError struct {
	PUID string
	Err  error
}

func (e *ProtocolError) Error() string {
	if e.PUID == "" {
		return fmt.Sprintf("cold-start protocol error: %v", e.Err)
	}
	return fmt.Sprintf("cold-start protocol error (puid %s): %v", e.PUID, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// SynthesisError wraps a failure of the cold-start predictor.
type SynthesisError struct {
	PUID string
	Err  error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("cold-start synthesis failed (puid %s): %v", e.PUID, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// IsProtocolError reports whether err is, or wraps, a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsSynthesisError reports whether err is, or wraps, a SynthesisError.
func IsSynthesisError(err error) bool {
	var se *SynthesisError
	return errors.As(err, &se)
}
