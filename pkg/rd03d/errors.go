package rd03d

import (
	"errors"
	"fmt"
)

var (
	// ErrFraming indicates bytes were discarded because they didn't form a valid frame.
	ErrFraming = errors.New("framing error")
	// ErrBufferOverrun indicates a declared frame length beyond the receive capacity.
	// It is always reported as a FramingError.
	ErrBufferOverrun = errors.New("buffer overrun")
	// ErrAckMismatch indicates an ack with unexpected length, word or status.
	ErrAckMismatch = errors.New("ack mismatch")
	// ErrTimeout indicates no ack arrived in time. It's retryable.
	ErrTimeout = errors.New("timeout")
	// ErrMode indicates a command issued in the wrong operation mode.
	ErrMode = errors.New("wrong operation mode")
)

// FramingError describes input discarded by the Synchronizer.
type FramingError struct {
	Reason    error
	Discarded int
	Detail    string
}

// Error implements error.
func (e *FramingError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: %s (%d bytes discarded)", e.Reason, e.Detail, e.Discarded)
	}
	return fmt.Sprintf("%v (%d bytes discarded)", e.Reason, e.Discarded)
}

// Unwrap returns the reason.
func (e *FramingError) Unwrap() error {
	return e.Reason
}

// Is makes every FramingError match ErrFraming, including overruns.
func (e *FramingError) Is(target error) bool {
	return target == ErrFraming
}

// AckError wraps a rejected ack.
type AckError struct {
	Kind   CommandKind
	Status uint16
	Detail string
}

// Error implements error.
func (e *AckError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: ack status %#04x", e.Kind, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap implements errors.Unwrap.
func (e *AckError) Unwrap() error {
	return ErrAckMismatch
}

// IsRetryable tells if a failed command may simply be sent again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}
