package convert

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput happens when the source has zero length.
	// No session is opened for an empty source.
	ErrEmptyInput = errors.New("input is empty")

	// ErrSessionOpen happens when the engine refuses to start a session.
	ErrSessionOpen = errors.New("failed to open convert session")

	// ErrTruncatedInput happens when fewer bytes are available than the
	// chunk plan requires.
	ErrTruncatedInput = errors.New("input ended before the expected chunk size")

	// ErrConversion happens when the engine reports a non-OK status for
	// a chunk or when closing the session.
	ErrConversion = errors.New("conversion failed")

	// ErrInvalidChunk happens when a chunk is empty or larger than ChunkSize.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrOutputIsSource happens when the output file would replace the source file.
	ErrOutputIsSource = errors.New("output file is the source file")

	// ErrInvalidSession happens when an operation is issued on a negative session id.
	ErrInvalidSession = errors.New("invalid convert session")

	// ErrNoEngineProvided happens when engine is not provided.
	ErrNoEngineProvided = errors.New("no engine provided")

	// ErrNoReporterProvided happens when reporter is not provided.
	ErrNoReporterProvided = errors.New("no reporter provided")
)

// Error kinds reported by KindOf.
const (
	KindEmptyInput     = "empty_input"
	KindSessionOpen    = "session_open"
	KindTruncatedInput = "truncated_input"
	KindConversion     = "conversion"
	KindInvalidChunk   = "invalid_chunk"
	KindInvalidSession = "invalid_session"
	KindOutputIsSource = "output_is_source"
	KindCanceled       = "canceled"
	KindIO             = "io"
)

// Error describes a failed conversion step.
//
// Err holds the kind of the failure, one of the package sentinels or a
// file system / context error, and Cause holds the underlying reason
// reported by the engine or the operating system, if any.
type Error struct {
	Op      string
	Session SessionID
	Err     error
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Session >= 0 {
		msg = fmt.Sprintf("%s (session %d)", msg, e.Session)
	}
	msg = fmt.Sprintf("%s: %v", msg, e.Err)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// KindOf classifies err into one of the Kind constants.
// It returns an empty string for a nil error.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	case errors.Is(err, ErrSessionOpen):
		return KindSessionOpen
	case errors.Is(err, ErrTruncatedInput):
		return KindTruncatedInput
	case errors.Is(err, ErrConversion):
		return KindConversion
	case errors.Is(err, ErrInvalidChunk):
		return KindInvalidChunk
	case errors.Is(err, ErrInvalidSession):
		return KindInvalidSession
	case errors.Is(err, ErrOutputIsSource):
		return KindOutputIsSource
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindIO
	}
}
