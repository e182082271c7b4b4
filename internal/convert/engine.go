package convert

import (
	"context"
	"fmt"
)

const (
	// ChunkSize is the largest buffer handed to the engine in one call.
	ChunkSize = 4096

	// MimeTypeDM is the MIME type of an OMA DRM v1 message.
	MimeTypeDM = "application/vnd.oma.drm.message"

	// MimeTypeFL is the MIME type of a converted forward-lock file.
	MimeTypeFL = "application/x-android-drm-fl"

	// FileExtension is the extension of a converted forward-lock file.
	FileExtension = ".fl"
)

// SessionID identifies one in-progress conversion inside an engine.
type SessionID int

// InvalidSession signals that no session is active.
const InvalidSession SessionID = -1

// StatusCode is the outcome the engine reports for a single call.
type StatusCode int

const (
	StatusOK             StatusCode = 1
	StatusInputDataError StatusCode = 2
	StatusError          StatusCode = 3
)

func (s StatusCode) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInputDataError:
		return "input data error"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Status is the engine's answer to a convert or close call.
//
// For a convert call Data holds the converted bytes, possibly none.
// For a close call Data holds the signature block, possibly none,
// and Offset is the position in the output where it must be written.
type Status struct {
	Code   StatusCode
	Data   []byte
	Offset int64
}

// Engine is the session-oriented conversion engine.
//
// Calls against one session are never issued concurrently, and every
// session returned by OpenSession is closed exactly once.
type Engine interface {
	OpenSession(ctx context.Context, mimeType string) (SessionID, error)
	ConvertData(ctx context.Context, session SessionID, data []byte) (Status, error)
	CloseSession(ctx context.Context, session SessionID) (Status, error)
}

// Reporter collects conversion metrics.
type Reporter interface {
	ChunkConverted(engine string, bytes int, milliseconds float64)
	ConversionFinished(engine string, milliseconds float64)
	ConversionFailed(engine string, kind string)
}
