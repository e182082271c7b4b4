package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/weak-head/fl-pipe/internal/logger"
)

// Config
type Config struct {
	// Engine is the engine name used to label metrics and logs.
	Engine string

	// KeepSource keeps the source file after a successful ConvertFile.
	// The source is always removed when the conversion fails.
	KeepSource bool
}

// Result describes a finished conversion.
type Result struct {
	Session SessionID

	// ChunkCount is the number of chunks handed to the engine.
	ChunkCount int

	// BytesRead is the number of source bytes consumed.
	BytesRead int64

	// BytesWritten is the number of converted bytes appended to the
	// output before the signature was written.
	BytesWritten int64

	// SignatureOffset and SignatureLength locate the signature block.
	// SignatureLength is zero when the engine returned no signature.
	SignatureOffset int64
	SignatureLength int

	// Size is the length of the output.
	Size int64
}

// Converter drives a session-oriented engine over an input stream
// in fixed-size chunks.
type Converter struct {
	config   Config
	engine   Engine
	reporter Reporter

	log logger.Log
}

// NewConverter creates a new stream converter.
// It returns an error if the creation failed.
func NewConverter(
	config Config,
	engine Engine,
	reporter Reporter,
	log logger.Log,
) (*Converter, error) {
	if engine == nil {
		return nil, ErrNoEngineProvided
	}

	if reporter == nil {
		return nil, ErrNoReporterProvided
	}

	return &Converter{
		config:   config,
		engine:   engine,
		reporter: reporter,
		log: log.WithFields(logger.Fields{
			logger.FieldPackage: "convert",
			"engine":            config.Engine,
		}),
	}, nil
}

// Open requests a new session from the engine for the given source MIME type.
func (c *Converter) Open(ctx context.Context, mimeType string) (SessionID, error) {
	log := c.log.WithFields(logger.Fields{
		logger.FieldFunction: "Converter.Open",
		"mime":               mimeType,
	})

	if strings.TrimSpace(mimeType) == "" {
		return InvalidSession, &Error{
			Op:      "open",
			Session: InvalidSession,
			Err:     ErrSessionOpen,
			Cause:   errors.New("empty MIME type"),
		}
	}

	session, err := c.engine.OpenSession(ctx, mimeType)
	if err != nil {
		log.Error(err, "The engine refused to open a convert session.")
		return InvalidSession, &Error{Op: "open", Session: InvalidSession, Err: ErrSessionOpen, Cause: err}
	}

	if session < 0 {
		err := fmt.Errorf("engine returned session %d", session)
		log.Error(err, "The engine returned an invalid session.")
		return InvalidSession, &Error{Op: "open", Session: InvalidSession, Err: ErrSessionOpen, Cause: err}
	}

	log.WithField("session", session).Debug("Opened a convert session.")
	return session, nil
}

// ConvertChunk hands one chunk of 1..ChunkSize bytes to the engine and
// returns the converted bytes. The returned buffer may be empty.
func (c *Converter) ConvertChunk(ctx context.Context, session SessionID, chunk []byte) ([]byte, error) {
	if session < 0 {
		return nil, &Error{Op: "convert", Session: session, Err: ErrInvalidSession}
	}

	if len(chunk) == 0 || len(chunk) > ChunkSize {
		return nil, &Error{
			Op:      "convert",
			Session: session,
			Err:     ErrInvalidChunk,
			Cause:   fmt.Errorf("chunk of %d bytes, want 1..%d", len(chunk), ChunkSize),
		}
	}

	start := time.Now()
	status, err := c.engine.ConvertData(ctx, session, chunk)
	if err != nil {
		return nil, &Error{Op: "convert", Session: session, Err: ErrConversion, Cause: err}
	}

	if status.Code != StatusOK {
		return nil, &Error{
			Op:      "convert",
			Session: session,
			Err:     ErrConversion,
			Cause:   fmt.Errorf("engine returned %s", status.Code),
		}
	}

	c.reporter.ChunkConverted(c.config.Engine, len(chunk), milliseconds(time.Since(start)))
	return status.Data, nil
}

// Close finalizes the session and returns the signature block and the
// output offset it must be written at. The signature may be empty.
// The session is invalid after Close whatever the outcome.
func (c *Converter) Close(ctx context.Context, session SessionID) ([]byte, int64, error) {
	log := c.log.WithFields(logger.Fields{
		logger.FieldFunction: "Converter.Close",
		"session":            session,
	})

	if session < 0 {
		return nil, 0, &Error{Op: "close", Session: session, Err: ErrInvalidSession}
	}

	status, err := c.engine.CloseSession(ctx, session)
	if err != nil {
		log.Error(err, "Failed to close the convert session.")
		return nil, 0, &Error{Op: "close", Session: session, Err: ErrConversion, Cause: err}
	}

	if status.Code != StatusOK {
		err := fmt.Errorf("engine returned %s", status.Code)
		log.Error(err, "The engine reported a failure when closing the session.")
		return nil, 0, &Error{Op: "close", Session: session, Err: ErrConversion, Cause: err}
	}

	if len(status.Data) > 0 && status.Offset < 0 {
		err := fmt.Errorf("signature offset %d", status.Offset)
		log.Error(err, "The engine returned an invalid signature offset.")
		return nil, 0, &Error{Op: "close", Session: session, Err: ErrConversion, Cause: err}
	}

	log.Debug("Closed the convert session.")
	return status.Data, status.Offset, nil
}

// Convert reads size bytes from in, converts them chunk by chunk and
// writes the converted stream to out, followed by the signature block
// at the offset chosen by the engine.
//
// The session opened by Convert is closed on every exit path.
// Out is left in an undefined state when Convert fails.
func (c *Converter) Convert(
	ctx context.Context,
	mimeType string,
	in io.ReaderAt,
	size int64,
	out io.WriterAt,
) (res *Result, err error) {
	log := c.log.WithFields(logger.Fields{
		logger.FieldFunction: "Converter.Convert",
		"mime":               mimeType,
		"size":               size,
	})

	start := time.Now()
	defer func() {
		if err != nil {
			c.reporter.ConversionFailed(c.config.Engine, KindOf(err))
			return
		}
		c.reporter.ConversionFinished(c.config.Engine, milliseconds(time.Since(start)))
	}()

	if size <= 0 {
		return nil, &Error{Op: "convert", Session: InvalidSession, Err: ErrEmptyInput}
	}

	session, err := c.Open(ctx, mimeType)
	if err != nil {
		return nil, err
	}
	log = log.WithField("session", session)

	closed := false
	defer func() {
		if closed {
			return
		}
		// The protocol cannot be canceled, so the session is released
		// even when ctx is already done.
		if _, _, cerr := c.Close(context.WithoutCancel(ctx), session); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	res = &Result{Session: session}
	buf := make([]byte, ChunkSize)

	fullChunks := size / ChunkSize
	remainder := size % ChunkSize

	step := func(offset int64, n int) error {
		if err := ctx.Err(); err != nil {
			return &Error{Op: "convert", Session: session, Err: err}
		}

		chunk := buf[:n]
		read, rerr := in.ReadAt(chunk, offset)
		if read < n {
			if rerr != nil && !errors.Is(rerr, io.EOF) {
				return &Error{Op: "read", Session: session, Err: rerr}
			}
			return &Error{
				Op:      "read",
				Session: session,
				Err:     ErrTruncatedInput,
				Cause:   fmt.Errorf("got %d of %d bytes at offset %d", read, n, offset),
			}
		}
		res.BytesRead += int64(n)
		res.ChunkCount++

		converted, err := c.ConvertChunk(ctx, session, chunk)
		if err != nil {
			return err
		}
		if len(converted) == 0 {
			return nil
		}

		if _, err := out.WriteAt(converted, res.BytesWritten); err != nil {
			return &Error{Op: "write", Session: session, Err: err}
		}
		res.BytesWritten += int64(len(converted))
		return nil
	}

	for i := int64(0); i < fullChunks; i++ {
		if err := step(i*ChunkSize, ChunkSize); err != nil {
			log.Error(err, "Failed to convert a full chunk.")
			return nil, err
		}
	}

	if remainder > 0 {
		if err := step(fullChunks*ChunkSize, int(remainder)); err != nil {
			log.Error(err, "Failed to convert the final chunk.")
			return nil, err
		}
	}

	closed = true
	signature, offset, err := c.Close(ctx, session)
	if err != nil {
		return nil, err
	}

	res.Size = res.BytesWritten
	if len(signature) > 0 {
		if _, err := out.WriteAt(signature, offset); err != nil {
			log.Error(err, "Failed to write the signature.")
			return nil, &Error{Op: "write signature", Session: session, Err: err}
		}
		res.SignatureOffset = offset
		res.SignatureLength = len(signature)
		if end := offset + int64(len(signature)); end > res.Size {
			res.Size = end
		}
	}

	log.WithFields(logger.Fields{
		"chunks": res.ChunkCount,
		"output": humanize.Bytes(uint64(res.Size)),
	}).Info("Conversion has finished.")
	return res, nil
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
