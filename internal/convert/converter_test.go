package convert

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/weak-head/fl-pipe/internal/logger"
)

func TestConverterCreation(t *testing.T) {
	log, _ := logger.NewNullLogger()

	c, err := NewConverter(Config{}, nil, &reporterMock{}, log)
	require.Nil(t, c)
	require.Equal(t, ErrNoEngineProvided, err)

	c, err = NewConverter(Config{}, &engineMock{}, nil, log)
	require.Nil(t, c)
	require.Equal(t, ErrNoReporterProvided, err)
}

func TestChunkPlan(t *testing.T) {
	for _, tc := range []struct {
		name   string
		size   int
		chunks []int
	}{
		{name: "single byte", size: 1, chunks: []int{1}},
		{name: "just below a chunk", size: 4095, chunks: []int{4095}},
		{name: "exactly one chunk", size: 4096, chunks: []int{4096}},
		{name: "exact multiple", size: 8192, chunks: []int{4096, 4096}},
		{name: "multiple plus remainder", size: 8200, chunks: []int{4096, 4096, 8}},
		{name: "many chunks", size: 5*4096 + 1, chunks: []int{4096, 4096, 4096, 4096, 4096, 1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			engine := &engineMock{}
			c := newTestConverter(t, engine, &reporterMock{})
			input := pattern(tc.size)
			out := &memFile{}

			res, err := c.Convert(context.Background(), MimeTypeDM, bytes.NewReader(input), int64(len(input)), out)
			require.NoError(t, err)

			require.Equal(t, tc.chunks, engine.chunkSizes())
			require.Equal(t, len(tc.chunks), res.ChunkCount)
			require.Equal(t, int64(tc.size), res.BytesRead)
			require.Equal(t, 1, engine.openCount)
			require.Equal(t, 1, engine.closeCount)
			require.Equal(t, input, engine.received())
		})
	}
}

func TestConverterFlow(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T,
		e *engineMock,
		r *reporterMock,
		h *logtest.Hook,
		c *Converter,
	){
		"empty input opens no session":                  testEmptyInputOpensNoSession,
		"output is the concatenation of converted data": testOutputConcatenation,
		"signature overwrites written data at offset":   testSignatureOverwrite,
		"signature may extend the output":               testSignatureAppend,
		"no signature means no write":                   testNoSignature,
		"failed chunk aborts and closes once":           testFailedChunkClosesOnce,
		"engine error on chunk aborts and closes once":  testEngineErrorOnChunk,
		"truncated input aborts and closes once":        testTruncatedInput,
		"failed open does not close":                    testFailedOpen,
		"negative session from engine is rejected":      testNegativeSession,
		"failed close is a conversion error":            testFailedClose,
		"invalid signature offset is rejected":          testInvalidSignatureOffset,
		"canceled context still closes the session":     testCanceledContext,
		"reports converted chunks":                      testReportsChunks,
	} {
		t.Run(scenario, func(t *testing.T) {
			engine := &engineMock{}
			reporter := &reporterMock{}
			log, hook := logger.NewNullLogger()

			c, err := NewConverter(Config{Engine: "mock"}, engine, reporter, log)
			require.NoError(t, err)

			fn(t, engine, reporter, hook, c)
		})
	}
}

func TestConvertChunkValidation(t *testing.T) {
	engine := &engineMock{}
	c := newTestConverter(t, engine, &reporterMock{})
	ctx := context.Background()

	_, err := c.ConvertChunk(ctx, 0, nil)
	require.ErrorIs(t, err, ErrInvalidChunk)

	_, err = c.ConvertChunk(ctx, 0, make([]byte, ChunkSize+1))
	require.ErrorIs(t, err, ErrInvalidChunk)

	_, err = c.ConvertChunk(ctx, InvalidSession, []byte{1})
	require.ErrorIs(t, err, ErrInvalidSession)

	_, _, err = c.Close(ctx, InvalidSession)
	require.ErrorIs(t, err, ErrInvalidSession)

	_, err = c.Open(ctx, "  ")
	require.ErrorIs(t, err, ErrSessionOpen)

	require.Equal(t, 0, engine.openCount)
	require.Equal(t, 0, len(engine.chunks))
	require.Equal(t, 0, engine.closeCount)
}

func TestConvertChunkMayReturnNothing(t *testing.T) {
	engine := &engineMock{
		convert: func(call int, data []byte) (Status, error) {
			return Status{Code: StatusOK}, nil
		},
	}
	c := newTestConverter(t, engine, &reporterMock{})

	out, err := c.ConvertChunk(context.Background(), 0, []byte("abc"))
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestKindOf(t *testing.T) {
	for _, tc := range []struct {
		err  error
		kind string
	}{
		{err: nil, kind: ""},
		{err: &Error{Op: "convert", Err: ErrEmptyInput}, kind: KindEmptyInput},
		{err: &Error{Op: "open", Err: ErrSessionOpen}, kind: KindSessionOpen},
		{err: &Error{Op: "read", Err: ErrTruncatedInput}, kind: KindTruncatedInput},
		{err: &Error{Op: "convert", Err: ErrConversion, Cause: errors.New("x")}, kind: KindConversion},
		{err: &Error{Op: "convert", Err: ErrInvalidChunk}, kind: KindInvalidChunk},
		{err: &Error{Op: "convert", Err: ErrInvalidSession}, kind: KindInvalidSession},
		{err: &Error{Op: "create output", Err: ErrOutputIsSource}, kind: KindOutputIsSource},
		{err: &Error{Op: "convert", Err: context.Canceled}, kind: KindCanceled},
		{err: errors.New("disk full"), kind: KindIO},
	} {
		require.Equal(t, tc.kind, KindOf(tc.err))
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "convert", Session: 3, Err: ErrConversion, Cause: errors.New("engine returned error")}
	require.Equal(t, "convert (session 3): conversion failed: engine returned error", err.Error())

	err = &Error{Op: "convert", Session: InvalidSession, Err: ErrEmptyInput}
	require.Equal(t, "convert: input is empty", err.Error())
}

func testEmptyInputOpensNoSession(t *testing.T, e *engineMock, r *reporterMock, h *logtest.Hook, c *Converter) {
	res, err := c.Convert(context.Background(), MimeTypeDM, bytes.NewReader(nil), 0, &memFile{})
	require.Nil(t, res)
	require.ErrorIs(t, err, ErrEmptyInput)
	require.Equal(t, 0, e.openCount)
	require.Equal(t, 0, e.closeCount)
	require.Equal(t, []string{KindEmptyInput}, r.failures)
}

func testOutputConcatenation(t *testing.T, e *engineMock, r *reporterMock, h *logtest.Hook, c *Converter) {
	e.convert = func(call int, data []byte) (Status, error) {
		// The engine buffers the second chunk and emits nothing for it.
		if call == 1 {
			return Status{Code: StatusOK}, nil
		}
		return Status{Code: StatusOK, Data: []byte{byte('a' + call), byte('a' + call)}}, nil
	}
	out := &memFile{}
	input := pattern(3*ChunkSize + 10)

	res, err := c.Convert(context.Background(), MimeTypeDM, bytes.NewReader(input), int64(len(input)), out)
	require.NoError(t, err)

	require.Equal(t, []byte("aaccdd"), out.buf)
	require.Equal(t, int64(6), res.BytesWritten)
	require.Equal(t, int64(6), res.Size)
	require.Equal(t, 4, res.ChunkCount)
}

func testSignatureOverwrite(t *testing.T, e *engineMock, r *reporterMock, h *logtest.Hook, c *Converter) {
	e.closeStatus = Status{Code: StatusOK, Data: []byte("SIG"), Offset: 2}
	out := &memFile{}
	input := []byte("0123456789")

	res, err := c.Convert(context.Background(), MimeTypeDM, bytes.NewReader(input), int64(len(input)), out)
	require.NoError(t, err)

	require.Equal(t, []byte("01SIG56789"), out.buf)
	require.Equal(t, int64(10), res.BytesWritten)
	require.Equal(t, int64(2), res.SignatureOffset)
	require.Equal(t, 3, res.SignatureLength)
	require.Equal(t, int64(10), res.Size)
}

func testSignatureAppend(t *testing.T, e *engineMock, r *reporterMock, h *logtest.Hook, c *Converter) {
	e.closeStatus = Status{Code: StatusOK, Data: []byte("SIG"), Offset: 9}
	out := &memFile{}
	input := []byte("0123456789")

	res, err := c.Convert(context.Background(), MimeTypeDM, bytes.NewReader(input), int64(len(input)), out)
	require.NoError(t, err)

	require.Equal(t, []byte("012345678SIG"), out.buf)
	require.Equal(t, int64(10), res.BytesWritten)
	require.Equal(t, int64(12), res.Size)
}

func testNoSignature(t *testing.T, e *engineMock, r *reporterMock, h *logtest.Hook, c *Converter) {
	e.closeStatus = Status{Code: StatusOK, Offset: 0}
	out := &memFile{}
	input := []byte("payload")

	res, err := c.Convert(context.Background(), MimeTypeDM, bytes.NewReader(input), int64(len(input)), out)
	require.NoError(t, err)

	require.Equal(t, input, out.buf)
	require.Equal(t, 0, res.SignatureLength)
	require.Equal(t, int64(0), res.SignatureOffset)
}

func testFailedChunkClosesOnce(t *testing.T, e *engineMock, r *reporterMock, h *logtest.Hook, c *Converter) {
	e.convert = func(call int, data []byte) (Status, error) {
		if call == 1 {
			return Status{Code: StatusInputDataError}, nil
		}
		return Status{Code: StatusOK, Data: append([]byte(nil), data...)}, nil
	}
	input := pattern(3 * ChunkSize)

	res, err := c.Convert(context.Background(), MimeTypeDM, bytes.NewReader(input), int64(len(input)), &memFile{})
	require.Nil(t, res)
	require.ErrorIs(t, err, ErrConversion)
	require.Equal(t, KindConversion, KindOf(err))

	require.Equal(t, 2, len(e.chunks))
	require.Equal(t, 1, e.closeCount)
	require.Equal(t, []string{KindConversion}, r.failures)
	require.Equal(t, 0, r.finished)

	require.True(t, hasEntry(h, logrus.ErrorLevel, "Failed to convert a full chunk."))
}

func testEngineErrorOnChunk(t *testing.T, e *engineMock, r *reporterMock, h *logtest.Hook, c *Converter) {
	engineErr := errors.New("engine crashed")
	e.convert = func(call int, data []byte) (Status, error) {
		return Status{}, engineErr
	}
	input := pattern(100)

	_, err := c.Convert(context.Background(), MimeTypeDM, bytes.NewReader(input), int64(len(input)), &memFile{})
	require.ErrorIs(t, err, ErrConversion)
	require.ErrorIs(t, err, engineErr)
	require.Equal(t, 1, e.closeCount)
	require.True(t, hasEntry(h, logrus.ErrorLevel, "Failed to convert the final chunk."))
}

func testTruncatedInput(t *testing.T, e *engineMock, r *reporterMock, h *logtest.Hook, c *Converter) {
	input := pattern(5000)

	res, err := c.Convert(context.Background(), MimeTypeDM, bytes.NewReader(input), 2*ChunkSize, &memFile{})
	require.Nil(t, res)
	require.ErrorIs(t, err, ErrTruncatedInput)

	require.Equal(t, []int{ChunkSize}, e.chunkSizes())
	require.Equal(t, 1, e.closeCount)
	require.Equal(t, []string{KindTruncatedInput}, r.failures)
}

func testFailedOpen(t *testing.T, e *engineMock, r *reporterMock, h *logtest.Hook, c *Converter) {
	e.openErr = errors.New("unsupported mime type")
	input := pattern(10)

	res, err := c.Convert(context.Background(), "text/plain", bytes.NewReader(input), int64(len(input)), &memFile{})
	require.Nil(t, res)
	require.ErrorIs(t, err, ErrSessionOpen)
	require.ErrorIs(t, err, e.openErr)

	require.Equal(t, 1, e.openCount)
	require.Equal(t, 0, len(e.chunks))
	require.Equal(t, 0, e.closeCount)
	require.Equal(t, []string{KindSessionOpen}, r.failures)
}

func testNegativeSession(t *testing.T, e *engineMock, r *reporterMock, h *logtest.Hook, c *Converter) {
	e.openID = -1

	_, err := c.Open(context.Background(), MimeTypeDM)
	require.ErrorIs(t, err, ErrSessionOpen)
	require.Equal(t, "The engine returned an invalid session.", h.LastEntry().Message)
}

func testFailedClose(t *testing.T, e *engineMock, r *reporterMock, h *logtest.Hook, c *Converter) {
	e.closeStatus = Status{Code: StatusError}
	input := pattern(10)

	res, err := c.Convert(context.Background(), MimeTypeDM, bytes.NewReader(input), int64(len(input)), &memFile{})
	require.Nil(t, res)
	require.ErrorIs(t, err, ErrConversion)
	require.Equal(t, 1, e.closeCount)
}

func testInvalidSignatureOffset(t *testing.T, e *engineMock, r *reporterMock, h *logtest.Hook, c *Converter) {
	e.closeStatus = Status{Code: StatusOK, Data: []byte("SIG"), Offset: -4}
	input := pattern(10)

	_, err := c.Convert(context.Background(), MimeTypeDM, bytes.NewReader(input), int64(len(input)), &memFile{})
	require.ErrorIs(t, err, ErrConversion)
	require.Equal(t, 1, e.closeCount)
}

func testCanceledContext(t *testing.T, e *engineMock, r *reporterMock, h *logtest.Hook, c *Converter) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	input := pattern(ChunkSize + 1)

	_, err := c.Convert(ctx, MimeTypeDM, bytes.NewReader(input), int64(len(input)), &memFile{})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, KindCanceled, KindOf(err))

	require.Equal(t, 0, len(e.chunks))
	require.Equal(t, 1, e.closeCount)
	require.NoError(t, e.closeCtxErr)
}

func testReportsChunks(t *testing.T, e *engineMock, r *reporterMock, h *logtest.Hook, c *Converter) {
	input := pattern(ChunkSize + 8)

	_, err := c.Convert(context.Background(), MimeTypeDM, bytes.NewReader(input), int64(len(input)), &memFile{})
	require.NoError(t, err)

	require.Equal(t, []int{ChunkSize, 8}, r.chunkBytes)
	require.Equal(t, 1, r.finished)
	require.Empty(t, r.failures)
	require.Equal(t, "Conversion has finished.", h.LastEntry().Message)
}

func newTestConverter(t *testing.T, e Engine, r Reporter) *Converter {
	log, _ := logger.NewNullLogger()
	c, err := NewConverter(Config{Engine: "mock"}, e, r, log)
	require.NoError(t, err)
	return c
}

func hasEntry(h *logtest.Hook, level logrus.Level, msg string) bool {
	for _, e := range h.AllEntries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

// pattern returns n deterministic bytes.
func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/ChunkSize)
	}
	return b
}

type engineMock struct {
	openID  SessionID
	openErr error

	// convert produces the engine answer for the call-th chunk.
	// Echoes the chunk when nil.
	convert func(call int, data []byte) (Status, error)

	closeStatus Status
	closeErr    error
	closeCtxErr error

	openCount  int
	closeCount int
	chunks     [][]byte
}

func (e *engineMock) OpenSession(ctx context.Context, mimeType string) (SessionID, error) {
	e.openCount++
	if e.openErr != nil {
		return InvalidSession, e.openErr
	}
	if e.closeStatus.Code == 0 {
		e.closeStatus.Code = StatusOK
	}
	return e.openID, nil
}

func (e *engineMock) ConvertData(ctx context.Context, session SessionID, data []byte) (Status, error) {
	call := len(e.chunks)
	e.chunks = append(e.chunks, append([]byte(nil), data...))
	if e.convert != nil {
		return e.convert(call, data)
	}
	return Status{Code: StatusOK, Data: append([]byte(nil), data...)}, nil
}

func (e *engineMock) CloseSession(ctx context.Context, session SessionID) (Status, error) {
	e.closeCount++
	e.closeCtxErr = ctx.Err()
	return e.closeStatus, e.closeErr
}

func (e *engineMock) chunkSizes() []int {
	sizes := make([]int, 0, len(e.chunks))
	for _, c := range e.chunks {
		sizes = append(sizes, len(c))
	}
	return sizes
}

func (e *engineMock) received() []byte {
	return bytes.Join(e.chunks, nil)
}

type reporterMock struct {
	chunkBytes []int
	finished   int
	failures   []string
}

func (r *reporterMock) ChunkConverted(engine string, bytes int, milliseconds float64) {
	r.chunkBytes = append(r.chunkBytes, bytes)
}

func (r *reporterMock) ConversionFinished(engine string, milliseconds float64) {
	r.finished++
}

func (r *reporterMock) ConversionFailed(engine string, kind string) {
	r.failures = append(r.failures, kind)
}

// memFile is an in-memory io.WriterAt that grows on demand.
type memFile struct {
	buf []byte
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(m.buf) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[off:], p)
	return len(p), nil
}
