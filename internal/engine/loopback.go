package engine

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"sync"

	"github.com/weak-head/fl-pipe/internal/convert"
)

const (
	// LoopbackName is the registry name of the loopback engine.
	LoopbackName = "loopback"

	// MaxSessions is the number of sessions the loopback engine keeps open at once.
	MaxSessions = 32

	loopbackVersion = 1
	digestSize      = sha256.Size
)

var loopbackMagic = []byte("FLPB")

var (
	// ErrUnsupportedMimeType happens when a session is requested for a
	// MIME type the engine does not convert.
	ErrUnsupportedMimeType = errors.New("unsupported MIME type")

	// ErrTooManySessions happens when MaxSessions sessions are already open.
	ErrTooManySessions = errors.New("too many open sessions")

	// ErrNoKeyProvided happens when the signing key is empty.
	ErrNoKeyProvided = errors.New("no signing key provided")

	// ErrMalformedContainer happens when Verify is given data that is not
	// a loopback container.
	ErrMalformedContainer = errors.New("malformed loopback container")

	// ErrSignatureMismatch happens when the container digest does not
	// match its content.
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// Loopback passes the payload through unchanged behind a small header:
//
//	"FLPB" | version | len(mime) | mime | digest
//
// The digest field is zero-filled when the header is emitted and the
// HMAC-SHA256 of everything but the digest is returned as the signature
// block at close, positioned over the digest field.
type Loopback struct {
	key []byte

	mu       sync.Mutex
	next     convert.SessionID
	sessions map[convert.SessionID]*loopbackSession
}

type loopbackSession struct {
	header []byte
	mac    hash.Hash
	sent   bool
}

// NewLoopback creates a loopback engine signing with key.
func NewLoopback(key []byte) (*Loopback, error) {
	if len(key) == 0 {
		return nil, ErrNoKeyProvided
	}
	return &Loopback{
		key:      append([]byte(nil), key...),
		sessions: map[convert.SessionID]*loopbackSession{},
	}, nil
}

func (l *Loopback) OpenSession(ctx context.Context, mimeType string) (convert.SessionID, error) {
	if mimeType != convert.MimeTypeDM {
		return convert.InvalidSession, fmt.Errorf("%w: %s", ErrUnsupportedMimeType, mimeType)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.sessions) >= MaxSessions {
		return convert.InvalidSession, ErrTooManySessions
	}

	header := make([]byte, 0, len(loopbackMagic)+2+len(mimeType)+digestSize)
	header = append(header, loopbackMagic...)
	header = append(header, loopbackVersion, byte(len(mimeType)))
	header = append(header, mimeType...)

	mac := hmac.New(sha256.New, l.key)
	mac.Write(header)

	id := l.next
	l.next++
	l.sessions[id] = &loopbackSession{
		header: append(header, make([]byte, digestSize)...),
		mac:    mac,
	}
	return id, nil
}

func (l *Loopback) ConvertData(ctx context.Context, session convert.SessionID, data []byte) (convert.Status, error) {
	l.mu.Lock()
	s, ok := l.sessions[session]
	l.mu.Unlock()

	if !ok || len(data) == 0 {
		return convert.Status{Code: convert.StatusInputDataError}, nil
	}

	out := make([]byte, 0, len(s.header)+len(data))
	if !s.sent {
		out = append(out, s.header...)
		s.sent = true
	}
	out = append(out, data...)
	s.mac.Write(data)

	return convert.Status{Code: convert.StatusOK, Data: out}, nil
}

func (l *Loopback) CloseSession(ctx context.Context, session convert.SessionID) (convert.Status, error) {
	l.mu.Lock()
	s, ok := l.sessions[session]
	delete(l.sessions, session)
	l.mu.Unlock()

	if !ok {
		return convert.Status{Code: convert.StatusInputDataError}, nil
	}
	if !s.sent {
		return convert.Status{Code: convert.StatusOK}, nil
	}

	return convert.Status{
		Code:   convert.StatusOK,
		Data:   s.mac.Sum(nil),
		Offset: int64(len(s.header) - digestSize),
	}, nil
}

// Verify checks a container produced by the engine and returns the MIME
// type recorded in its header and its payload.
func (l *Loopback) Verify(data []byte) (string, []byte, error) {
	if len(data) < len(loopbackMagic)+2 || !bytes.Equal(data[:len(loopbackMagic)], loopbackMagic) {
		return "", nil, ErrMalformedContainer
	}
	if data[len(loopbackMagic)] != loopbackVersion {
		return "", nil, fmt.Errorf("%w: version %d", ErrMalformedContainer, data[len(loopbackMagic)])
	}

	mimeLen := int(data[len(loopbackMagic)+1])
	digestAt := len(loopbackMagic) + 2 + mimeLen
	if len(data) < digestAt+digestSize {
		return "", nil, fmt.Errorf("%w: truncated header", ErrMalformedContainer)
	}

	mac := hmac.New(sha256.New, l.key)
	mac.Write(data[:digestAt])
	mac.Write(data[digestAt+digestSize:])
	if !hmac.Equal(mac.Sum(nil), data[digestAt:digestAt+digestSize]) {
		return "", nil, ErrSignatureMismatch
	}

	return string(data[len(loopbackMagic)+2 : digestAt]), data[digestAt+digestSize:], nil
}
