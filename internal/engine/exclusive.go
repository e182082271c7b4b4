package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/weak-head/fl-pipe/internal/convert"
	"github.com/weak-head/fl-pipe/internal/logger"
)

// lockRetryDelay is the polling interval while waiting for the lock file.
const lockRetryDelay = 50 * time.Millisecond

var (
	// ErrNoEngineProvided happens when engine is not provided.
	ErrNoEngineProvided = errors.New("no engine provided")

	// ErrForeignSession happens when a call names a session that was
	// not opened through the same Exclusive.
	ErrForeignSession = errors.New("session is not held by this owner")
)

// Exclusive serializes conversions against one engine instance:
// at most one session is open at a time. With a lock file, the
// guarantee also holds across processes sharing the file.
type Exclusive struct {
	engine convert.Engine

	// slot holds a token while a session is open.
	slot chan struct{}
	lock *flock.Flock

	mu     sync.Mutex
	active convert.SessionID

	log logger.Log
}

// NewExclusive wraps engine. lockPath may be empty.
func NewExclusive(engine convert.Engine, lockPath string, log logger.Log) (*Exclusive, error) {
	if engine == nil {
		return nil, ErrNoEngineProvided
	}

	e := &Exclusive{
		engine: engine,
		slot:   make(chan struct{}, 1),
		active: convert.InvalidSession,
		log: log.WithFields(logger.Fields{
			logger.FieldPackage: "engine",
			"lock":              lockPath,
		}),
	}
	if lockPath != "" {
		e.lock = flock.New(lockPath)
	}
	return e, nil
}

// OpenSession waits until no other session is open, then opens one.
func (e *Exclusive) OpenSession(ctx context.Context, mimeType string) (convert.SessionID, error) {
	log := e.log.WithField(logger.FieldFunction, "Exclusive.OpenSession")

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		return convert.InvalidSession, ctx.Err()
	}

	if e.lock != nil {
		ok, err := e.lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil || !ok {
			<-e.slot
			if err == nil {
				err = errors.New("lock file is held by another owner")
			}
			log.Error(err, "Failed to acquire the engine lock file.")
			return convert.InvalidSession, fmt.Errorf("acquire engine lock: %w", err)
		}
	}

	session, err := e.engine.OpenSession(ctx, mimeType)
	if err != nil || session < 0 {
		e.release(log)
		return session, err
	}

	e.mu.Lock()
	e.active = session
	e.mu.Unlock()

	log.WithField("session", session).Trace("Acquired the engine.")
	return session, nil
}

func (e *Exclusive) ConvertData(ctx context.Context, session convert.SessionID, data []byte) (convert.Status, error) {
	if !e.holds(session) {
		return convert.Status{}, fmt.Errorf("%w: %d", ErrForeignSession, session)
	}
	return e.engine.ConvertData(ctx, session, data)
}

// CloseSession closes the session and frees the engine for the next
// owner, even when the wrapped engine fails to close.
func (e *Exclusive) CloseSession(ctx context.Context, session convert.SessionID) (convert.Status, error) {
	log := e.log.WithFields(logger.Fields{
		logger.FieldFunction: "Exclusive.CloseSession",
		"session":            session,
	})

	if !e.holds(session) {
		return convert.Status{}, fmt.Errorf("%w: %d", ErrForeignSession, session)
	}

	status, err := e.engine.CloseSession(ctx, session)

	e.mu.Lock()
	e.active = convert.InvalidSession
	e.mu.Unlock()
	e.release(log)

	log.Trace("Released the engine.")
	return status, err
}

func (e *Exclusive) holds(session convert.SessionID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return session >= 0 && session == e.active
}

func (e *Exclusive) release(log logger.Log) {
	if e.lock != nil {
		if err := e.lock.Unlock(); err != nil {
			log.Error(err, "Failed to release the engine lock file.")
		}
	}
	<-e.slot
}
