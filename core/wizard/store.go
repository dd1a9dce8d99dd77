package wizard

import (
	"context"
	"sync"
)

// Store persists wizard sessions keyed by user. Get returns (nil, nil) when
// no session exists. Put is an upsert with last-writer-wins semantics; chat
// clients serialize a single user's input, so no optimistic concurrency is
// required. Implementations must wrap infrastructure failures with
// ErrStoreUnavailable so the engine can surface them as retryable.
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Put(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, userID int64) error
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryStore constructs an in-memory Store implementation for tests and
// development. Sessions are cloned on the way in and out so callers observe
// snapshot semantics, matching the durable implementations.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[int64]*Session)}
}

func (m *memoryStore) Get(_ context.Context, userID int64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}
	return sess.clone(), nil
}

func (m *memoryStore) Put(_ context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.UserID] = sess.clone()
	return nil
}

func (m *memoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}
