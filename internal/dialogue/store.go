package dialogue

import (
	"context"
	"sync"
	"time"

	"github.com/dvloznov/ledger-bot/internal/domain"
)

// Session is the guided-flow state of one user. Draft is nil until the user
// chooses to register a movement.
type Session struct {
	State     State
	Draft     *domain.Draft
	UpdatedAt time.Time
}

func (s Session) clone() Session {
	s.Draft = s.Draft.Clone()
	return s
}

// Store holds at most one session per user. Each method is atomic for its key.
type Store interface {
	// Get returns the session for userID and whether one exists.
	Get(ctx context.Context, userID int64) (Session, bool, error)
	Put(ctx context.Context, userID int64, s Session) error
	Delete(ctx context.Context, userID int64) error
	// DeleteIdle removes sessions last updated before cutoff and reports how many.
	DeleteIdle(ctx context.Context, cutoff time.Time) (int, error)
}

// MemoryStore is an in-memory Store, safe for concurrent use. Sessions do not
// survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewMemoryStore creates an empty session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]Session),
	}
}

// Get implements Store. The returned session is a copy.
func (s *MemoryStore) Get(ctx context.Context, userID int64) (Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, false, nil
	}
	return sess.clone(), true, nil
}

// Put implements Store. A copy of sess is stored so later changes by the
// caller are not visible to other readers.
func (s *MemoryStore) Put(ctx context.Context, userID int64, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[userID] = sess.clone()
	return nil
}

// Delete implements Store. Deleting a missing session is not an error.
func (s *MemoryStore) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

// DeleteIdle implements Store.
func (s *MemoryStore) DeleteIdle(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of active sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ Store = (*MemoryStore)(nil)
