package sessions

import (
	"context"
	"errors"
	"sync"

	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of Repo
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]*Session),
	}
}

// Upsert creates or updates a session
func (r *InMemoryRepo) Upsert(_ context.Context, session *Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		return errors.New("session id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to avoid external modifications
	r.sessions[session.ID] = session.Clone()
	return nil
}

// Get retrieves a session by id
func (r *InMemoryRepo) Get(_ context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, apperrors.ErrSessionNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (r *InMemoryRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}

// Len returns the number of stored sessions
func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
