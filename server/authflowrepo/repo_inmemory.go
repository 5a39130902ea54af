package authflowrepo

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu     sync.RWMutex
	states map[string]*AuthFlowState
	ttl    time.Duration
	now    func() time.Time
}

// NewInMemoryRepo creates a new in-memory auth flow state repository. Flows older than ttl are
// pruned on write.
func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		states: make(map[string]*AuthFlowState),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Upsert stores or updates an auth flow state
func (r *InMemoryRepo) Upsert(_ context.Context, state string, authState *AuthFlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()

	// Create a copy to prevent external modifications
	cp := *authState
	r.states[state] = &cp
	return nil
}

// Get retrieves an auth flow state by state parameter
func (r *InMemoryRepo) Get(_ context.Context, state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, apperrors.ErrInvalidState
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	authState, exists := r.states[state]
	if !exists {
		return nil, apperrors.ErrInvalidState
	}

	// Return a copy to prevent external modifications
	cp := *authState
	return &cp, nil
}

// Take retrieves and removes an auth flow state under a single lock
func (r *InMemoryRepo) Take(_ context.Context, state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, apperrors.ErrInvalidState
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	authState, exists := r.states[state]
	if !exists {
		return nil, apperrors.ErrInvalidState
	}
	delete(r.states, state)
	return authState, nil
}

// Delete removes an auth flow state
func (r *InMemoryRepo) Delete(_ context.Context, state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, state)
	return nil
}

func (r *InMemoryRepo) pruneLocked() {
	if r.ttl <= 0 {
		return
	}
	now := r.now()
	for k, v := range r.states {
		if v.Expired(now, r.ttl) {
			delete(r.states, k)
		}
	}
}
