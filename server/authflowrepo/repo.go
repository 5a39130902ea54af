package authflowrepo

import (
	"context"
	"time"
)

// AuthFlowState is the browser-bound state of one provider sign-in, keyed by the OAuth state
// parameter.
type AuthFlowState struct {
	Provider     string
	CodeVerifier string
	Nonce        string
	ReturnURL    string
	CreatedAt    time.Time
}

// Expired reports whether the flow is older than ttl at now.
func (s *AuthFlowState) Expired(now time.Time, ttl time.Duration) bool {
	return !now.Before(s.CreatedAt.Add(ttl))
}

type Repo interface {
	Upsert(ctx context.Context, state string, authState *AuthFlowState) error
	Get(ctx context.Context, state string) (*AuthFlowState, error)
	Delete(ctx context.Context, state string) error
	// Take returns the flow and removes it in one step, so a state can be redeemed only once.
	Take(ctx context.Context, state string) (*AuthFlowState, error)
}
