package refresh

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/jrsteele09/studio-gateway/token"
)

// Reissuer exchanges a token pair for a new one at the backend.
type Reissuer interface {
	Reissue(ctx context.Context, pair token.Pair) (token.Pair, error)
}

// Manager performs a single token reissue and derives the new expiry.
type Manager struct {
	reissuer      Reissuer
	defaultExpiry time.Duration
}

// NewManager creates a new refresh manager. defaultExpiry is used when the new access token
// has no readable exp claim.
func NewManager(reissuer Reissuer, defaultExpiry time.Duration) *Manager {
	return &Manager{
		reissuer:      reissuer,
		defaultExpiry: defaultExpiry,
	}
}

// Refresh calls the reissue endpoint exactly once. Every failure wraps ErrRefreshFailed.
func (m *Manager) Refresh(ctx context.Context, pair token.Pair, now time.Time) (token.Pair, time.Time, error) {
	if pair.RefreshToken == "" {
		return token.Pair{}, time.Time{}, fmt.Errorf("no refresh token: %w", apperrors.ErrRefreshFailed)
	}

	next, err := m.reissuer.Reissue(ctx, pair)
	if err != nil {
		return token.Pair{}, time.Time{}, fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, err)
	}
	if !next.Complete() {
		return token.Pair{}, time.Time{}, fmt.Errorf("incomplete token pair: %w", apperrors.ErrRefreshFailed)
	}

	return next, token.ExpiresAt(next.AccessToken, now, m.defaultExpiry), nil
}
