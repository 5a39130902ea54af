package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/studio-gateway/events"
	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/jrsteele09/studio-gateway/internal/tsid"
	"github.com/jrsteele09/studio-gateway/internal/utils"
	"github.com/jrsteele09/studio-gateway/token"
	"github.com/jrsteele09/studio-gateway/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Refresher reissues a token pair. *refresh.Manager satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, pair token.Pair, now time.Time) (token.Pair, time.Time, error)
}

// RefreshRecorder observes refresh outcomes.
type RefreshRecorder interface {
	RecordRefresh(success bool)
}

// Lifecycle drives the session state machine:
//
//	Unauthenticated -> Authenticated      SignIn
//	Unauthenticated -> PendingSignup      BeginSignup
//	PendingSignup   -> Authenticated      CompleteSignup
//	Authenticated   -> Authenticated      Resolve (reuse or one successful reissue)
//	Authenticated   -> Expired            Resolve (failed reissue)
//	any             -> Unauthenticated    SignOut
type Lifecycle struct {
	repo           Repo
	cache          *Cache
	refresher      Refresher
	defaultExpiry  time.Duration
	refreshTimeout time.Duration
	now            func() time.Time
	dispatcher     events.Dispatcher
	recorder       RefreshRecorder
	refreshes      singleflight.Group
}

const defaultRefreshTimeout = 15 * time.Second

type LifecycleOption func(*Lifecycle)

func WithClock(now func() time.Time) LifecycleOption {
	return func(l *Lifecycle) {
		l.now = now
	}
}

func WithDispatcher(d events.Dispatcher) LifecycleOption {
	return func(l *Lifecycle) {
		l.dispatcher = d
	}
}

func WithRefreshRecorder(r RefreshRecorder) LifecycleOption {
	return func(l *Lifecycle) {
		l.recorder = r
	}
}

// WithRefreshTimeout bounds a shared reissue. The reissue outlives the request that started it.
func WithRefreshTimeout(d time.Duration) LifecycleOption {
	return func(l *Lifecycle) {
		if d > 0 {
			l.refreshTimeout = d
		}
	}
}

// NewLifecycle creates the session state machine. defaultExpiry applies when an access token
// carries no readable exp claim.
func NewLifecycle(repo Repo, cache *Cache, refresher Refresher, defaultExpiry time.Duration, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		repo:           repo,
		cache:          cache,
		refresher:      refresher,
		defaultExpiry:  defaultExpiry,
		refreshTimeout: defaultRefreshTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// Load returns the stored session through the cache without refreshing it.
func (l *Lifecycle) Load(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, apperrors.ErrSessionNotFound
	}
	return l.cache.Get(ctx, sessionID, l.repo.Get)
}

// Resolve returns the session ready for use. An authenticated session past its expiry is
// reissued once; a rejected reissue leaves the session Expired and is not retried.
// Concurrent callers share one reissue, and a caller giving up does not cancel it.
func (l *Lifecycle) Resolve(ctx context.Context, sessionID string) (*Session, error) {
	s, err := l.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.NeedsRefresh(l.now()) {
		return s, nil
	}

	flight := l.refreshes.DoChan(sessionID, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.refreshTimeout)
		defer cancel()
		return l.refresh(flightCtx, sessionID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Session), nil
	}
}

func (l *Lifecycle) refresh(ctx context.Context, sessionID string) (*Session, error) {
	// Reload past the cache: another flight may already have rotated the pair.
	current, err := l.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := l.now()
	if !current.NeedsRefresh(now) {
		l.cache.Clear(sessionID)
		return current, nil
	}

	next := current.Clone()
	pair, expiresAt, err := l.refresher.Refresh(ctx, current.Pair(), now)
	if isContextErr(err) {
		// Timed out before the backend answered: the stored pair may still be good.
		log.Warn().Err(err).Str("session", sessionID).Msg("access token refresh interrupted")
		l.record(false)
		return nil, apperrors.Wrapf(err, "failed to refresh session %s", sessionID)
	}
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("access token refresh failed")
		next.AccessToken = ""
		next.RefreshToken = ""
		next.Error = RefreshAccessTokenError
		l.record(false)
	} else {
		l.applyPair(next, pair, expiresAt)
		l.record(true)
	}
	next.UpdatedAt = now

	if err := l.repo.Upsert(ctx, next); err != nil {
		return nil, apperrors.Wrapf(err, "failed to store refreshed session")
	}
	l.cache.Clear(sessionID)

	if next.Error != "" {
		l.publish(ctx, events.Event{Type: events.EventRefreshFailed, SessionID: sessionID, At: now})
	}
	return next, nil
}

// SignInParams carries a completed login into the session.
type SignInParams struct {
	Pair token.Pair
	// OrganizationID overrides the token's organization claim when set.
	OrganizationID tsid.ID
	// PendingOrganizationIDs replaces the stored list.
	PendingOrganizationIDs []tsid.ID
}

// SignIn stores a token pair in the session, creating it when sessionID is empty or unknown.
// Repeating the call with the same arguments yields the same session state.
func (l *Lifecycle) SignIn(ctx context.Context, sessionID string, params SignInParams) (*Session, error) {
	if !params.Pair.Complete() {
		return nil, fmt.Errorf("sign in requires both tokens: %w", apperrors.ErrInvalidRequest)
	}

	s, err := l.loadOrNew(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := l.now()

	// Identity comes from this login alone, never from whoever held the session before.
	s.Role = nil
	s.OrganizationID = ""
	s.Name = ""
	s.Email = ""
	l.applyPair(s, params.Pair, token.ExpiresAt(params.Pair.AccessToken, now, l.defaultExpiry))
	if !params.OrganizationID.IsZero() {
		s.OrganizationID = params.OrganizationID
	}
	s.PendingOrganizationIDs = tsid.Dedupe(params.PendingOrganizationIDs)
	s.SignupToken = ""
	s.UpdatedAt = now

	return s, l.save(ctx, s)
}

// BeginSignup moves the session to PendingSignup. No tokens are kept.
func (l *Lifecycle) BeginSignup(ctx context.Context, sessionID, signupToken, name, email string) (*Session, error) {
	if signupToken == "" {
		return nil, apperrors.ErrSignupTokenMissing
	}
	s, err := l.loadOrNew(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.AccessToken = ""
	s.RefreshToken = ""
	s.ExpiresAt = time.Time{}
	s.Error = ""
	s.Role = nil
	s.OrganizationID = ""
	s.SignupToken = signupToken
	s.Name = name
	s.Email = email
	s.UpdatedAt = l.now()

	return s, l.save(ctx, s)
}

// CompleteSignup replaces the pending signup token with the pair the backend issued.
func (l *Lifecycle) CompleteSignup(ctx context.Context, sessionID string, pair token.Pair) (*Session, error) {
	s, err := l.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status() != StatusPendingSignup {
		return nil, apperrors.ErrSignupTokenMissing
	}
	return l.SignIn(ctx, sessionID, SignInParams{Pair: pair})
}

// ApplyProfile records a freshly fetched profile. Role and organization are taken from the
// profile as-is, so a profile without a role leaves the session without one.
func (l *Lifecycle) ApplyProfile(ctx context.Context, sessionID string, user *users.User) (*Session, error) {
	s, err := l.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return s, nil
	}

	s.Name = user.Name
	s.Email = user.Email
	s.Role = nil
	if user.Role != nil {
		s.Role = utils.Ptr(*user.Role)
	}
	s.OrganizationID = user.OrganizationID
	s.PendingOrganizationIDs = tsid.Dedupe(append(s.PendingOrganizationIDs, user.PendingOrganizationIDs()...))
	s.UpdatedAt = l.now()

	return s, l.save(ctx, s)
}

// SignOut deletes the session. Signing out an unknown session succeeds.
func (l *Lifecycle) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := l.repo.Delete(ctx, sessionID); err != nil {
		return apperrors.Wrapf(err, "failed to delete session %s", sessionID)
	}
	l.cache.Clear(sessionID)
	l.publish(ctx, events.Event{Type: events.EventSignedOut, SessionID: sessionID, At: l.now()})
	return nil
}

// Invalidate drops any cached copy of the session.
func (l *Lifecycle) Invalidate(sessionID string) {
	l.cache.Clear(sessionID)
}

func (l *Lifecycle) loadOrNew(ctx context.Context, sessionID string) (*Session, error) {
	now := l.now()
	if sessionID == "" {
		return &Session{ID: NewSessionID(), CreatedAt: now}, nil
	}
	s, err := l.repo.Get(ctx, sessionID)
	if apperrors.Is(err, apperrors.ErrSessionNotFound) {
		return &Session{ID: sessionID, CreatedAt: now}, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// applyPair replaces the token pair wholesale and re-reads role and organization from the
// new access token.
func (l *Lifecycle) applyPair(s *Session, pair token.Pair, expiresAt time.Time) {
	s.AccessToken = pair.AccessToken
	s.RefreshToken = pair.RefreshToken
	s.ExpiresAt = expiresAt
	s.Error = ""

	claims, err := token.Decode(pair.AccessToken)
	if err != nil {
		log.Debug().Err(err).Str("session", s.ID).Msg("access token claims unreadable")
		return
	}
	if role := users.ParseRole(claims.Role); role != nil {
		s.Role = role
	}
	if !claims.OrganizationID.IsZero() {
		s.OrganizationID = claims.OrganizationID
	}
}

func (l *Lifecycle) save(ctx context.Context, s *Session) error {
	if err := l.repo.Upsert(ctx, s); err != nil {
		return apperrors.Wrapf(err, "failed to store session %s", s.ID)
	}
	l.cache.Clear(s.ID)
	return nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (l *Lifecycle) record(success bool) {
	if l.recorder != nil {
		l.recorder.RecordRefresh(success)
	}
}

func (l *Lifecycle) publish(ctx context.Context, e events.Event) {
	if l.dispatcher != nil {
		_ = l.dispatcher.Publish(ctx, e)
	}
}
