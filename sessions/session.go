// Package sessions owns the browser session: token storage, the refresh state machine,
// the short-lived read cache and the signed session cookie.
package sessions

import (
	"time"

	"github.com/jrsteele09/studio-gateway/internal/tsid"
	"github.com/jrsteele09/studio-gateway/token"
	"github.com/jrsteele09/studio-gateway/users"
)

// RefreshAccessTokenError marks a session whose refresh failed. The marker is terminal until
// the user signs in again.
const RefreshAccessTokenError = "RefreshAccessTokenError"

// Status is the lifecycle state of a session.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusPendingSignup   Status = "pending_signup"
	StatusAuthenticated   Status = "authenticated"
	StatusExpired         Status = "expired"
)

// Session is the server-side record behind a session cookie.
// Token pairs are always replaced together.
type Session struct {
	ID                     string          `json:"id"`
	AccessToken            string          `json:"accessToken,omitempty"`
	RefreshToken           string          `json:"refreshToken,omitempty"`
	ExpiresAt              time.Time       `json:"expiresAt"`
	Role                   *users.RoleType `json:"role,omitempty"`
	OrganizationID         tsid.ID         `json:"organizationId,omitempty"`
	SignupToken            string          `json:"signupToken,omitempty"`
	Error                  string          `json:"error,omitempty"`
	PendingOrganizationIDs []tsid.ID       `json:"pendingOrganizationIds,omitempty"`
	Name                   string          `json:"name,omitempty"`
	Email                  string          `json:"email,omitempty"`
	CreatedAt              time.Time       `json:"createdAt"`
	UpdatedAt              time.Time       `json:"updatedAt"`
}

// Status derives the lifecycle state. A nil session is unauthenticated.
func (s *Session) Status() Status {
	switch {
	case s == nil:
		return StatusUnauthenticated
	case s.Error != "":
		return StatusExpired
	case s.AccessToken != "":
		return StatusAuthenticated
	case s.SignupToken != "":
		return StatusPendingSignup
	default:
		return StatusUnauthenticated
	}
}

// BearerToken returns the access token to attach to backend calls, or "" when the session
// cannot authorize anything.
func (s *Session) BearerToken() string {
	if s.Status() != StatusAuthenticated {
		return ""
	}
	return s.AccessToken
}

// Pair returns the stored token pair.
func (s *Session) Pair() token.Pair {
	if s == nil {
		return token.Pair{}
	}
	return token.Pair{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
}

// NeedsRefresh reports whether an authenticated session has reached its expiry.
func (s *Session) NeedsRefresh(now time.Time) bool {
	return s.Status() == StatusAuthenticated && !now.Before(s.ExpiresAt)
}

// AuthState is the advisory authentication state derived from the stored claims.
func (s *Session) AuthState() users.AuthState {
	return users.ResolveAuthState(s.Status() == StatusAuthenticated, s.Role, s.OrganizationID)
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Role != nil {
		role := *s.Role
		c.Role = &role
	}
	if s.PendingOrganizationIDs != nil {
		c.PendingOrganizationIDs = append([]tsid.ID(nil), s.PendingOrganizationIDs...)
	}
	return &c
}

// View is the token-free projection of a session returned to the browser.
type View struct {
	Status                 Status          `json:"status"`
	Role                   *users.RoleType `json:"role"`
	OrganizationID         tsid.ID         `json:"organizationId"`
	ExpiresAt              *time.Time      `json:"expiresAt,omitempty"`
	Error                  string          `json:"error,omitempty"`
	PendingOrganizationIDs []tsid.ID       `json:"pendingOrganizationIds,omitempty"`
	Name                   string          `json:"name,omitempty"`
	Email                  string          `json:"email,omitempty"`
	AuthState              users.AuthState `json:"authState"`
}

// View projects the session for the browser. Tokens never leave the gateway.
func (s *Session) View() View {
	v := View{
		Status:    s.Status(),
		AuthState: s.AuthState(),
	}
	if s == nil {
		return v
	}
	v.Role = s.Role
	v.OrganizationID = s.OrganizationID
	v.Error = s.Error
	v.PendingOrganizationIDs = s.PendingOrganizationIDs
	v.Name = s.Name
	v.Email = s.Email
	if !s.ExpiresAt.IsZero() {
		exp := s.ExpiresAt
		v.ExpiresAt = &exp
	}
	return v
}
