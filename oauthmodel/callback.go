// Package oauthmodel describes the outcomes of the OAuth/onboarding redirect handshake.
package oauthmodel

import (
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/jrsteele09/studio-gateway/internal/tsid"
	"github.com/jrsteele09/studio-gateway/token"
)

// Query parameter names used by the backend when it redirects the browser back to the gateway.
const (
	// ParamAccessToken carries the backend access token on a successful login.
	// Required together with ParamRefreshToken.
	ParamAccessToken = "accessToken"

	// ParamRefreshToken carries the backend refresh token on a successful login.
	ParamRefreshToken = "refreshToken"

	// ParamOrganizationID optionally names the center the user signed into. It overrides the
	// organization claim of the access token.
	ParamOrganizationID = "organizationId"

	// ParamPendingOrganizationIDs lists centers whose membership awaits approval. The value may be
	// repeated or comma separated. Display-only.
	ParamPendingOrganizationIDs = "pendingOrganizationIds"

	// ParamSignUpRequired is "true" when the OAuth identity has no account yet.
	ParamSignUpRequired = "isSignUpRequired"

	// ParamSignupToken is the short-lived credential consumed once by sign-up.
	ParamSignupToken = "signupToken"

	// ParamName and ParamEmail prefill the identity form during sign-up.
	ParamName  = "name"
	ParamEmail = "email"
)

// Outcome is LoginSuccess or SignupRequired.
type Outcome interface {
	outcome()
}

// LoginSuccess is a completed login with a full token pair.
type LoginSuccess struct {
	Pair                   token.Pair
	OrganizationID         tsid.ID
	PendingOrganizationIDs []tsid.ID
}

// SignupRequired is an OAuth identity without an account.
type SignupRequired struct {
	SignupToken string
	Name        string
	Email       string
}

func (LoginSuccess) outcome()   {}
func (SignupRequired) outcome() {}

// IdentityURL is the onboarding location for a pending sign-up. Parameters keep the order
// name, email, signupToken.
func (s SignupRequired) IdentityURL(identityPath string) string {
	var b strings.Builder
	b.WriteString(identityPath)
	b.WriteString("?name=")
	b.WriteString(url.QueryEscape(s.Name))
	b.WriteString("&email=")
	b.WriteString(url.QueryEscape(s.Email))
	b.WriteString("&signupToken=")
	b.WriteString(url.QueryEscape(s.SignupToken))
	return b.String()
}

// HasLoginTokens reports whether q carries both login tokens.
func HasLoginTokens(q url.Values) bool {
	return q.Get(ParamAccessToken) != "" && q.Get(ParamRefreshToken) != ""
}

// ParseCallback classifies the callback query. Anything that is neither a full login nor a
// complete sign-up request yields ErrMissingHandshakeParams.
func ParseCallback(q url.Values) (Outcome, error) {
	login := HasLoginTokens(q)
	signup := strings.EqualFold(q.Get(ParamSignUpRequired), "true")

	switch {
	case login && signup:
		return nil, fmt.Errorf("%w: %w", apperrors.ErrMissingHandshakeParams, ErrAmbiguousCallback)
	case login:
		return LoginSuccess{
			Pair: token.Pair{
				AccessToken:  q.Get(ParamAccessToken),
				RefreshToken: q.Get(ParamRefreshToken),
			},
			OrganizationID:         tsid.ID(strings.TrimSpace(q.Get(ParamOrganizationID))),
			PendingOrganizationIDs: parseIDList(q[ParamPendingOrganizationIDs]),
		}, nil
	case signup:
		s := SignupRequired{
			SignupToken: q.Get(ParamSignupToken),
			Name:        q.Get(ParamName),
			Email:       q.Get(ParamEmail),
		}
		if s.SignupToken == "" || s.Name == "" || s.Email == "" {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrMissingHandshakeParams, ErrMissingSignupInfo)
		}
		return s, nil
	default:
		return nil, apperrors.ErrMissingHandshakeParams
	}
}

func parseIDList(values []string) []tsid.ID {
	var ids []tsid.ID
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, tsid.ID(part))
			}
		}
	}
	return tsid.Dedupe(ids)
}
