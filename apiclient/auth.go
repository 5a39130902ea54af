package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/jrsteele09/studio-gateway/internal/tsid"
	"github.com/jrsteele09/studio-gateway/oauthmodel"
	"github.com/jrsteele09/studio-gateway/token"
	"github.com/jrsteele09/studio-gateway/users"
)

const (
	pathReissue = "/auth/reissue"
	pathSignup  = "/auth/signup"
	pathOAuth   = "/auth/oauth/"
	pathMe      = "/users/me"
)

// Reissue exchanges pair for a new one. The call never carries session credentials and never
// raises the unauthorized event: the session layer owns the failure.
func (c *Client) Reissue(ctx context.Context, pair token.Pair) (token.Pair, error) {
	resp, err := c.Do(ctx, http.MethodPost, pathReissue, pair, NoAuth(), SkipAuthRedirect())
	if err != nil {
		return token.Pair{}, err
	}
	decoded, err := DecodeReissue(resp.Body)
	if err != nil {
		var apiErr *APIError
		if apperrors.As(err, &apiErr) {
			apiErr.Status = resp.Status
		}
		return token.Pair{}, err
	}
	return decoded.Pair, nil
}

// GetMe fetches the profile of the session's user.
func (c *Client) GetMe(ctx context.Context, opts ...RequestOption) (*users.User, error) {
	resp, err := c.Do(ctx, http.MethodGet, pathMe, nil, opts...)
	if err != nil {
		return nil, err
	}
	user, err := decodeEnvelope[users.User](resp.Status, resp.Body)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// OAuthLoginRequest is the provider credential handed to the backend login exchange.
type OAuthLoginRequest struct {
	AccessToken string `json:"accessToken"`
	IDToken     string `json:"idToken,omitempty"`
}

type oauthLoginResponse struct {
	AccessToken            string    `json:"accessToken"`
	RefreshToken           string    `json:"refreshToken"`
	OrganizationID         tsid.ID   `json:"organizationId"`
	PendingOrganizationIDs []tsid.ID `json:"pendingOrganizationIds"`
	IsSignUpRequired       bool      `json:"isSignUpRequired"`
	SignupToken            string    `json:"signupToken"`
	Name                   string    `json:"name"`
	Email                  string    `json:"email"`
}

// ExchangeOAuthLogin trades a provider credential for backend tokens or a sign-up request.
func (c *Client) ExchangeOAuthLogin(ctx context.Context, provider string, req OAuthLoginRequest) (oauthmodel.Outcome, error) {
	resp, err := c.Do(ctx, http.MethodPost, pathOAuth+url.PathEscape(provider), req, NoAuth(), SkipAuthRedirect())
	if err != nil {
		return nil, err
	}
	data, err := decodeEnvelope[oauthLoginResponse](resp.Status, resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case data.IsSignUpRequired:
		if data.SignupToken == "" {
			return nil, apperrors.ErrSignupTokenMissing
		}
		return oauthmodel.SignupRequired{SignupToken: data.SignupToken, Name: data.Name, Email: data.Email}, nil
	case data.AccessToken != "" && data.RefreshToken != "":
		return oauthmodel.LoginSuccess{
			Pair:                   token.Pair{AccessToken: data.AccessToken, RefreshToken: data.RefreshToken},
			OrganizationID:         data.OrganizationID,
			PendingOrganizationIDs: tsid.Dedupe(data.PendingOrganizationIDs),
		}, nil
	default:
		return nil, fmt.Errorf("oauth login response: %w", apperrors.ErrUnknownResponseShape)
	}
}

// SignupRequest completes registration of a pending OAuth identity.
type SignupRequest struct {
	SignupToken string         `json:"signupToken"`
	Role        users.RoleType `json:"role"`
	Name        string         `json:"name"`
	Phone       string         `json:"phone,omitempty"`
}

// SignUp registers the account and returns its first token pair.
func (c *Client) SignUp(ctx context.Context, req SignupRequest) (token.Pair, error) {
	if req.SignupToken == "" {
		return token.Pair{}, apperrors.ErrSignupTokenMissing
	}
	resp, err := c.Do(ctx, http.MethodPost, pathSignup, req, NoAuth(), SkipAuthRedirect())
	if err != nil {
		return token.Pair{}, err
	}
	pair, err := decodeEnvelope[token.Pair](resp.Status, resp.Body)
	if err != nil {
		return token.Pair{}, err
	}
	if !pair.Complete() {
		return token.Pair{}, fmt.Errorf("signup response: %w", apperrors.ErrUnknownResponseShape)
	}
	return pair, nil
}

// DecodeData decodes the data member of an enveloped response.
func DecodeData[T any](resp *Response) (T, error) {
	return decodeEnvelope[T](resp.Status, resp.Body)
}
