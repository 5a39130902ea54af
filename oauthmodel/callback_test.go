package oauthmodel_test

import (
	"net/url"
	"testing"

	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/jrsteele09/studio-gateway/internal/tsid"
	"github.com/jrsteele09/studio-gateway/oauthmodel"
	"github.com/jrsteele09/studio-gateway/token"
	"github.com/stretchr/testify/require"
)

func TestParseCallbackLogin(t *testing.T) {
	q := url.Values{
		"accessToken":            {"AT1"},
		"refreshToken":           {"RT1"},
		"organizationId":         {"7123456789012345678"},
		"pendingOrganizationIds": {"11,12", "12"},
	}

	outcome, err := oauthmodel.ParseCallback(q)
	require.NoError(t, err)
	require.Equal(t, oauthmodel.LoginSuccess{
		Pair:                   token.Pair{AccessToken: "AT1", RefreshToken: "RT1"},
		OrganizationID:         "7123456789012345678",
		PendingOrganizationIDs: []tsid.ID{"11", "12"},
	}, outcome)
}

func TestParseCallbackSignup(t *testing.T) {
	q := url.Values{
		"isSignUpRequired": {"true"},
		"signupToken":      {"S1"},
		"name":             {"Kim"},
		"email":            {"kim@x.com"},
	}

	outcome, err := oauthmodel.ParseCallback(q)
	require.NoError(t, err)
	signup, ok := outcome.(oauthmodel.SignupRequired)
	require.True(t, ok)
	require.Equal(t, "/identity?name=Kim&email=kim%40x.com&signupToken=S1", signup.IdentityURL("/identity"))
}

func TestParseCallbackMissingParams(t *testing.T) {
	tests := map[string]url.Values{
		"empty":              {},
		"access token only":  {"accessToken": {"AT1"}},
		"refresh token only": {"refreshToken": {"RT1"}},
		"signup not true":    {"isSignUpRequired": {"false"}, "signupToken": {"S1"}, "name": {"Kim"}, "email": {"kim@x.com"}},
		"signup no token":    {"isSignUpRequired": {"true"}, "name": {"Kim"}, "email": {"kim@x.com"}},
		"both":               {"accessToken": {"AT1"}, "refreshToken": {"RT1"}, "isSignUpRequired": {"true"}, "signupToken": {"S1"}},
	}
	for name, q := range tests {
		t.Run(name, func(t *testing.T) {
			outcome, err := oauthmodel.ParseCallback(q)
			require.Nil(t, outcome)
			require.ErrorIs(t, err, apperrors.ErrMissingHandshakeParams)
		})
	}
}

func TestIdentityURLEscapes(t *testing.T) {
	s := oauthmodel.SignupRequired{SignupToken: "a+b/c", Name: "Kim Lee", Email: "kim&lee@x.com"}
	require.Equal(t, "/identity?name=Kim+Lee&email=kim%26lee%40x.com&signupToken=a%2Bb%2Fc", s.IdentityURL("/identity"))
}
