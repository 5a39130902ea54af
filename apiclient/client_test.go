package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/studio-gateway/apiclient"
	"github.com/jrsteele09/studio-gateway/events"
	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/jrsteele09/studio-gateway/internal/tsid"
	"github.com/jrsteele09/studio-gateway/oauthmodel"
	"github.com/jrsteele09/studio-gateway/token"
	"github.com/jrsteele09/studio-gateway/users"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	creds apiclient.Credentials
	err   error
}

func (s staticSource) Credentials(context.Context) (apiclient.Credentials, error) {
	return s.creds, s.err
}

type capturedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

type testFixture struct {
	mu        sync.Mutex
	requests  []capturedRequest
	published []events.Event
	handler   http.HandlerFunc
	server    *httptest.Server
	client    *apiclient.Client
}

func setupTestFixture(t *testing.T, source apiclient.SessionSource) *testFixture {
	t.Helper()

	f := &testFixture{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, capturedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: string(body)})
		handler := f.handler
		f.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	dispatcher := events.NewInMemoryDispatcher()
	record := func(_ context.Context, e events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.published = append(f.published, e)
		return nil
	}
	dispatcher.Subscribe(events.EventUnauthorized, record)
	dispatcher.Subscribe(events.EventForbidden, record)

	f.client = apiclient.New(f.server.URL+"/api/v1/", 5*time.Second,
		apiclient.WithSessionSource(source),
		apiclient.WithDispatcher(dispatcher),
	)
	return f
}

func (f *testFixture) respond(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (f *testFixture) lastRequest(t *testing.T) capturedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

var ownerSession = staticSource{creds: apiclient.Credentials{
	SessionID:      "sid-1",
	AccessToken:    "AT1",
	OrganizationID: "7123456789012345678",
}}

func TestAttachesSessionCredentials(t *testing.T) {
	f := setupTestFixture(t, ownerSession)
	f.respond(http.StatusOK, `{"success":true,"data":{}}`)

	_, err := f.client.Do(context.Background(), http.MethodGet, "/classes", nil)
	require.NoError(t, err)

	req := f.lastRequest(t)
	require.Equal(t, "/api/v1/classes", req.Path)
	require.Equal(t, "Bearer AT1", req.Header.Get("Authorization"))
	require.Equal(t, "7123456789012345678", req.Header.Get("X-Organization-ID"))
}

func TestExplicitAuthorizationPassesThrough(t *testing.T) {
	f := setupTestFixture(t, ownerSession)
	f.respond(http.StatusOK, `{"success":true,"data":{}}`)

	_, err := f.client.Do(context.Background(), http.MethodGet, "/classes", nil, apiclient.WithHeader("Authorization", "Bearer other"))
	require.NoError(t, err)

	req := f.lastRequest(t)
	require.Equal(t, []string{"Bearer other"}, req.Header.Values("Authorization"))
	require.Empty(t, req.Header.Get("X-Organization-ID"))
}

func TestNoSessionSendsAnonymously(t *testing.T) {
	f := setupTestFixture(t, staticSource{err: apperrors.ErrSessionNotFound})
	f.respond(http.StatusOK, `{"success":true,"data":{}}`)

	_, err := f.client.Do(context.Background(), http.MethodGet, "/public", nil)
	require.NoError(t, err)
	require.Empty(t, f.lastRequest(t).Header.Get("Authorization"))
}

func TestLargeIntegersAreQuoted(t *testing.T) {
	f := setupTestFixture(t, ownerSession)
	f.respond(http.StatusOK, `{"success":true,"data":{"id":7123456789012345678,"count":42,"price":12.5}}`)

	resp, err := f.client.Do(context.Background(), http.MethodGet, "/classes/1", nil)
	require.NoError(t, err)

	var env apiclient.Envelope[map[string]any]
	require.NoError(t, json.Unmarshal(resp.Body, &env))
	require.Equal(t, "7123456789012345678", env.Data["id"])
	require.Equal(t, float64(42), env.Data["count"])
	require.Equal(t, 12.5, env.Data["price"])
}

func TestNonJSONBodyIsNotRewritten(t *testing.T) {
	f := setupTestFixture(t, ownerSession)
	csv := "id,count\n7123456789012345678,42\n"
	f.mu.Lock()
	f.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = io.WriteString(w, csv)
	}
	f.mu.Unlock()

	resp, err := f.client.Do(context.Background(), http.MethodGet, "/reports/attendance.csv", nil)
	require.NoError(t, err)
	require.Equal(t, csv, string(resp.Body))
}

func TestProblemJSONIsQuoted(t *testing.T) {
	f := setupTestFixture(t, ownerSession)
	f.mu.Lock()
	f.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		_, _ = io.WriteString(w, `{"id":7123456789012345678}`)
	}
	f.mu.Unlock()

	resp, err := f.client.Do(context.Background(), http.MethodGet, "/classes/1", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"7123456789012345678"}`, string(resp.Body))
}

func TestUnauthorizedPublishesSignal(t *testing.T) {
	f := setupTestFixture(t, ownerSession)
	f.respond(http.StatusUnauthorized, `{"success":false,"error":{"code":"AUTH_001","message":"expired"}}`)

	_, err := f.client.Do(context.Background(), http.MethodGet, "/classes", nil)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	var apiErr *apiclient.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "AUTH_001", apiErr.Code)

	require.Len(t, f.published, 1)
	require.Equal(t, events.EventUnauthorized, f.published[0].Type)
	require.Equal(t, "sid-1", f.published[0].SessionID)
	require.Len(t, f.requests, 1)
}

func TestUnauthorizedSkipAuthRedirect(t *testing.T) {
	f := setupTestFixture(t, ownerSession)
	f.respond(http.StatusUnauthorized, `{}`)

	_, err := f.client.Do(context.Background(), http.MethodGet, "/users/me", nil, apiclient.SkipAuthRedirect())
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.Empty(t, f.published)
}

func TestForbiddenPublishesSignal(t *testing.T) {
	f := setupTestFixture(t, ownerSession)
	f.respond(http.StatusForbidden, `{"success":false,"error":{"code":"AUTH_403","message":"denied"}}`)

	resp, err := f.client.Do(context.Background(), http.MethodDelete, "/classes/1", nil, apiclient.SkipAuthRedirect())
	require.ErrorIs(t, err, apperrors.ErrForbidden)
	require.Equal(t, http.StatusForbidden, resp.Status)
	require.Len(t, f.published, 1)
	require.Equal(t, events.EventForbidden, f.published[0].Type)
	require.Len(t, f.requests, 1)
}

func TestTransportFailure(t *testing.T) {
	f := setupTestFixture(t, ownerSession)
	f.server.Close()

	_, err := f.client.Do(context.Background(), http.MethodGet, "/classes", nil)
	require.Error(t, err)
	require.Empty(t, f.published)
}

func TestReissue(t *testing.T) {
	tests := map[string]string{
		"wrapped": `{"success":true,"data":{"accessToken":"AT2","refreshToken":"RT2"}}`,
		"bare":    `{"accessToken":"AT2","refreshToken":"RT2"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			f := setupTestFixture(t, ownerSession)
			f.respond(http.StatusOK, body)

			pair, err := f.client.Reissue(context.Background(), token.Pair{AccessToken: "AT1", RefreshToken: "RT1"})
			require.NoError(t, err)
			require.Equal(t, token.Pair{AccessToken: "AT2", RefreshToken: "RT2"}, pair)

			req := f.lastRequest(t)
			require.Equal(t, "/api/v1/auth/reissue", req.Path)
			require.Empty(t, req.Header.Get("Authorization"))
			require.JSONEq(t, `{"accessToken":"AT1","refreshToken":"RT1"}`, req.Body)
		})
	}
}

func TestReissueFailures(t *testing.T) {
	f := setupTestFixture(t, ownerSession)

	f.respond(http.StatusOK, `{"token":"x"}`)
	_, err := f.client.Reissue(context.Background(), token.Pair{AccessToken: "AT1", RefreshToken: "RT1"})
	require.ErrorIs(t, err, apperrors.ErrUnknownResponseShape)

	f.respond(http.StatusUnauthorized, `{"success":false,"error":{"code":"AUTH_002","message":"refresh expired"}}`)
	_, err = f.client.Reissue(context.Background(), token.Pair{AccessToken: "AT1", RefreshToken: "RT1"})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.Empty(t, f.published)
}

func TestGetMe(t *testing.T) {
	f := setupTestFixture(t, ownerSession)
	f.respond(http.StatusOK, `{"success":true,"data":{"id":7123456789012345001,"name":"Kim","email":"kim@x.com","role":"OWNER","organizationId":7123456789012345678}}`)

	me, err := f.client.GetMe(context.Background())
	require.NoError(t, err)
	require.Equal(t, tsid.ID("7123456789012345001"), me.ID)
	require.Equal(t, tsid.ID("7123456789012345678"), me.OrganizationID)
	require.Equal(t, users.RoleOwner, *me.Role)
	require.Equal(t, "/api/v1/users/me", f.lastRequest(t).Path)
}

func TestGetMeEnvelopeFailure(t *testing.T) {
	f := setupTestFixture(t, ownerSession)
	f.respond(http.StatusOK, `{"success":false,"error":{"code":"USER_404","message":"missing"}}`)

	_, err := f.client.GetMe(context.Background())
	var apiErr *apiclient.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "USER_404", apiErr.Code)
}

func TestExchangeOAuthLogin(t *testing.T) {
	f := setupTestFixture(t, staticSource{})

	f.respond(http.StatusOK, `{"success":true,"data":{"accessToken":"AT1","refreshToken":"RT1","organizationId":7123456789012345678}}`)
	outcome, err := f.client.ExchangeOAuthLogin(context.Background(), "kakao", apiclient.OAuthLoginRequest{AccessToken: "provider-at"})
	require.NoError(t, err)
	require.Equal(t, oauthmodel.LoginSuccess{
		Pair:                   token.Pair{AccessToken: "AT1", RefreshToken: "RT1"},
		OrganizationID:         "7123456789012345678",
		PendingOrganizationIDs: []tsid.ID{},
	}, outcome)
	require.Equal(t, "/api/v1/auth/oauth/kakao", f.lastRequest(t).Path)

	f.respond(http.StatusOK, `{"success":true,"data":{"isSignUpRequired":true,"signupToken":"S1","name":"Kim","email":"kim@x.com"}}`)
	outcome, err = f.client.ExchangeOAuthLogin(context.Background(), "kakao", apiclient.OAuthLoginRequest{AccessToken: "provider-at"})
	require.NoError(t, err)
	require.Equal(t, oauthmodel.SignupRequired{SignupToken: "S1", Name: "Kim", Email: "kim@x.com"}, outcome)

	f.respond(http.StatusOK, `{"success":true,"data":{}}`)
	_, err = f.client.ExchangeOAuthLogin(context.Background(), "kakao", apiclient.OAuthLoginRequest{AccessToken: "provider-at"})
	require.ErrorIs(t, err, apperrors.ErrUnknownResponseShape)
}

func TestSignUp(t *testing.T) {
	f := setupTestFixture(t, staticSource{})
	f.respond(http.StatusOK, `{"success":true,"data":{"accessToken":"AT1","refreshToken":"RT1"}}`)

	pair, err := f.client.SignUp(context.Background(), apiclient.SignupRequest{SignupToken: "S1", Role: users.RoleMember, Name: "Kim"})
	require.NoError(t, err)
	require.Equal(t, token.Pair{AccessToken: "AT1", RefreshToken: "RT1"}, pair)
	require.JSONEq(t, `{"signupToken":"S1","role":"MEMBER","name":"Kim"}`, f.lastRequest(t).Body)

	_, err = f.client.SignUp(context.Background(), apiclient.SignupRequest{Role: users.RoleMember})
	require.ErrorIs(t, err, apperrors.ErrSignupTokenMissing)
}
