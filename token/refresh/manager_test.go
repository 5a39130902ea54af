package refresh_test

import (
	"context"
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/jrsteele09/studio-gateway/token"
	"github.com/jrsteele09/studio-gateway/token/refresh"
	"github.com/stretchr/testify/require"
)

type fakeReissuer struct {
	calls []token.Pair
	next  token.Pair
	err   error
}

func (f *fakeReissuer) Reissue(_ context.Context, pair token.Pair) (token.Pair, error) {
	f.calls = append(f.calls, pair)
	return f.next, f.err
}

func TestRefresh(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	exp := now.Add(30 * time.Minute)
	access, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		r := &fakeReissuer{next: token.Pair{AccessToken: access, RefreshToken: "RT2"}}
		m := refresh.NewManager(r, time.Hour)

		pair, expiresAt, err := m.Refresh(context.Background(), token.Pair{AccessToken: "AT1", RefreshToken: "RT1"}, now)
		require.NoError(t, err)
		require.Equal(t, "RT2", pair.RefreshToken)
		require.Equal(t, exp.Unix(), expiresAt.Unix())
		require.Len(t, r.calls, 1)
		require.Equal(t, "RT1", r.calls[0].RefreshToken)
	})

	t.Run("opaque access token uses default expiry", func(t *testing.T) {
		r := &fakeReissuer{next: token.Pair{AccessToken: "opaque", RefreshToken: "RT2"}}
		_, expiresAt, err := refresh.NewManager(r, time.Hour).Refresh(context.Background(), token.Pair{RefreshToken: "RT1"}, now)
		require.NoError(t, err)
		require.Equal(t, now.Add(time.Hour), expiresAt)
	})

	t.Run("backend failure", func(t *testing.T) {
		r := &fakeReissuer{err: errors.New("boom")}
		_, _, err := refresh.NewManager(r, time.Hour).Refresh(context.Background(), token.Pair{RefreshToken: "RT1"}, now)
		require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
		require.Len(t, r.calls, 1)
	})

	t.Run("missing refresh token never calls backend", func(t *testing.T) {
		r := &fakeReissuer{}
		_, _, err := refresh.NewManager(r, time.Hour).Refresh(context.Background(), token.Pair{AccessToken: "AT1"}, now)
		require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
		require.Empty(t, r.calls)
	})

	t.Run("incomplete pair", func(t *testing.T) {
		r := &fakeReissuer{next: token.Pair{AccessToken: access}}
		_, _, err := refresh.NewManager(r, time.Hour).Refresh(context.Background(), token.Pair{RefreshToken: "RT1"}, now)
		require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
	})
}
