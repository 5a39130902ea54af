package authflowrepo_test

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/jrsteele09/studio-gateway/server/authflowrepo"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo(t *testing.T) {
	repo := authflowrepo.NewInMemoryRepo(10 * time.Minute)
	ctx := context.Background()
	flow := &authflowrepo.AuthFlowState{Provider: "google", CodeVerifier: "v", Nonce: "n", ReturnURL: "/", CreatedAt: time.Now()}

	require.NoError(t, repo.Upsert(ctx, "state-1", flow))
	flow.Provider = "changed"

	got, err := repo.Get(ctx, "state-1")
	require.NoError(t, err)
	require.Equal(t, "google", got.Provider)

	require.NoError(t, repo.Delete(ctx, "state-1"))
	_, err = repo.Get(ctx, "state-1")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)

	require.Error(t, repo.Upsert(ctx, "", flow))
	require.Error(t, repo.Upsert(ctx, "state-2", nil))
}

func TestInMemoryRepoTakeConsumesOnce(t *testing.T) {
	repo := authflowrepo.NewInMemoryRepo(10 * time.Minute)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, "state-1", &authflowrepo.AuthFlowState{Provider: "kakao", CreatedAt: time.Now()}))

	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := repo.Take(ctx, "state-1")
			results <- err
		}()
	}
	var won int
	for i := 0; i < 8; i++ {
		err := <-results
		if err == nil {
			won++
			continue
		}
		require.ErrorIs(t, err, apperrors.ErrInvalidState)
	}
	require.Equal(t, 1, won)

	_, err := repo.Get(ctx, "state-1")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
	_, err = repo.Take(ctx, "")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestExpired(t *testing.T) {
	created := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	flow := &authflowrepo.AuthFlowState{CreatedAt: created}

	require.False(t, flow.Expired(created.Add(9*time.Minute), 10*time.Minute))
	require.True(t, flow.Expired(created.Add(10*time.Minute), 10*time.Minute))
}

func TestInMemoryRepoPrunesStaleFlows(t *testing.T) {
	repo := authflowrepo.NewInMemoryRepo(time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "old", &authflowrepo.AuthFlowState{CreatedAt: time.Now().Add(-time.Hour)}))
	require.NoError(t, repo.Upsert(ctx, "new", &authflowrepo.AuthFlowState{CreatedAt: time.Now()}))

	_, err := repo.Get(ctx, "old")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
	_, err = repo.Get(ctx, "new")
	require.NoError(t, err)
}
