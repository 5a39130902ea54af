package authflowrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "authflow:"

// RedisRepo keeps flow states in Redis with the flow timeout as TTL.
type RedisRepo struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisRepo(client redis.UniversalClient, ttl time.Duration) *RedisRepo {
	return &RedisRepo{client: client, ttl: ttl}
}

func (r *RedisRepo) Upsert(ctx context.Context, state string, authState *AuthFlowState) error {
	if state == "" || authState == nil {
		return errors.New("state and authState are required")
	}
	data, err := json.Marshal(authState)
	if err != nil {
		return fmt.Errorf("failed to encode auth flow: %w", err)
	}
	return r.client.Set(ctx, redisKeyPrefix+state, data, r.ttl).Err()
}

func (r *RedisRepo) Get(ctx context.Context, state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, apperrors.ErrInvalidState
	}
	return decodeFlow(r.client.Get(ctx, redisKeyPrefix+state).Bytes())
}

// Take uses GETDEL, which needs Redis 6.2 or newer.
func (r *RedisRepo) Take(ctx context.Context, state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, apperrors.ErrInvalidState
	}
	return decodeFlow(r.client.GetDel(ctx, redisKeyPrefix+state).Bytes())
}

func decodeFlow(data []byte, err error) (*AuthFlowState, error) {
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load auth flow: %w", err)
	}
	var authState AuthFlowState
	if err := json.Unmarshal(data, &authState); err != nil {
		return nil, fmt.Errorf("failed to decode auth flow: %w", err)
	}
	return &authState, nil
}

func (r *RedisRepo) Delete(ctx context.Context, state string) error {
	return r.client.Del(ctx, redisKeyPrefix+state).Err()
}
