package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisRepo stores sessions as JSON documents that expire with the session cookie.
type RedisRepo struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisRepo creates a Redis backed repository. ttl should match the cookie max age.
func NewRedisRepo(client redis.UniversalClient, ttl time.Duration) *RedisRepo {
	return &RedisRepo{client: client, ttl: ttl}
}

func (r *RedisRepo) Upsert(ctx context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return errors.New("session id is required")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+session.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, apperrors.ErrSessionNotFound
	}
	data, err := r.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

func (r *RedisRepo) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Ping verifies Redis connectivity.
func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
