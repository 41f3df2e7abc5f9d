package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/alt-project/flixctl/internal/domain"
)

// RedisStore keeps the session in redis so several shells can share a login.
// The key carries no TTL; expiry is enforced when the session is restored.
// Implements domain.TokenStore.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

// NewRedisStore creates a redis-backed store. prefix namespaces the fixed key.
func NewRedisStore(client *redis.Client, prefix string, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		client: client,
		key:    fmt.Sprintf("%s%s", prefix, SessionKey),
		logger: logger,
	}
}

// Key returns the redis key in use.
func (r *RedisStore) Key() string {
	return r.key
}

func (r *RedisStore) Save(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context) (*domain.Session, bool) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.WarnContext(ctx, "failed to fetch session from redis", "key", r.key, "error", err)
		}
		return nil, false
	}

	return decodeSession(ctx, r.logger, data)
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}
