package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cubbyhq/cubby/internal/domain"

	"github.com/redis/go-redis/v9"
)

const uploadSessionKeyPrefix = "cubby:uploads"

// redisUploadSessionStore parks pending upload sessions in redis with a TTL
// matching the presigned write URL, so abandoned uploads disappear on their
// own without a sweeper.
type redisUploadSessionStore struct {
	client *redis.Client
}

type RedisUploadSessionStoreDependencies struct {
	Client *redis.Client
}

func NewRedisUploadSessionStore(deps RedisUploadSessionStoreDependencies) domain.UploadSessionStore {
	return &redisUploadSessionStore{
		client: deps.Client,
	}
}

func (s *redisUploadSessionStore) key(uploadID string) string {
	return fmt.Sprintf("%s:%s", uploadSessionKeyPrefix, uploadID)
}

func (s *redisUploadSessionStore) Put(ctx context.Context, session *domain.UploadSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal upload session: %w", err)
	}

	err = s.client.Set(ctx, s.key(session.ID), payload, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to save upload session: %w", err)
	}

	return nil
}

// Get returns ErrUploadNotFound for ids that are absent or whose TTL has
// passed; expiry and absence are indistinguishable on purpose.
func (s *redisUploadSessionStore) Get(ctx context.Context, id string) (*domain.UploadSession, error) {
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrUploadNotFound
		}

		return nil, fmt.Errorf("failed to get upload session: %w", err)
	}

	var session domain.UploadSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal upload session: %w", err)
	}

	return &session, nil
}

func (s *redisUploadSessionStore) Delete(ctx context.Context, id string) error {
	err := s.client.Del(ctx, s.key(id)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete upload session: %w", err)
	}

	return nil
}
