package drafts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/projectshelf/backend/errs"
)

// RedisStore keeps drafts as JSON strings with a TTL so abandoned drafts expire.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects and pings Redis at addr.
func NewRedisStore(ctx context.Context, addr, password string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errs.NewInternalErrorWithCause("connect to redis", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Get(ctx context.Context, profileID uuid.UUID, key string) (*Draft, error) {
	raw, err := s.client.Get(ctx, StorageKey(profileID, key)).Bytes()
	if err == redis.Nil {
		return nil, errs.NewNotFound("draft")
	}
	if err != nil {
		return nil, errs.NewInternalErrorWithCause("read draft", err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, errs.NewInternalErrorWithCause("decode draft", err)
	}
	return &d, nil
}

func (s *RedisStore) Put(ctx context.Context, profileID uuid.UUID, d *Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return errs.NewInternalErrorWithCause("encode draft", err)
	}
	if err := s.client.Set(ctx, StorageKey(profileID, d.Key), raw, s.ttl).Err(); err != nil {
		return errs.NewInternalErrorWithCause("write draft", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, profileID uuid.UUID, key string) error {
	if err := s.client.Del(ctx, StorageKey(profileID, key)).Err(); err != nil {
		return errs.NewInternalErrorWithCause("delete draft", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
