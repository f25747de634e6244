package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/sift/internal/model"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisRecord is the key the snapshot is stored under.
const DefaultRedisRecord = "sift:cache"

// RedisStore keeps the whole snapshot as one JSON value under a single key.
type RedisStore struct {
	client *redis.Client
	record string
}

// NewRedisStore connects to the redis server at url, e.g.
// redis://localhost:6379/0.
func NewRedisStore(ctx context.Context, url, record string) (*RedisStore, error) {
	if err := validateString(url, "redis url"); err != nil {
		return nil, err
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return newRedisStore(client, record), nil
}

func newRedisStore(client *redis.Client, record string) *RedisStore {
	if record == "" {
		record = DefaultRedisRecord
	}
	return &RedisStore{client: client, record: record}
}

// Load reads the snapshot. A missing record is an empty snapshot.
func (s *RedisStore) Load(ctx context.Context) ([]model.CacheEntry, error) {
	data, err := s.client.Get(ctx, s.record).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.record, err)
	}
	return decodeSnapshot(data)
}

// Save overwrites the snapshot record.
func (s *RedisStore) Save(ctx context.Context, entries []model.CacheEntry) error {
	if err := validateEntries(entries); err != nil {
		return err
	}

	data, err := encodeSnapshot(entries, time.Now())
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.record, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.record, err)
	}
	return nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
