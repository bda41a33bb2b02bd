package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list the records are pushed to
const DefaultRedisKey = "q3log"

// RedisStore keeps the log as a Redis list of JSON-encoded records
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ Store = (*RedisStore)(nil)

// OpenRedis connects to the server at rawURL and checks it answers
func OpenRedis(ctx context.Context, rawURL, key string) (*RedisStore, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return NewRedisStore(rdb, key), nil
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Append pushes the record to the tail of the list
func (s *RedisStore) Append(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding %s record: %w", rec.Action, err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("appending %s: %w", rec.Action, err)
	}
	RecordsAppended.WithLabelValues("redis").Inc()
	return nil
}

// Records reads the whole list. Entries that are not valid JSON records come
// back empty so that decoding them fails with ErrBadPayload downstream.
func (s *RedisStore) Records(ctx context.Context) ([]Record, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.key, err)
	}
	recs := make([]Record, 0, len(raw))
	for _, item := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			rec = Record{}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Reset deletes the list
func (s *RedisStore) Reset(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
