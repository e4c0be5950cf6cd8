package stream

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/redis/go-redis/v9"
)

const (
	StreamCalendarState = "calendar:state"

	// DefaultMaxLen caps the stream length; trimming is approximate.
	DefaultMaxLen = 10000
)

// streamWriter is the subset of redis.Cmdable the stream needs.
type streamWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

type RedisStream struct {
	client streamWriter
	maxLen int64
}

func NewRedisStream(client streamWriter, maxLen int64) *RedisStream {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &RedisStream{
		client: client,
		maxLen: maxLen,
	}
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return redis.NewClient(opt), nil
}

func (s *RedisStream) Publish(ctx context.Context, stream string, data any) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{"data": jsonData},
	}).Result()
}
