package publish

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisChannel is where RedisSink announces published keys.
const DefaultRedisChannel = "pulse:published"

// RedisAPI is the part of *redis.Client a RedisSink needs.
type RedisAPI interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink stores bodies as Redis strings and announces every write on a
// pub/sub channel, so other processes can pick up the new page.
type RedisSink struct {
	client  RedisAPI
	prefix  string
	channel string
}

// NewRedisSink creates a sink storing under prefix+key. An empty channel
// disables announcements.
func NewRedisSink(client RedisAPI, prefix, channel string) *RedisSink {
	return &RedisSink{client: client, prefix: prefix, channel: channel}
}

// Name implements Sink.
func (s *RedisSink) Name() string {
	return "redis"
}

// Close closes the client if it can be closed.
func (s *RedisSink) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Publish sets prefix+key to body, then publishes the key on the channel.
// The content type is not stored.
func (s *RedisSink) Publish(ctx context.Context, key string, body []byte, _ string) error {
	if key == "" || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	full := s.prefix + key
	if err := s.client.Set(ctx, full, body, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	if s.channel == "" {
		return nil
	}
	if err := s.client.Publish(ctx, s.channel, full).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// NewRedisClient parses a redis:// or rediss:// URL into a client. No
// connection is made until the first command.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// IsRedisURL reports whether target names a Redis server.
func IsRedisURL(target string) bool {
	return strings.HasPrefix(target, "redis://") || strings.HasPrefix(target, "rediss://")
}
