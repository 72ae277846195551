package audit

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DefaultStream is the Redis stream audit events are appended to.
const DefaultStream = "strata:audit"

// RedisEmitter appends audit events to a Redis stream, where downstream
// consumers (SIEM forwarders, alerting) pick them up.
type RedisEmitter struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisEmitter creates a Redis-backed emitter. maxLen bounds the stream
// with approximate trimming; zero means unbounded.
func NewRedisEmitter(client *redis.Client, stream string, maxLen int64) (*RedisEmitter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if stream == "" {
		stream = DefaultStream
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisEmitter{client: client, stream: stream, maxLen: maxLen}, nil
}

// Emit appends one event to the stream.
func (e *RedisEmitter) Emit(ctx context.Context, event *Event) error {
	payload, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: e.stream,
		Values: map[string]interface{}{
			"id":    event.ID,
			"event": string(payload),
		},
	}
	if e.maxLen > 0 {
		args.MaxLen = e.maxLen
		args.Approx = true
	}

	if err := e.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (e *RedisEmitter) Close() error {
	return e.client.Close()
}
