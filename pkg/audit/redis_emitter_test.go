package audit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/strata/pkg/classify"
)

func setupRedisEmitter(t *testing.T) (*RedisEmitter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	emitter, err := NewRedisEmitter(client, "", 1000)
	require.NoError(t, err)
	t.Cleanup(func() { emitter.Close() })

	return emitter, mr
}

func TestNewRedisEmitter_NilClient(t *testing.T) {
	emitter, err := NewRedisEmitter(nil, "", 0)
	assert.Error(t, err)
	assert.Nil(t, emitter)
}

func TestNewRedisEmitter_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	emitter, err := NewRedisEmitter(client, "", 0)
	assert.Error(t, err)
	assert.Nil(t, emitter)
}

func TestRedisEmitter_Emit(t *testing.T) {
	emitter, mr := setupRedisEmitter(t)

	event := &Event{
		ID:             "evt-1",
		Timestamp:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Actor:          SystemActor,
		Key:            "email.smtp.host",
		Tier:           classify.TierInternal,
		SanitizedValue: "s***t",
		Source:         SourceGlobal,
		Success:        true,
	}

	require.NoError(t, emitter.Emit(context.Background(), event))

	reader := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer reader.Close()

	entries, err := reader.XRange(context.Background(), DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	payload, ok := entries[0].Values["event"].(string)
	require.True(t, ok)

	decoded, err := FromJSON([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "email.smtp.host", decoded.Key)
	assert.Equal(t, classify.TierInternal, decoded.Tier)
	assert.Equal(t, SourceGlobal, decoded.Source)
	assert.True(t, decoded.Success)
}

func TestRedisEmitter_EmitAfterServerStop(t *testing.T) {
	emitter, mr := setupRedisEmitter(t)
	mr.Close()

	err := emitter.Emit(context.Background(), &Event{ID: "evt-2", Timestamp: time.Now().UTC()})
	assert.Error(t, err)
}
