package ratelimit

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/policy-decoder/pkg/logger"
)

func TestMemoryLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(3)

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}

	ok, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok, "keys are limited independently")
}

func TestMemoryLimiter_Disabled(t *testing.T) {
	l := NewMemoryLimiter(0)
	for i := 0; i < 100; i++ {
		ok, err := l.Allow(context.Background(), "k")
		require.NoError(t, err)
		require.True(t, ok)
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestFallback(t *testing.T) {
	log := logger.NewTestLogger()
	f := &Fallback{Primary: failingLimiter{}, Secondary: Unlimited{}, Logger: log}

	ok, err := f.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, log.EntriesAt("WARN"), 1)
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client, err := NewRedisClient(RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	l := NewRedisLimiter(client, 2, logger.NewNop())
	key := "test-" + uuid.NewString()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisClient_RequiresAddr(t *testing.T) {
	_, err := NewRedisClient(RedisConfig{})
	assert.Error(t, err)
}
