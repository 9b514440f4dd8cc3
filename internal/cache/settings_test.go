package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Redis when REDIS_ADDR is set.
func newTestCache(t *testing.T) *SettingsCache {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client, err := NewClient(context.Background(), addr, "", 15)
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Del(context.Background(), settingsKey)
		_ = client.Close()
	})

	client.Del(context.Background(), settingsKey)
	return NewSettingsCache(slog.New(slog.NewTextHandler(io.Discard, nil)), client, time.Minute)
}

func TestSettingsCache_MissThenHit(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Store(ctx, map[string]string{"min_investment_amount": "5000"}))

	values, ok, err := c.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]string{"min_investment_amount": "5000"}, values)
}

func TestSettingsCache_StoreReplacesHash(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, c.Store(ctx, map[string]string{"a": "3"}))

	values, ok, err := c.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]string{"a": "3"}, values)

	ttl, err := c.client.TTL(ctx, settingsKey).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}

func TestNewClient_Unreachable(t *testing.T) {
	_, err := NewClient(context.Background(), "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
