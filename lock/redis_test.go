package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a real server: REDIS_TEST_ADDR=localhost:6379 go test ./lock
func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, Options{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	key := "dtracker:test:" + uuid.NewString()
	first := NewRedisLocker(client, key, time.Minute)
	second := NewRedisLocker(client, key, time.Minute)

	release, ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "lock must be exclusive")

	release()

	release2, ok, err := second.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}
