package redislock_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jhoicas/inventario-bom/internal/infrastructure/redislock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requiere un Redis real: REDIS_URL=redis://localhost:6379/15 go test ./...
func TestLock_Exclusion(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL no definido")
	}
	ctx := context.Background()
	client, err := redislock.Connect(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	key := "test:conversion:lock:" + time.Now().Format("150405.000000")
	a := redislock.New(client, key, 300*time.Millisecond)
	b := redislock.New(client, key, 300*time.Millisecond)

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// La renovación mantiene el lock más allá del TTL.
	time.Sleep(500 * time.Millisecond)
	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Unlock(ctx))
	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Unlock(ctx))
}
