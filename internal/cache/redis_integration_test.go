//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_PrefixInvalidation(t *testing.T) {
	rawURL := os.Getenv("REDIS_URL")
	if rawURL == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := OpenRedis(ctx, rawURL)
	require.NoError(t, err)
	defer client.Close()

	store := NewRedisStore(client, "admin-test:"+time.Now().Format("150405.000")+":")
	c := New(store)

	require.NoError(t, c.Set(ctx, "alice", K("all-slots", "2025-03-01", "2025-04-12"), []byte("x"), time.Minute))
	require.NoError(t, c.Set(ctx, "bob", K("all-slots", "2025-03-01", "2025-04-12"), []byte("y"), time.Minute))
	require.NoError(t, c.Set(ctx, "bob", K("available-slots", "pickup"), []byte("z"), time.Minute))

	n, err := c.Invalidate(ctx, K("all-slots"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, err := c.Get(ctx, "bob", K("available-slots", "pickup"))
	require.NoError(t, err)
	assert.True(t, ok)
}
