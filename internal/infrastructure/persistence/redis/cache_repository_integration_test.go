//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/alchemorsel/mealplan/test/testutils"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCacheRepository_AgainstRedis(t *testing.T) {
	ctx := context.Background()
	addr := testutils.SetupTestRedis(t)

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewCacheRepository(client, "test:", zap.NewNop())
	require.NoError(t, repo.Ping(ctx))

	_, err := repo.Get(ctx, "list")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "list", []byte("payload"), time.Minute))

	raw, err := client.Get(ctx, "test:list").Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), raw)

	exists, err := repo.Exists(ctx, "list")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, "list"))
	exists, err = repo.Exists(ctx, "list")
	require.NoError(t, err)
	assert.False(t, exists)
}
