package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/recipe"
	"github.com/alchemorsel/mealplan/internal/domain/shopping"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRepository_Expiry(t *testing.T) {
	ctx := context.Background()
	cache := NewCacheRepository()
	defer cache.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	exists, err := cache.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	now = now.Add(2 * time.Minute)
	_, err = cache.Get(ctx, "k")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)

	cache.evictExpired()
	assert.Empty(t, cache.data)
}

func TestCacheRepository_DeleteAndMiss(t *testing.T) {
	ctx := context.Background()
	cache := NewCacheRepository()
	defer cache.Close()

	_, err := cache.Get(ctx, "missing")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, cache.Delete(ctx, "k"))

	exists, err := cache.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestShoppingListRepository_VersionCheck(t *testing.T) {
	ctx := context.Background()
	repo := NewShoppingListRepository()
	userID := uuid.New()

	first, err := repo.Load(ctx, userID)
	require.NoError(t, err)
	stale, err := repo.Load(ctx, userID)
	require.NoError(t, err)

	_, err = first.AddManualItem("Paper Towels", 2, "")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))
	assert.Equal(t, int64(1), first.Version())

	_, err = stale.AddManualItem("Foil", 1, "")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Save(ctx, stale), shopping.ErrListVersionConflict)

	reloaded, err := repo.Load(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reloaded.Version())
	require.Len(t, reloaded.Lines(), 1)
	assert.Equal(t, "paper towels", reloaded.Lines()[0].IngredientName)
}

func TestRecipeRepository(t *testing.T) {
	ctx := context.Background()
	rec, err := recipe.NewRecipe("Toast", 1, []recipe.Ingredient{{Name: "bread", Amount: 2, Unit: "slices"}})
	require.NoError(t, err)

	repo := NewRecipeRepository()
	require.NoError(t, repo.Create(ctx, rec))

	found, err := repo.FindByID(ctx, rec.ID())
	require.NoError(t, err)
	assert.Equal(t, "Toast", found.Title())

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, recipe.ErrRecipeNotFound)

	many, err := repo.FindByIDs(ctx, []uuid.UUID{uuid.New(), rec.ID()})
	require.NoError(t, err)
	assert.Len(t, many, 1)
}
