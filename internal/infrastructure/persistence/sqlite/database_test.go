package sqlite

import (
	"testing"

	gormModels "github.com/alchemorsel/mealplan/internal/infrastructure/persistence/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestSetupAndSeed(t *testing.T) {
	db, err := SetupDatabase("", logger.Silent)
	require.NoError(t, err)

	for _, model := range gormModels.AllModels() {
		assert.True(t, db.Migrator().HasTable(model))
	}

	require.NoError(t, SeedDatabase(db))
	require.NoError(t, SeedDatabase(db), "seeding twice is a no-op")

	var count int64
	require.NoError(t, db.Model(&gormModels.RecipeModel{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	var pancakes gormModels.RecipeModel
	require.NoError(t, db.First(&pancakes, "id = ?", SeedPancakesID).Error)
	assert.Equal(t, 4, pancakes.Servings)
	assert.Len(t, pancakes.Ingredients, 7)
	assert.True(t, pancakes.Ingredients[6].Optional)
}
