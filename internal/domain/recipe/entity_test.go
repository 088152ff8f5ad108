package recipe_test

import (
	"strings"
	"testing"

	"github.com/alchemorsel/mealplan/internal/domain/recipe"
	"github.com/alchemorsel/mealplan/internal/domain/units"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RecipeTestSuite provides a test suite for Recipe entity
type RecipeTestSuite struct {
	suite.Suite
}

func pancakeIngredients() []recipe.Ingredient {
	return []recipe.Ingredient{
		{Name: "Flour", Amount: 2, Unit: "cup"},
		{Name: "Milk", Amount: 1.5, Unit: "cups"},
		{Name: "Eggs", Amount: 2},
		{Name: "Blueberries", Amount: 1, Unit: "cup", Optional: true},
	}
}

// TestRecipeCreation tests recipe creation scenarios
func (suite *RecipeTestSuite) TestRecipeCreation() {
	suite.Run("ValidRecipe_ShouldCreateSuccessfully", func() {
		// Arrange
		title := "  Pancakes "

		// Act
		r, err := recipe.NewRecipe(title, 4, pancakeIngredients())

		// Assert
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), "Pancakes", r.Title())
		assert.Equal(suite.T(), 4, r.Servings())
		assert.NotEqual(suite.T(), uuid.Nil, r.ID())
		assert.NotZero(suite.T(), r.CreatedAt())
		for _, ingredient := range r.Ingredients() {
			assert.NotEqual(suite.T(), uuid.Nil, ingredient.ID)
		}

		events := r.Events()
		require.Len(suite.T(), events, 1)
		created, ok := events[0].(recipe.RecipeCreatedEvent)
		assert.True(suite.T(), ok, "Should emit RecipeCreatedEvent")
		assert.Equal(suite.T(), r.ID(), created.RecipeID)
	})

	suite.Run("TitleTooShort_ShouldReturnError", func() {
		r, err := recipe.NewRecipe("AB", 2, nil)

		assert.Nil(suite.T(), r)
		assert.Equal(suite.T(), recipe.ErrTitleTooShort, err)
	})

	suite.Run("TitleTooLong_ShouldReturnError", func() {
		_, err := recipe.NewRecipe(strings.Repeat("a", 201), 2, nil)

		assert.Equal(suite.T(), recipe.ErrTitleTooLong, err)
	})

	suite.Run("ZeroServings_ShouldReturnError", func() {
		_, err := recipe.NewRecipe("Toast", 0, nil)

		assert.Equal(suite.T(), recipe.ErrInvalidServings, err)
	})

	suite.Run("InvalidIngredient_ShouldReturnError", func() {
		_, err := recipe.NewRecipe("Toast", 1, []recipe.Ingredient{{Name: " ", Amount: 1}})
		assert.Equal(suite.T(), recipe.ErrIngredientName, err)

		_, err = recipe.NewRecipe("Toast", 1, []recipe.Ingredient{{Name: "Bread", Amount: -1}})
		assert.Equal(suite.T(), recipe.ErrNegativeAmount, err)
	})
}

// TestContributions tests how a planned recipe feeds the shopping list
func (suite *RecipeTestSuite) TestContributions() {
	r, err := recipe.NewRecipe("Pancakes", 4, pancakeIngredients())
	require.NoError(suite.T(), err)
	entryID := uuid.New()

	suite.Run("DefaultServings_UsesRecipeAmounts", func() {
		// Act
		contributions := r.Contributions(entryID, 0)

		// Assert
		require.Len(suite.T(), contributions, 3, "optional ingredients are skipped")
		flour := contributions[0]
		assert.Equal(suite.T(), "flour", flour.IngredientName)
		assert.Equal(suite.T(), r.ID(), flour.RecipeID)
		assert.Equal(suite.T(), entryID, flour.PlannerEntryID)
		assert.Equal(suite.T(), 2.0, flour.Quantity)
		assert.Equal(suite.T(), units.DimensionVolume, flour.Dimension)
		assert.InDelta(suite.T(), 473.176, flour.BaseQuantity, 1e-9)
		assert.Equal(suite.T(), units.DimensionCount, contributions[2].Dimension)
	})

	suite.Run("EntryServings_ScaleAmounts", func() {
		contributions := r.Contributions(entryID, 2)

		require.Len(suite.T(), contributions, 3)
		assert.Equal(suite.T(), 1.0, contributions[0].Quantity)
		assert.Equal(suite.T(), 0.75, contributions[1].Quantity)
		assert.Equal(suite.T(), 1.0, contributions[2].Quantity)
	})

	suite.Run("ScaleFactor", func() {
		assert.Equal(suite.T(), 1.0, r.ScaleFactor(-3))
		assert.Equal(suite.T(), 1.0, r.ScaleFactor(4))
		assert.Equal(suite.T(), 2.0, r.ScaleFactor(8))
	})
}

func TestRecipeTestSuite(t *testing.T) {
	suite.Run(t, new(RecipeTestSuite))
}
