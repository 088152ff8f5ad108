package gorm_test

import (
	"context"
	"testing"

	"github.com/alchemorsel/mealplan/internal/domain/recipe"
	"github.com/alchemorsel/mealplan/internal/domain/shopping"
	gormrepo "github.com/alchemorsel/mealplan/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/sqlite"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RepositoryTestSuite runs the GORM repositories against in-memory SQLite
type RepositoryTestSuite struct {
	suite.Suite
	db      *gorm.DB
	recipes outbound.RecipeRepository
	lists   outbound.ShoppingListRepository
	ctx     context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	db, err := sqlite.SetupDatabase(":memory:", logger.Silent)
	s.Require().NoError(err)
	s.db = db
	s.recipes = gormrepo.NewRecipeRepository(db)
	s.lists = gormrepo.NewShoppingListRepository(db)
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (s *RepositoryTestSuite) countContributions() int64 {
	var n int64
	s.Require().NoError(s.db.Model(&gormrepo.ShoppingContributionModel{}).Count(&n).Error)
	return n
}

func (s *RepositoryTestSuite) TestRecipeRepository() {
	// Arrange
	r, err := recipe.NewRecipe("Pancakes", 4, []recipe.Ingredient{
		{Name: "Flour", Amount: 2, Unit: "cup"},
		{Name: "Blueberries", Amount: 1, Unit: "cup", Optional: true},
	})
	require.NoError(s.T(), err)

	// Act
	require.NoError(s.T(), s.recipes.Create(s.ctx, r))
	found, err := s.recipes.FindByID(s.ctx, r.ID())

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), r.Title(), found.Title())
	assert.Equal(s.T(), 4, found.Servings())
	assert.Equal(s.T(), r.Ingredients(), found.Ingredients())

	_, err = s.recipes.FindByID(s.ctx, uuid.New())
	assert.Equal(s.T(), recipe.ErrRecipeNotFound, err)

	many, err := s.recipes.FindByIDs(s.ctx, []uuid.UUID{r.ID(), uuid.New()})
	require.NoError(s.T(), err)
	assert.Len(s.T(), many, 1)

	none, err := s.recipes.FindByIDs(s.ctx, nil)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), none)
}

func (s *RepositoryTestSuite) TestLoad_MissingListIsEmpty() {
	list, err := s.lists.Load(s.ctx, uuid.New())

	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(0), list.Version())
	assert.Empty(s.T(), list.Lines())
}

func (s *RepositoryTestSuite) TestSaveAndLoad_RoundTrip() {
	// Arrange
	userID := uuid.New()
	entryA, entryB, recipeID := uuid.New(), uuid.New(), uuid.New()
	list := shopping.NewList(userID)
	list.AddContributions(entryA, []shopping.Contribution{
		{IngredientName: "Flour", RecipeID: recipeID, Quantity: 2, Unit: "cup"},
		{IngredientName: "Garlic", RecipeID: recipeID, Quantity: 3, Unit: "clove"},
	})
	list.AddContributions(entryB, []shopping.Contribution{
		{IngredientName: "Flour", RecipeID: recipeID, Quantity: 1, Unit: "cup"},
	})
	manual, err := list.AddManualItem("Paper towels", 2, "pkg")
	require.NoError(s.T(), err)
	_, err = list.SetHave(manual.ID, true)
	require.NoError(s.T(), err)

	// Act
	require.NoError(s.T(), s.lists.Save(s.ctx, list))
	loaded, err := s.lists.Load(s.ctx, userID)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), list.Version())
	assert.Equal(s.T(), int64(1), loaded.Version())
	require.Len(s.T(), loaded.Lines(), 3)

	flour, ok := loaded.LineByKey(shopping.KeyFor("flour", "cup"))
	require.True(s.T(), ok)
	assert.InDelta(s.T(), 709.764, flour.TotalBaseQuantity, 1e-6)
	assert.Equal(s.T(), "cups", flour.DisplayUnit)
	assert.Len(s.T(), flour.Contributions, 2)
	assert.Equal(s.T(), entryA, flour.Contributions[0].PlannerEntryID)

	restoredManual, ok := loaded.Line(manual.ID)
	require.True(s.T(), ok)
	assert.True(s.T(), restoredManual.Manual)
	assert.True(s.T(), restoredManual.Have)
	assert.Equal(s.T(), []uuid.UUID{entryA, entryB}, loaded.Entries())
	assert.Equal(s.T(), int64(3), s.countContributions())
}

func (s *RepositoryTestSuite) TestSave_DiffsContributions() {
	// Arrange
	userID := uuid.New()
	entryA, entryB, recipeID := uuid.New(), uuid.New(), uuid.New()
	list := shopping.NewList(userID)
	list.AddContributions(entryA, []shopping.Contribution{{IngredientName: "Flour", RecipeID: recipeID, Quantity: 2, Unit: "cup"}})
	list.AddContributions(entryB, []shopping.Contribution{
		{IngredientName: "Flour", RecipeID: recipeID, Quantity: 1, Unit: "cup"},
		{IngredientName: "Salt", RecipeID: recipeID, Quantity: 1, Unit: "pinch"},
	})
	require.NoError(s.T(), s.lists.Save(s.ctx, list))

	// Act
	reloaded, err := s.lists.Load(s.ctx, userID)
	require.NoError(s.T(), err)
	reloaded.RemoveContributions(entryB)
	require.NoError(s.T(), s.lists.Save(s.ctx, reloaded))

	// Assert
	final, err := s.lists.Load(s.ctx, userID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), final.Version())
	require.Len(s.T(), final.Lines(), 1)
	assert.InDelta(s.T(), 473.176, final.Lines()[0].TotalBaseQuantity, 1e-6)
	assert.Equal(s.T(), int64(1), s.countContributions())

	var items int64
	require.NoError(s.T(), s.db.Model(&gormrepo.ShoppingItemModel{}).Count(&items).Error)
	assert.Equal(s.T(), int64(1), items)
}

func (s *RepositoryTestSuite) TestSave_RebuildUpdatesScaledQuantities() {
	userID := uuid.New()
	entry, recipeID := uuid.New(), uuid.New()
	list := shopping.NewList(userID)
	list.AddContributions(entry, []shopping.Contribution{{IngredientName: "Rice", RecipeID: recipeID, Quantity: 100, Unit: "g"}})
	require.NoError(s.T(), s.lists.Save(s.ctx, list))

	list.Rebuild([]shopping.EntryContributions{{
		EntryID:       entry,
		Contributions: []shopping.Contribution{{IngredientName: "Rice", RecipeID: recipeID, Quantity: 250, Unit: "g"}},
	}})
	require.NoError(s.T(), s.lists.Save(s.ctx, list))

	var row gormrepo.ShoppingContributionModel
	require.NoError(s.T(), s.db.First(&row).Error)
	assert.Equal(s.T(), 250.0, row.BaseQuantity)
	assert.Equal(s.T(), int64(1), s.countContributions())
}

func (s *RepositoryTestSuite) TestSave_StaleVersionConflicts() {
	// Arrange
	userID := uuid.New()
	first := shopping.NewList(userID)
	first.AddManualItem("Milk", 1, "l")
	require.NoError(s.T(), s.lists.Save(s.ctx, first))

	a, err := s.lists.Load(s.ctx, userID)
	require.NoError(s.T(), err)
	b, err := s.lists.Load(s.ctx, userID)
	require.NoError(s.T(), err)

	// Act
	a.AddManualItem("Bread", 1, "")
	require.NoError(s.T(), s.lists.Save(s.ctx, a))
	b.AddManualItem("Cheese", 200, "g")
	err = s.lists.Save(s.ctx, b)

	// Assert
	assert.ErrorIs(s.T(), err, shopping.ErrListVersionConflict)
	final, err := s.lists.Load(s.ctx, userID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), final.Lines(), 2)
}

func (s *RepositoryTestSuite) TestSave_ConcurrentCreateConflicts() {
	userID := uuid.New()
	require.NoError(s.T(), s.lists.Save(s.ctx, shopping.NewList(userID)))

	err := s.lists.Save(s.ctx, shopping.NewList(userID))

	assert.ErrorIs(s.T(), err, shopping.ErrListVersionConflict)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
