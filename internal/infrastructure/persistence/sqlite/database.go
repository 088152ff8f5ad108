// Package sqlite provides SQLite database setup and configuration
package sqlite

import (
	"fmt"
	"strings"

	gormModels "github.com/alchemorsel/mealplan/internal/infrastructure/persistence/gorm"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Fixed IDs of the demo recipes so local plans can reference them
var (
	SeedPancakesID  = uuid.MustParse("5b0f6c2e-8d1a-4f3e-9a61-2f4b7c9d0e11")
	SeedCarbonaraID = uuid.MustParse("a3c9e8d2-41b7-4c55-8f0e-6d2a1b3c4e22")
	SeedBuddhaID    = uuid.MustParse("c7d1f4a9-2e6b-4a83-b5c4-9e8f7a6b5c33")
)

// SetupDatabase creates and configures the SQLite database
func SetupDatabase(dbPath string, logLevel logger.LogLevel) (*gorm.DB, error) {
	// Use in-memory database if no path provided
	if dbPath == "" {
		dbPath = ":memory:"
	}
	inMemory := strings.HasPrefix(dbPath, ":memory:")

	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Every new connection to :memory: opens a separate empty database
	if inMemory {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(gormModels.AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// SeedDatabase populates the database with demo recipes
func SeedDatabase(db *gorm.DB) error {
	// Check if data already exists
	var recipeCount int64
	if err := db.Model(&gormModels.RecipeModel{}).Count(&recipeCount).Error; err != nil {
		return fmt.Errorf("failed to count recipes: %w", err)
	}
	if recipeCount > 0 {
		return nil // Already seeded
	}

	demoRecipes := []gormModels.RecipeModel{
		{
			ID:       SeedPancakesID,
			Title:    "Buttermilk Pancakes",
			Servings: 4,
			Ingredients: gormModels.IngredientList{
				{Name: "Flour", Amount: 2, Unit: "cup"},
				{Name: "Buttermilk", Amount: 2, Unit: "cups"},
				{Name: "Butter", Amount: 3, Unit: "tbsp"},
				{Name: "Sugar", Amount: 2, Unit: "tbsp"},
				{Name: "Baking powder", Amount: 2, Unit: "tsp"},
				{Name: "Eggs", Amount: 2},
				{Name: "Blueberries", Amount: 1, Unit: "cup", Optional: true},
			},
		},
		{
			ID:       SeedCarbonaraID,
			Title:    "Classic Spaghetti Carbonara",
			Servings: 4,
			Ingredients: gormModels.IngredientList{
				{Name: "Spaghetti", Amount: 400, Unit: "g"},
				{Name: "Pancetta", Amount: 150, Unit: "g"},
				{Name: "Eggs", Amount: 4, Unit: "piece"},
				{Name: "Pecorino Romano", Amount: 100, Unit: "g"},
				{Name: "Garlic", Amount: 2, Unit: "cloves"},
				{Name: "Black pepper", Amount: 1, Unit: "pinch"},
			},
		},
		{
			ID:       SeedBuddhaID,
			Title:    "Vegetarian Buddha Bowl",
			Servings: 2,
			Ingredients: gormModels.IngredientList{
				{Name: "Quinoa", Amount: 1, Unit: "cup"},
				{Name: "Sweet potato", Amount: 2, Unit: "piece"},
				{Name: "Chickpeas", Amount: 1, Unit: "can"},
				{Name: "Tahini", Amount: 3, Unit: "tbsp"},
				{Name: "Garlic", Amount: 1, Unit: "clove"},
				{Name: "Olive oil", Amount: 2, Unit: "tbsp"},
			},
		},
	}

	for i := range demoRecipes {
		for j := range demoRecipes[i].Ingredients {
			demoRecipes[i].Ingredients[j].ID = uuid.New()
		}
		if err := db.Create(&demoRecipes[i]).Error; err != nil {
			return fmt.Errorf("failed to create demo recipe: %w", err)
		}
	}

	return nil
}
