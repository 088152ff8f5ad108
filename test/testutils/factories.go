package testutils

import (
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/recipe"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

var pantryUnits = []string{"g", "kg", "oz", "lbs", "ml", "cups", "tbsp", "tsp", "clove", "can", ""}

// RecipeFactory provides methods to create test recipes
type RecipeFactory struct {
	faker *gofakeit.Faker
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{
		faker: gofakeit.New(seed),
	}
}

// Ingredient returns a random ingredient measured in a random known unit
func (f *RecipeFactory) Ingredient() recipe.Ingredient {
	return recipe.Ingredient{
		Name:   f.faker.Vegetable(),
		Amount: f.faker.Float64Range(0.25, 4),
		Unit:   f.faker.RandomString(pantryUnits),
	}
}

// Recipe creates a valid recipe with the given number of ingredients
func (f *RecipeFactory) Recipe(ingredientCount int) *recipe.Recipe {
	ingredients := make([]recipe.Ingredient, ingredientCount)
	for i := range ingredients {
		ingredients[i] = f.Ingredient()
	}

	r, err := recipe.NewRecipe(f.faker.Dessert()+" "+f.faker.Noun(), f.faker.Number(1, 8), ingredients)
	if err != nil {
		panic(err)
	}
	r.ClearEvents()
	return r
}

// RecipeBuilder provides a fluent interface for building test recipes
type RecipeBuilder struct {
	title       string
	servings    int
	ingredients []recipe.Ingredient
}

// NewRecipeBuilder creates a new recipe builder with default values
func NewRecipeBuilder() *RecipeBuilder {
	faker := gofakeit.New(time.Now().UnixNano())

	return &RecipeBuilder{
		title:    faker.Lunch(),
		servings: 4,
	}
}

// WithTitle sets the recipe title
func (rb *RecipeBuilder) WithTitle(title string) *RecipeBuilder {
	rb.title = title
	return rb
}

// WithServings sets the recipe's base servings
func (rb *RecipeBuilder) WithServings(servings int) *RecipeBuilder {
	rb.servings = servings
	return rb
}

// WithIngredient appends an ingredient line
func (rb *RecipeBuilder) WithIngredient(name string, amount float64, unit string) *RecipeBuilder {
	rb.ingredients = append(rb.ingredients, recipe.Ingredient{Name: name, Amount: amount, Unit: unit})
	return rb
}

// WithOptionalIngredient appends an ingredient that is left off shopping lists
func (rb *RecipeBuilder) WithOptionalIngredient(name string, amount float64, unit string) *RecipeBuilder {
	rb.ingredients = append(rb.ingredients, recipe.Ingredient{Name: name, Amount: amount, Unit: unit, Optional: true})
	return rb
}

// Build creates the recipe
func (rb *RecipeBuilder) Build() (*recipe.Recipe, error) {
	r, err := recipe.NewRecipe(rb.title, rb.servings, rb.ingredients)
	if err != nil {
		return nil, err
	}
	r.ClearEvents()
	return r, nil
}

// MustBuild creates the recipe and panics on validation errors
func (rb *RecipeBuilder) MustBuild() *recipe.Recipe {
	r, err := rb.Build()
	if err != nil {
		panic(err)
	}
	return r
}

// PlannedEntry returns a planner entry for the recipe at the given servings
func PlannedEntry(r *recipe.Recipe, servings int) inbound.PlannedEntry {
	return inbound.PlannedEntry{
		EntryID:  uuid.New(),
		RecipeID: r.ID(),
		Servings: servings,
	}
}
