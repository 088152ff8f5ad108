// Package recipe contains the recipe read model consumed by the shopping list.
// Recipe CRUD lives elsewhere; this package only keeps what aggregation needs.
package recipe

import (
	"strings"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/shared"
	"github.com/alchemorsel/mealplan/internal/domain/shopping"
	"github.com/google/uuid"
)

// Recipe represents a recipe as a source of shopping list contributions
type Recipe struct {
	shared.AggregateRoot

	id          uuid.UUID
	title       string
	servings    int
	ingredients []Ingredient

	createdAt time.Time
	updatedAt time.Time
}

// NewRecipe creates a new Recipe with validation
func NewRecipe(title string, servings int, ingredients []Ingredient) (*Recipe, error) {
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if servings <= 0 {
		return nil, ErrInvalidServings
	}
	for _, ingredient := range ingredients {
		if err := ingredient.Validate(); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	recipe := &Recipe{
		id:          uuid.New(),
		title:       strings.TrimSpace(title),
		servings:    servings,
		ingredients: withIDs(ingredients),
		createdAt:   now,
		updatedAt:   now,
	}

	recipe.AddEvent(RecipeCreatedEvent{
		RecipeID:  recipe.id,
		Title:     recipe.title,
		CreatedAt: now,
	})

	return recipe, nil
}

// RestoreRecipe rebuilds a recipe from storage without validation or events
func RestoreRecipe(id uuid.UUID, title string, servings int, ingredients []Ingredient, createdAt, updatedAt time.Time) *Recipe {
	return &Recipe{
		id:          id,
		title:       title,
		servings:    servings,
		ingredients: ingredients,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// ID returns the recipe's unique identifier
func (r *Recipe) ID() uuid.UUID {
	return r.id
}

// Title returns the recipe's title
func (r *Recipe) Title() string {
	return r.title
}

// Servings returns the number of servings the ingredient amounts are written for
func (r *Recipe) Servings() int {
	return r.servings
}

// Ingredients returns a copy of the recipe's ingredients
func (r *Recipe) Ingredients() []Ingredient {
	return append([]Ingredient(nil), r.ingredients...)
}

// CreatedAt returns when the recipe was created
func (r *Recipe) CreatedAt() time.Time {
	return r.createdAt
}

// UpdatedAt returns when the recipe was last changed
func (r *Recipe) UpdatedAt() time.Time {
	return r.updatedAt
}

// ScaleFactor returns the multiplier applied to ingredient amounts when the
// recipe is planned for entryServings. Zero or negative means the recipe's own
// servings.
func (r *Recipe) ScaleFactor(entryServings int) float64 {
	if entryServings <= 0 || r.servings <= 0 {
		return 1
	}
	return float64(entryServings) / float64(r.servings)
}

// Contributions derives the shopping list contributions of one planner entry.
// Optional ingredients are left off the list.
func (r *Recipe) Contributions(entryID uuid.UUID, entryServings int) []shopping.Contribution {
	factor := r.ScaleFactor(entryServings)
	contributions := make([]shopping.Contribution, 0, len(r.ingredients))
	for _, ingredient := range r.ingredients {
		if ingredient.Optional {
			continue
		}
		contributions = append(contributions, shopping.NewContribution(
			ingredient.Name,
			r.id,
			entryID,
			ingredient.Amount*factor,
			ingredient.Unit,
		))
	}
	return contributions
}

func validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if len(title) < 3 {
		return ErrTitleTooShort
	}
	if len(title) > 200 {
		return ErrTitleTooLong
	}
	return nil
}

func withIDs(ingredients []Ingredient) []Ingredient {
	result := make([]Ingredient, len(ingredients))
	for i, ingredient := range ingredients {
		if ingredient.ID == uuid.Nil {
			ingredient.ID = uuid.New()
		}
		result[i] = ingredient
	}
	return result
}
