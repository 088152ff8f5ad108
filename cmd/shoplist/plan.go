package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/recipe"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// planFile is the YAML document read by `shoplist aggregate`
type planFile struct {
	User    string       `yaml:"user" validate:"omitempty,uuid"`
	Recipes []planRecipe `yaml:"recipes" validate:"required,min=1,dive"`
	Entries []planEntry  `yaml:"entries" validate:"dive"`
	Items   []planItem   `yaml:"items" validate:"dive"`
}

type planRecipe struct {
	ID          string           `yaml:"id" validate:"required,uuid"`
	Title       string           `yaml:"title" validate:"required"`
	Servings    int              `yaml:"servings" validate:"gt=0"`
	Ingredients []planIngredient `yaml:"ingredients" validate:"dive"`
}

type planIngredient struct {
	Name     string  `yaml:"name" validate:"required"`
	Amount   float64 `yaml:"amount" validate:"gte=0"`
	Unit     string  `yaml:"unit" validate:"max=32"`
	Optional bool    `yaml:"optional"`
}

type planEntry struct {
	ID       string `yaml:"id" validate:"omitempty,uuid"`
	Recipe   string `yaml:"recipe" validate:"required,uuid"`
	Servings int    `yaml:"servings" validate:"gte=0"`
}

type planItem struct {
	Name     string  `yaml:"name" validate:"required"`
	Quantity float64 `yaml:"quantity" validate:"gte=0"`
	Unit     string  `yaml:"unit" validate:"max=32"`
}

// plan is a validated planFile with parsed identifiers
type plan struct {
	UserID  uuid.UUID
	Recipes []*recipe.Recipe
	Entries []inbound.PlannedEntry
	Items   []planItem
}

func loadPlan(path string) (*plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan: %w", err)
	}
	defer f.Close()
	return decodePlan(f)
}

func decodePlan(r io.Reader) (*plan, error) {
	var file planFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	p := &plan{UserID: uuid.New(), Items: file.Items}
	if file.User != "" {
		p.UserID = uuid.MustParse(file.User)
	}

	known := make(map[uuid.UUID]struct{}, len(file.Recipes))
	now := time.Now()
	for _, r := range file.Recipes {
		ingredients := make([]recipe.Ingredient, len(r.Ingredients))
		for i, ing := range r.Ingredients {
			ingredients[i] = recipe.Ingredient{
				Name:     ing.Name,
				Amount:   ing.Amount,
				Unit:     ing.Unit,
				Optional: ing.Optional,
			}
		}
		validated, err := recipe.NewRecipe(r.Title, r.Servings, ingredients)
		if err != nil {
			return nil, fmt.Errorf("recipe %q: %w", r.Title, err)
		}

		id := uuid.MustParse(r.ID)
		if _, dup := known[id]; dup {
			return nil, fmt.Errorf("duplicate recipe id %s", id)
		}
		known[id] = struct{}{}
		p.Recipes = append(p.Recipes, recipe.RestoreRecipe(id, validated.Title(), validated.Servings(), validated.Ingredients(), now, now))
	}

	seen := make(map[uuid.UUID]struct{}, len(file.Entries))
	for _, e := range file.Entries {
		recipeID := uuid.MustParse(e.Recipe)
		if _, ok := known[recipeID]; !ok {
			return nil, fmt.Errorf("entry references unknown recipe %s", recipeID)
		}

		entryID := uuid.New()
		if e.ID != "" {
			entryID = uuid.MustParse(e.ID)
		}
		if _, dup := seen[entryID]; dup {
			return nil, fmt.Errorf("duplicate entry id %s", entryID)
		}
		seen[entryID] = struct{}{}

		p.Entries = append(p.Entries, inbound.PlannedEntry{
			EntryID:  entryID,
			RecipeID: recipeID,
			Servings: e.Servings,
		})
	}

	return p, nil
}
