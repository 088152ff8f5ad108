// Package gorm provides mapping between domain entities and GORM models
package gorm

import (
	"github.com/alchemorsel/mealplan/internal/domain/recipe"
	"github.com/alchemorsel/mealplan/internal/domain/shopping"
	"github.com/alchemorsel/mealplan/internal/domain/units"
	"github.com/google/uuid"
)

// RecipeToModel converts a domain recipe to a GORM model
func RecipeToModel(r *recipe.Recipe) *RecipeModel {
	ingredients := r.Ingredients()
	records := make(IngredientList, len(ingredients))
	for i, ing := range ingredients {
		records[i] = IngredientRecord{
			ID:       ing.ID,
			Name:     ing.Name,
			Amount:   ing.Amount,
			Unit:     ing.Unit,
			Optional: ing.Optional,
			Notes:    ing.Notes,
		}
	}

	return &RecipeModel{
		ID:          r.ID(),
		Title:       r.Title(),
		Servings:    r.Servings(),
		Ingredients: records,
		CreatedAt:   r.CreatedAt(),
		UpdatedAt:   r.UpdatedAt(),
	}
}

// ModelToRecipe converts a GORM model to a domain recipe
func ModelToRecipe(model *RecipeModel) *recipe.Recipe {
	ingredients := make([]recipe.Ingredient, len(model.Ingredients))
	for i, rec := range model.Ingredients {
		ingredients[i] = recipe.Ingredient{
			ID:       rec.ID,
			Name:     rec.Name,
			Amount:   rec.Amount,
			Unit:     rec.Unit,
			Optional: rec.Optional,
			Notes:    rec.Notes,
		}
	}

	return recipe.RestoreRecipe(model.ID, model.Title, model.Servings, ingredients, model.CreatedAt, model.UpdatedAt)
}

// LineToModel converts a shopping list line to a GORM model at the given position
func LineToModel(userID uuid.UUID, position int, line shopping.Line) *ShoppingItemModel {
	return &ShoppingItemModel{
		ID:                line.ID,
		UserID:            userID,
		Position:          position,
		IngredientName:    line.IngredientName,
		Dimension:         string(line.Dimension),
		UnitKey:           line.BaseUnit,
		TotalBaseQuantity: line.TotalBaseQuantity,
		DisplayQuantity:   line.DisplayQuantity,
		DisplayUnit:       line.DisplayUnit,
		Have:              line.Have,
		Manual:            line.Manual,
		CreatedAt:         line.CreatedAt,
		UpdatedAt:         line.UpdatedAt,
	}
}

// ContributionToModel converts a contribution of the given item to a GORM model
func ContributionToModel(itemID uuid.UUID, position int, c shopping.Contribution) *ShoppingContributionModel {
	return &ShoppingContributionModel{
		ShoppingItemID: itemID,
		RecipeID:       c.RecipeID,
		PlannerEntryID: c.PlannerEntryID,
		Position:       position,
		IngredientName: c.IngredientName,
		Quantity:       c.Quantity,
		Unit:           c.Unit,
		Dimension:      string(c.Dimension),
		BaseQuantity:   c.BaseQuantity,
		BaseUnit:       c.BaseUnit,
	}
}

// ModelToLine converts a GORM item model and its contributions to a domain line
func ModelToLine(model *ShoppingItemModel) shopping.Line {
	contributions := make([]shopping.Contribution, len(model.Contributions))
	for i, c := range model.Contributions {
		contributions[i] = shopping.Contribution{
			IngredientName: c.IngredientName,
			RecipeID:       c.RecipeID,
			PlannerEntryID: c.PlannerEntryID,
			Quantity:       c.Quantity,
			Unit:           c.Unit,
			Dimension:      units.Dimension(c.Dimension),
			BaseQuantity:   c.BaseQuantity,
			BaseUnit:       c.BaseUnit,
		}
	}

	return shopping.Line{
		ID:                model.ID,
		IngredientName:    model.IngredientName,
		Dimension:         units.Dimension(model.Dimension),
		BaseUnit:          model.UnitKey,
		TotalBaseQuantity: model.TotalBaseQuantity,
		DisplayQuantity:   model.DisplayQuantity,
		DisplayUnit:       model.DisplayUnit,
		Have:              model.Have,
		Manual:            model.Manual,
		Contributions:     contributions,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}
