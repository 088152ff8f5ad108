package shopping

import (
	stderrors "errors"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/recipe"
	"github.com/alchemorsel/mealplan/internal/domain/shopping"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/pkg/errors"
	"github.com/google/uuid"
)

func lineToDTO(line shopping.Line) inbound.ShoppingItemDTO {
	return inbound.ShoppingItemDTO{
		ID:                line.ID,
		Name:              line.IngredientName,
		Dimension:         string(line.Dimension),
		TotalBaseQuantity: line.TotalBaseQuantity,
		BaseUnit:          line.BaseUnit,
		Quantity:          line.DisplayQuantity,
		Unit:              line.DisplayUnit,
		Have:              line.Have,
		Manual:            line.Manual,
		Sources:           len(line.Contributions),
		CreatedAt:         formatTime(line.CreatedAt),
		UpdatedAt:         formatTime(line.UpdatedAt),
	}
}

func listToDTO(list *shopping.List) *inbound.ShoppingListDTO {
	lines := list.Lines()
	items := make([]inbound.ShoppingItemDTO, len(lines))
	for i, line := range lines {
		items[i] = lineToDTO(line)
	}
	return &inbound.ShoppingListDTO{
		UserID:    list.UserID(),
		Version:   list.Version(),
		Items:     items,
		ItemCount: len(items),
	}
}

// changeToDTO reports the current state of every touched key. Keys whose
// line no longer exists are reported as removed.
func changeToDTO(list *shopping.List, keys []shopping.LineKey) *inbound.ListChangeDTO {
	affected := make([]inbound.AffectedLineDTO, 0, len(keys))
	for _, key := range keys {
		dto := inbound.AffectedLineDTO{
			Name:      key.Name,
			Dimension: string(key.Dimension),
			Unit:      key.Unit,
		}
		if line, ok := list.LineByKey(key); ok {
			id := line.ID
			dto.ItemID = &id
			dto.Unit = line.DisplayUnit
		} else {
			dto.Removed = true
		}
		affected = append(affected, dto)
	}
	return &inbound.ListChangeDTO{
		UserID:   list.UserID(),
		Version:  list.Version(),
		Affected: affected,
	}
}

func breakdownToDTO(b shopping.LineBreakdown, titles map[uuid.UUID]string) inbound.IngredientBreakdownDTO {
	recipes := make([]inbound.RecipeContributionDTO, len(b.Rows))
	for i, row := range b.Rows {
		recipes[i] = inbound.RecipeContributionDTO{
			RecipeID:     row.RecipeID,
			RecipeTitle:  titles[row.RecipeID],
			Quantity:     row.Quantity,
			Unit:         row.Unit,
			BaseQuantity: row.BaseQuantity,
			EntryCount:   row.EntryCount,
		}
	}
	return inbound.IngredientBreakdownDTO{
		ItemID:            b.LineID,
		Name:              b.Key.Name,
		Dimension:         string(b.Key.Dimension),
		TotalBaseQuantity: b.TotalBaseQuantity,
		BaseUnit:          b.Key.Unit,
		Recipes:           recipes,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// mapDomainError converts domain sentinels into application errors
func mapDomainError(err error, id uuid.UUID) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, shopping.ErrLineNotFound):
		return errors.NewShoppingItemNotFoundError(id.String())
	case stderrors.Is(err, shopping.ErrLineNotManual):
		return errors.NewItemNotManualError(id.String())
	case stderrors.Is(err, shopping.ErrInvalidItemName):
		return errors.NewValidationError(err.Error())
	case stderrors.Is(err, recipe.ErrRecipeNotFound):
		return errors.NewRecipeNotFoundError(id.String())
	default:
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return appErr
		}
		return errors.Wrap(err, "shopping list operation failed")
	}
}
