// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/google/uuid"
)

// ShoppingService defines the use cases for keeping a user's shopping list in
// sync with their meal plan. HTTP handlers and the CLI drive it.
type ShoppingService interface {
	// Meal plan sync
	AddEntry(ctx context.Context, cmd AddEntryCommand) (*ListChangeDTO, error)
	RemoveEntry(ctx context.Context, userID, entryID uuid.UUID) (*ListChangeDTO, error)
	RebuildList(ctx context.Context, cmd RebuildListCommand) (*ListChangeDTO, error)

	// User edits
	AddManualItem(ctx context.Context, cmd AddManualItemCommand) (*ShoppingItemDTO, error)
	RemoveManualItem(ctx context.Context, userID, itemID uuid.UUID) error
	SetItemHave(ctx context.Context, cmd SetItemHaveCommand) (*ShoppingItemDTO, error)

	// Queries
	GetList(ctx context.Context, userID uuid.UUID) (*ShoppingListDTO, error)
	GetBreakdown(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) ([]IngredientBreakdownDTO, error)
}

// Command objects for operations

// AddEntryCommand adds one planned recipe to the list
type AddEntryCommand struct {
	UserID   uuid.UUID
	EntryID  uuid.UUID
	RecipeID uuid.UUID
	Servings int // 0 means the recipe's own servings
}

// PlannedEntry is one active meal plan entry
type PlannedEntry struct {
	EntryID  uuid.UUID `json:"entry_id" yaml:"entry_id" validate:"required"`
	RecipeID uuid.UUID `json:"recipe_id" yaml:"recipe_id" validate:"required"`
	Servings int       `json:"servings,omitempty" yaml:"servings" validate:"gte=0"`
}

// RebuildListCommand replaces every derived line with a fresh aggregation of Entries
type RebuildListCommand struct {
	UserID  uuid.UUID
	Entries []PlannedEntry
}

// AddManualItemCommand adds a user-entered item
type AddManualItemCommand struct {
	UserID   uuid.UUID
	Name     string
	Quantity float64
	Unit     string
}

// SetItemHaveCommand marks an item as already in the pantry
type SetItemHaveCommand struct {
	UserID uuid.UUID
	ItemID uuid.UUID
	Have   bool
}

// Response DTOs

// ShoppingItemDTO is the data transfer object for one shopping list line
type ShoppingItemDTO struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Dimension         string    `json:"dimension"`
	TotalBaseQuantity float64   `json:"total_base_quantity"`
	BaseUnit          string    `json:"base_unit"`
	Quantity          float64   `json:"quantity"`
	Unit              string    `json:"unit"`
	Have              bool      `json:"have"`
	Manual            bool      `json:"manual"`
	Sources           int       `json:"sources"`
	CreatedAt         string    `json:"created_at"`
	UpdatedAt         string    `json:"updated_at"`
}

// ShoppingListDTO is a full snapshot of a user's list
type ShoppingListDTO struct {
	UserID    uuid.UUID         `json:"user_id"`
	Version   int64             `json:"version"`
	Items     []ShoppingItemDTO `json:"items"`
	ItemCount int               `json:"item_count"`
}

// AffectedLineDTO identifies a line touched by a sync operation. ItemID is
// empty when the line was deleted.
type AffectedLineDTO struct {
	ItemID    *uuid.UUID `json:"item_id,omitempty"`
	Name      string     `json:"name"`
	Dimension string     `json:"dimension"`
	Unit      string     `json:"unit"`
	Removed   bool       `json:"removed"`
}

// ListChangeDTO reports the outcome of a sync operation
type ListChangeDTO struct {
	UserID   uuid.UUID         `json:"user_id"`
	Version  int64             `json:"version"`
	Affected []AffectedLineDTO `json:"affected"`
}

// RecipeContributionDTO is one recipe's share of a line
type RecipeContributionDTO struct {
	RecipeID     uuid.UUID `json:"recipe_id"`
	RecipeTitle  string    `json:"recipe_title"`
	Quantity     float64   `json:"quantity"`
	Unit         string    `json:"unit"`
	BaseQuantity float64   `json:"base_quantity"`
	EntryCount   int       `json:"entry_count"`
}

// IngredientBreakdownDTO explains where a line's quantity comes from
type IngredientBreakdownDTO struct {
	ItemID            uuid.UUID               `json:"item_id"`
	Name              string                  `json:"name"`
	Dimension         string                  `json:"dimension"`
	TotalBaseQuantity float64                 `json:"total_base_quantity"`
	BaseUnit          string                  `json:"base_unit"`
	Recipes           []RecipeContributionDTO `json:"recipes"`
}
