package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/alchemorsel/mealplan/internal/domain/shopping"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ShoppingListRepository implements the shopping list repository using GORM.
// Saves diff the stored items and contributions against the aggregate so an
// unchanged contribution row is never rewritten.
type ShoppingListRepository struct {
	db *gorm.DB
}

// NewShoppingListRepository creates a new shopping list repository
func NewShoppingListRepository(db *gorm.DB) outbound.ShoppingListRepository {
	return &ShoppingListRepository{db: db}
}

type triple struct {
	itemID   uuid.UUID
	recipeID uuid.UUID
	entryID  uuid.UUID
}

// Load loads the user's list with all items and contributions
func (r *ShoppingListRepository) Load(ctx context.Context, userID uuid.UUID) (*shopping.List, error) {
	var list ShoppingListModel

	result := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Items.Contributions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&list, "user_id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return shopping.NewList(userID), nil
		}
		return nil, result.Error
	}

	lines := make([]shopping.Line, len(list.Items))
	for i := range list.Items {
		lines[i] = ModelToLine(&list.Items[i])
	}

	return shopping.RestoreList(userID, list.Version, lines), nil
}

// Save persists the list in a single transaction guarded by its version
func (r *ShoppingListRepository) Save(ctx context.Context, list *shopping.List) error {
	var next int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if next, err = bumpVersion(tx, list); err != nil {
			return err
		}
		return syncItems(tx, list)
	})
	if err != nil {
		return err
	}

	list.SetVersion(next)
	return nil
}

func bumpVersion(tx *gorm.DB, list *shopping.List) (int64, error) {
	if list.Version() == 0 {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&ShoppingListModel{UserID: list.UserID(), Version: 1})
		if result.Error != nil {
			return 0, fmt.Errorf("create shopping list: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return 0, shopping.ErrListVersionConflict
		}
		return 1, nil
	}

	result := tx.Model(&ShoppingListModel{}).
		Where("user_id = ? AND version = ?", list.UserID(), list.Version()).
		Update("version", gorm.Expr("version + 1"))
	if result.Error != nil {
		return 0, fmt.Errorf("bump shopping list version: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, shopping.ErrListVersionConflict
	}
	return list.Version() + 1, nil
}

func syncItems(tx *gorm.DB, list *shopping.List) error {
	userID := list.UserID()
	lines := list.Lines()

	var storedIDs []uuid.UUID
	if err := tx.Model(&ShoppingItemModel{}).Where("user_id = ?", userID).Pluck("id", &storedIDs).Error; err != nil {
		return fmt.Errorf("load stored items: %w", err)
	}

	live := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		live[line.ID] = struct{}{}
	}

	var gone []uuid.UUID
	for _, id := range storedIDs {
		if _, ok := live[id]; !ok {
			gone = append(gone, id)
		}
	}
	if len(gone) > 0 {
		if err := tx.Where("shopping_item_id IN ?", gone).Delete(&ShoppingContributionModel{}).Error; err != nil {
			return fmt.Errorf("delete contributions of removed items: %w", err)
		}
		if err := tx.Where("id IN ?", gone).Delete(&ShoppingItemModel{}).Error; err != nil {
			return fmt.Errorf("delete removed items: %w", err)
		}
	}

	for i, line := range lines {
		item := LineToModel(userID, i, line)
		err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
			Create(item).Error
		if err != nil {
			return fmt.Errorf("upsert item %s: %w", line.ID, err)
		}
	}

	return syncContributions(tx, storedIDs, lines)
}

func syncContributions(tx *gorm.DB, storedIDs []uuid.UUID, lines []shopping.Line) error {
	stored := make(map[triple]ShoppingContributionModel)
	if len(storedIDs) > 0 {
		var rows []ShoppingContributionModel
		if err := tx.Where("shopping_item_id IN ?", storedIDs).Find(&rows).Error; err != nil {
			return fmt.Errorf("load stored contributions: %w", err)
		}
		for _, row := range rows {
			stored[triple{row.ShoppingItemID, row.RecipeID, row.PlannerEntryID}] = row
		}
	}

	seen := make(map[triple]struct{})
	for _, line := range lines {
		for pos, c := range line.Contributions {
			key := triple{line.ID, c.RecipeID, c.PlannerEntryID}
			seen[key] = struct{}{}
			want := ContributionToModel(line.ID, pos, c)

			existing, ok := stored[key]
			if !ok {
				err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(want).Error
				if err != nil {
					return fmt.Errorf("insert contribution: %w", err)
				}
				continue
			}

			if sameContribution(existing, *want) {
				continue
			}
			err := tx.Model(&ShoppingContributionModel{}).
				Where("id = ?", existing.ID).
				Updates(map[string]interface{}{
					"position":        want.Position,
					"ingredient_name": want.IngredientName,
					"quantity":        want.Quantity,
					"unit":            want.Unit,
					"dimension":       want.Dimension,
					"base_quantity":   want.BaseQuantity,
					"base_unit":       want.BaseUnit,
				}).Error
			if err != nil {
				return fmt.Errorf("update contribution: %w", err)
			}
		}
	}

	var stale []uuid.UUID
	for key, row := range stored {
		if _, ok := seen[key]; !ok {
			stale = append(stale, row.ID)
		}
	}
	if len(stale) > 0 {
		if err := tx.Where("id IN ?", stale).Delete(&ShoppingContributionModel{}).Error; err != nil {
			return fmt.Errorf("delete stale contributions: %w", err)
		}
	}

	return nil
}

func sameContribution(a, b ShoppingContributionModel) bool {
	return a.Position == b.Position &&
		a.IngredientName == b.IngredientName &&
		a.Quantity == b.Quantity &&
		a.Unit == b.Unit &&
		a.Dimension == b.Dimension &&
		a.BaseQuantity == b.BaseQuantity &&
		a.BaseUnit == b.BaseUnit
}
