// Package gorm provides GORM model definitions for the application
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecipeModel represents the GORM model for recipes
type RecipeModel struct {
	ID          uuid.UUID      `gorm:"type:char(36);primaryKey"`
	Title       string         `gorm:"type:varchar(255);not null;index"`
	Servings    int            `gorm:"not null;default:1"`
	Ingredients IngredientList `gorm:"type:json"`
	CreatedAt   time.Time      `gorm:"index"`
	UpdatedAt   time.Time
}

// ShoppingListModel holds the optimistic-locking version of a user's list
type ShoppingListModel struct {
	UserID    uuid.UUID `gorm:"type:char(36);primaryKey"`
	Version   int64     `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships
	Items []ShoppingItemModel `gorm:"foreignKey:UserID;references:UserID"`
}

// ShoppingItemModel represents one aggregated or manual shopping list line
type ShoppingItemModel struct {
	ID                uuid.UUID `gorm:"type:char(36);primaryKey"`
	UserID            uuid.UUID `gorm:"type:char(36);not null;index"`
	Position          int       `gorm:"not null"`
	IngredientName    string    `gorm:"type:varchar(255);not null;index"`
	Dimension         string    `gorm:"type:varchar(20);not null"`
	UnitKey           string    `gorm:"type:varchar(50);not null"`
	TotalBaseQuantity float64   `gorm:"not null"`
	DisplayQuantity   float64   `gorm:"not null"`
	DisplayUnit       string    `gorm:"type:varchar(50);not null"`
	Have              bool      `gorm:"not null"`
	Manual            bool      `gorm:"not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Relationships
	Contributions []ShoppingContributionModel `gorm:"foreignKey:ShoppingItemID;constraint:OnDelete:CASCADE"`
}

// ShoppingContributionModel is one (item, recipe, planner entry) contribution.
// The triple is unique so a planner entry is never counted twice.
type ShoppingContributionModel struct {
	ID             uuid.UUID `gorm:"type:char(36);primaryKey"`
	ShoppingItemID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_contribution_triple,priority:1"`
	RecipeID       uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_contribution_triple,priority:2"`
	PlannerEntryID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_contribution_triple,priority:3;index"`
	Position       int       `gorm:"not null"`
	IngredientName string    `gorm:"type:varchar(255);not null"`
	Quantity       float64   `gorm:"not null"`
	Unit           string    `gorm:"type:varchar(50);not null"`
	Dimension      string    `gorm:"type:varchar(20);not null"`
	BaseQuantity   float64   `gorm:"not null"`
	BaseUnit       string    `gorm:"type:varchar(50);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IngredientRecord is the JSON shape of one recipe ingredient
type IngredientRecord struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Amount   float64   `json:"amount"`
	Unit     string    `json:"unit"`
	Optional bool      `json:"optional"`
	Notes    string    `json:"notes,omitempty"`
}

// IngredientList custom type for storing ingredients as JSON
type IngredientList []IngredientRecord

// Scan implements the sql.Scanner interface
func (l *IngredientList) Scan(value interface{}) error {
	if value == nil {
		*l = IngredientList{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into IngredientList", value)
	}
}

// Value implements the driver.Valuer interface
func (l IngredientList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// BeforeCreate hook for RecipeModel
func (r *RecipeModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook for ShoppingItemModel
func (i *ShoppingItemModel) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook for ShoppingContributionModel
func (c *ShoppingContributionModel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TableName overrides
func (RecipeModel) TableName() string {
	return "recipes"
}

func (ShoppingListModel) TableName() string {
	return "shopping_lists"
}

func (ShoppingItemModel) TableName() string {
	return "shopping_items"
}

func (ShoppingContributionModel) TableName() string {
	return "shopping_item_contributions"
}

// AllModels lists every model for auto-migration
func AllModels() []interface{} {
	return []interface{}{
		&RecipeModel{},
		&ShoppingListModel{},
		&ShoppingItemModel{},
		&ShoppingContributionModel{},
	}
}
