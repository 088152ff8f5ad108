package recipe

import (
	"strings"

	"github.com/google/uuid"
)

// Ingredient represents an ingredient in a recipe. Unit is free text; the
// units package decides whether it can be converted.
type Ingredient struct {
	ID       uuid.UUID
	Name     string
	Amount   float64
	Unit     string
	Optional bool
	Notes    string
}

// Validate validates the ingredient
func (i Ingredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrIngredientName
	}
	if i.Amount < 0 {
		return ErrNegativeAmount
	}
	return nil
}
