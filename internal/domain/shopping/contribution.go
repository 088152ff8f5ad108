// Package shopping contains the shopping list aggregate: recipe-derived
// contributions are normalized into base units and summed into one line per
// ingredient, dimension and unit identity.
package shopping

import (
	"strings"

	"github.com/alchemorsel/mealplan/internal/domain/units"
	"github.com/google/uuid"
)

// LineKey identifies an aggregated line. Unit is the base unit for mass and
// volume and the normalized label for count and unknown units, so "3 clove"
// and "2 head" of the same ingredient never share a line.
type LineKey struct {
	Name      string
	Dimension units.Dimension
	Unit      string
}

// NormalizeName casefolds an ingredient name and collapses its whitespace
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// KeyFor returns the line identity for an ingredient measured in unit
func KeyFor(name, unit string) LineKey {
	return LineKey{
		Name:      NormalizeName(name),
		Dimension: units.Classify(unit),
		Unit:      units.Key(unit),
	}
}

// Contribution is one ingredient requirement from one recipe in one planner entry
type Contribution struct {
	IngredientName string
	RecipeID       uuid.UUID
	PlannerEntryID uuid.UUID
	Quantity       float64
	Unit           string
	Dimension      units.Dimension
	BaseQuantity   float64
	BaseUnit       string
}

// NewContribution builds a contribution and resolves its dimension and base quantity
func NewContribution(ingredientName string, recipeID, entryID uuid.UUID, quantity float64, unit string) Contribution {
	c := Contribution{
		IngredientName: ingredientName,
		RecipeID:       recipeID,
		PlannerEntryID: entryID,
		Quantity:       quantity,
		Unit:           unit,
	}
	return c.resolved()
}

// Key returns the line this contribution aggregates into
func (c Contribution) Key() LineKey {
	return LineKey{
		Name:      NormalizeName(c.IngredientName),
		Dimension: c.Dimension,
		Unit:      c.BaseUnit,
	}
}

func (c Contribution) resolved() Contribution {
	c.IngredientName = NormalizeName(c.IngredientName)
	c.Unit = units.Normalize(c.Unit)
	c.Dimension = units.Classify(c.Unit)
	c.BaseQuantity, c.BaseUnit = units.ToBase(c.Quantity, c.Unit)
	return c
}

// contributionID is the persisted uniqueness triple minus the line, which is
// implied by the line holding the contribution
type contributionID struct {
	recipeID uuid.UUID
	entryID  uuid.UUID
}

func (c Contribution) id() contributionID {
	return contributionID{recipeID: c.RecipeID, entryID: c.PlannerEntryID}
}

// mergeContributions resolves contributions and folds duplicates of the same
// (line, recipe, entry) triple into one. Differing raw units of the same line
// are carried as the base unit.
func mergeContributions(entryID uuid.UUID, contributions []Contribution) []Contribution {
	type slot struct {
		key LineKey
		id  contributionID
	}

	merged := make([]Contribution, 0, len(contributions))
	positions := make(map[slot]int, len(contributions))

	for _, raw := range contributions {
		raw.PlannerEntryID = entryID
		c := raw.resolved()
		s := slot{key: c.Key(), id: c.id()}

		pos, seen := positions[s]
		if !seen {
			positions[s] = len(merged)
			merged = append(merged, c)
			continue
		}

		existing := &merged[pos]
		existing.BaseQuantity += c.BaseQuantity
		if existing.Unit == c.Unit {
			existing.Quantity += c.Quantity
		} else {
			existing.Quantity = existing.BaseQuantity
			existing.Unit = existing.BaseUnit
		}
	}

	return merged
}
