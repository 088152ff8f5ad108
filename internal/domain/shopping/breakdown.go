package shopping

import (
	"github.com/alchemorsel/mealplan/internal/domain/units"
	"github.com/google/uuid"
)

// BreakdownRow is one recipe's share of an aggregated line
type BreakdownRow struct {
	RecipeID     uuid.UUID
	BaseQuantity float64
	Quantity     float64
	Unit         string
	EntryCount   int
}

// LineBreakdown is the per-recipe provenance of one line
type LineBreakdown struct {
	LineID            uuid.UUID
	Key               LineKey
	TotalBaseQuantity float64
	Rows              []BreakdownRow
}

// Breakdown reports, for each requested line, how much every recipe
// contributes. Subtotals are converted with the same resolver as the line, so
// their base quantities sum to the line total. An empty key set reports every
// derived line; unknown keys are skipped.
func (l *List) Breakdown(keys []LineKey) []LineBreakdown {
	if len(keys) == 0 {
		for _, line := range l.lines {
			if !line.Manual {
				keys = append(keys, line.Key())
			}
		}
	}

	result := make([]LineBreakdown, 0, len(keys))
	for _, key := range keys {
		line, ok := l.index[key]
		if !ok {
			continue
		}
		result = append(result, LineBreakdown{
			LineID:            line.ID,
			Key:               key,
			TotalBaseQuantity: line.TotalBaseQuantity,
			Rows:              breakdownRows(line),
		})
	}
	return result
}

func breakdownRows(line *Line) []BreakdownRow {
	var rows []BreakdownRow
	positions := make(map[uuid.UUID]int)
	entries := make(map[uuid.UUID]map[uuid.UUID]struct{})

	for _, c := range line.Contributions {
		pos, ok := positions[c.RecipeID]
		if !ok {
			pos = len(rows)
			positions[c.RecipeID] = pos
			rows = append(rows, BreakdownRow{RecipeID: c.RecipeID})
			entries[c.RecipeID] = make(map[uuid.UUID]struct{})
		}
		rows[pos].BaseQuantity += c.BaseQuantity
		entries[c.RecipeID][c.PlannerEntryID] = struct{}{}
	}

	for i := range rows {
		rows[i].EntryCount = len(entries[rows[i].RecipeID])
		rows[i].Quantity, rows[i].Unit = units.ToDisplay(rows[i].BaseQuantity, line.Dimension, line.BaseUnit)
	}
	return rows
}
