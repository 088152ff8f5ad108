package shopping

import (
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/shared"
	"github.com/alchemorsel/mealplan/internal/domain/units"
	"github.com/google/uuid"
)

// Line is one row of a shopping list. Derived lines sum their contributions;
// manual lines carry a user-entered quantity and have no contributions.
type Line struct {
	ID                uuid.UUID
	IngredientName    string
	Dimension         units.Dimension
	BaseUnit          string
	TotalBaseQuantity float64
	DisplayQuantity   float64
	DisplayUnit       string
	Have              bool
	Manual            bool
	Contributions     []Contribution
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Key returns the aggregation identity of the line
func (l Line) Key() LineKey {
	return LineKey{Name: l.IngredientName, Dimension: l.Dimension, Unit: l.BaseUnit}
}

// RecomputeDisplay refreshes the display quantity and unit from the line total
func RecomputeDisplay(line *Line) {
	line.DisplayQuantity, line.DisplayUnit = units.ToDisplay(line.TotalBaseQuantity, line.Dimension, line.BaseUnit)
}

func (l Line) clone() Line {
	c := l
	c.Contributions = append([]Contribution(nil), l.Contributions...)
	return c
}

// List is the shopping list aggregate for one user
type List struct {
	shared.AggregateRoot

	userID  uuid.UUID
	version int64
	lines   []*Line
	index   map[LineKey]*Line
}

// NewList creates an empty shopping list
func NewList(userID uuid.UUID) *List {
	return &List{
		userID: userID,
		index:  make(map[LineKey]*Line),
	}
}

// RestoreList rebuilds a list from persisted lines without raising events
func RestoreList(userID uuid.UUID, version int64, lines []Line) *List {
	l := NewList(userID)
	l.version = version
	for _, line := range lines {
		restored := line.clone()
		l.lines = append(l.lines, &restored)
		if !restored.Manual {
			l.index[restored.Key()] = &restored
		}
	}
	return l
}

// UserID returns the owner of the list
func (l *List) UserID() uuid.UUID {
	return l.userID
}

// Version returns the persisted version used for optimistic locking
func (l *List) Version() int64 {
	return l.version
}

// SetVersion records the version assigned by the store
func (l *List) SetVersion(version int64) {
	l.version = version
}

// Lines returns copies of all lines in creation order
func (l *List) Lines() []Line {
	lines := make([]Line, len(l.lines))
	for i, line := range l.lines {
		lines[i] = line.clone()
	}
	return lines
}

// Line returns a copy of the line with the given ID
func (l *List) Line(id uuid.UUID) (Line, bool) {
	if line := l.find(id); line != nil {
		return line.clone(), true
	}
	return Line{}, false
}

// LineByKey returns a copy of the derived line with the given identity
func (l *List) LineByKey(key LineKey) (Line, bool) {
	if line, ok := l.index[key]; ok {
		return line.clone(), true
	}
	return Line{}, false
}

// Entries returns the planner entries with live contributions, in first-seen order
func (l *List) Entries() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var entries []uuid.UUID
	for _, line := range l.lines {
		for _, c := range line.Contributions {
			if _, ok := seen[c.PlannerEntryID]; ok {
				continue
			}
			seen[c.PlannerEntryID] = struct{}{}
			entries = append(entries, c.PlannerEntryID)
		}
	}
	return entries
}

// AddContributions folds a planner entry's contributions into the list and
// returns the keys of every line it touched. Re-adding a (line, recipe,
// entry) triple that is already present is a no-op.
func (l *List) AddContributions(entryID uuid.UUID, contributions []Contribution) []LineKey {
	affected := l.addContributions(entryID, contributions, true)
	if len(affected) > 0 {
		l.AddEvent(EntrySyncedEvent{
			UserID:        l.userID,
			EntryID:       entryID,
			AffectedLines: len(affected),
			SyncedAt:      time.Now(),
		})
	}
	return affected
}

func (l *List) addContributions(entryID uuid.UUID, contributions []Contribution, emit bool) []LineKey {
	now := time.Now()
	var affected []LineKey
	touched := make(map[LineKey]bool)
	existed := make(map[LineKey]bool)

	for _, c := range mergeContributions(entryID, contributions) {
		key := c.Key()
		line, exists := l.index[key]
		if !exists {
			line = &Line{
				ID:             uuid.New(),
				IngredientName: key.Name,
				Dimension:      key.Dimension,
				BaseUnit:       key.Unit,
				CreatedAt:      now,
			}
			l.lines = append(l.lines, line)
			l.index[key] = line
			if emit {
				l.AddEvent(LineCreatedEvent{
					UserID:     l.userID,
					LineID:     line.ID,
					Ingredient: line.IngredientName,
					Dimension:  string(line.Dimension),
					CreatedAt:  now,
				})
			}
		} else if hasContribution(line, c.id()) {
			continue
		}

		line.Contributions = append(line.Contributions, c)
		line.UpdatedAt = now

		if !touched[key] {
			touched[key] = true
			existed[key] = exists
			affected = append(affected, key)
		}
	}

	for _, key := range affected {
		line := l.index[key]
		line.TotalBaseQuantity = sumContributions(line.Contributions)
		RecomputeDisplay(line)
		if emit && existed[key] {
			l.addUpdatedEvent(line, now)
		}
	}

	return affected
}

// RemoveContributions withdraws every contribution of a planner entry. Lines
// left without contributions are deleted; the others get a fresh display.
func (l *List) RemoveContributions(entryID uuid.UUID) []LineKey {
	now := time.Now()
	var affected []LineKey
	kept := l.lines[:0]

	for _, line := range l.lines {
		if line.Manual {
			kept = append(kept, line)
			continue
		}

		remaining := line.Contributions[:0]
		removed := false
		for _, c := range line.Contributions {
			if c.PlannerEntryID == entryID {
				removed = true
				continue
			}
			remaining = append(remaining, c)
		}
		line.Contributions = remaining

		if !removed {
			kept = append(kept, line)
			continue
		}

		key := line.Key()
		affected = append(affected, key)

		if len(line.Contributions) == 0 {
			delete(l.index, key)
			l.AddEvent(LineRemovedEvent{
				UserID:     l.userID,
				LineID:     line.ID,
				Ingredient: line.IngredientName,
				RemovedAt:  now,
			})
			continue
		}

		line.TotalBaseQuantity = sumContributions(line.Contributions)
		line.UpdatedAt = now
		RecomputeDisplay(line)
		l.addUpdatedEvent(line, now)
		kept = append(kept, line)
	}

	for i := len(kept); i < len(l.lines); i++ {
		l.lines[i] = nil
	}
	l.lines = kept

	if len(affected) > 0 {
		l.AddEvent(EntryRemovedEvent{
			UserID:        l.userID,
			EntryID:       entryID,
			AffectedLines: len(affected),
			RemovedAt:     now,
		})
	}

	return affected
}

// EntryContributions groups the contributions of one planner entry
type EntryContributions struct {
	EntryID       uuid.UUID
	Contributions []Contribution
}

// Rebuild discards every derived line and aggregates the given entries from
// scratch. Manual items are untouched; line IDs and "have" flags carry over
// for lines whose identity survives.
func (l *List) Rebuild(entries []EntryContributions) []LineKey {
	previous := make(map[LineKey]*Line, len(l.index))
	for key, line := range l.index {
		previous[key] = line
	}

	manual := make([]*Line, 0, len(l.lines))
	for _, line := range l.lines {
		if line.Manual {
			manual = append(manual, line)
		}
	}
	l.lines = manual
	l.index = make(map[LineKey]*Line)

	var affected []LineKey
	seen := make(map[LineKey]bool)
	for _, entry := range entries {
		for _, key := range l.addContributions(entry.EntryID, entry.Contributions, false) {
			if !seen[key] {
				seen[key] = true
				affected = append(affected, key)
			}
		}
	}

	for key, line := range l.index {
		if old, ok := previous[key]; ok {
			line.ID = old.ID
			line.Have = old.Have
			line.CreatedAt = old.CreatedAt
		}
	}

	l.AddEvent(ListRebuiltEvent{
		UserID:    l.userID,
		Entries:   len(entries),
		Lines:     len(l.index),
		RebuiltAt: time.Now(),
	})

	return affected
}

// AddManualItem appends a user-entered item that aggregation never touches
func (l *List) AddManualItem(name string, quantity float64, unit string) (Line, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return Line{}, ErrInvalidItemName
	}

	now := time.Now()
	u := units.Normalize(unit)
	line := &Line{
		ID:                uuid.New(),
		IngredientName:    normalized,
		Dimension:         units.Classify(u),
		BaseUnit:          u,
		TotalBaseQuantity: quantity,
		DisplayQuantity:   quantity,
		DisplayUnit:       u,
		Manual:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	l.lines = append(l.lines, line)

	l.AddEvent(LineCreatedEvent{
		UserID:     l.userID,
		LineID:     line.ID,
		Ingredient: line.IngredientName,
		Dimension:  string(line.Dimension),
		CreatedAt:  now,
	})

	return line.clone(), nil
}

// RemoveManualItem deletes a manual item. Derived lines only disappear when
// their contributions are removed.
func (l *List) RemoveManualItem(id uuid.UUID) error {
	for i, line := range l.lines {
		if line.ID != id {
			continue
		}
		if !line.Manual {
			return ErrLineNotManual
		}
		l.lines = append(l.lines[:i], l.lines[i+1:]...)
		l.AddEvent(LineRemovedEvent{
			UserID:     l.userID,
			LineID:     line.ID,
			Ingredient: line.IngredientName,
			RemovedAt:  time.Now(),
		})
		return nil
	}
	return ErrLineNotFound
}

// SetHave records whether the user already has the item
func (l *List) SetHave(id uuid.UUID, have bool) (Line, error) {
	line := l.find(id)
	if line == nil {
		return Line{}, ErrLineNotFound
	}
	line.Have = have
	line.UpdatedAt = time.Now()
	return line.clone(), nil
}

func (l *List) find(id uuid.UUID) *Line {
	for _, line := range l.lines {
		if line.ID == id {
			return line
		}
	}
	return nil
}

func (l *List) addUpdatedEvent(line *Line, at time.Time) {
	l.AddEvent(LineUpdatedEvent{
		UserID:            l.userID,
		LineID:            line.ID,
		TotalBaseQuantity: line.TotalBaseQuantity,
		DisplayQuantity:   line.DisplayQuantity,
		DisplayUnit:       line.DisplayUnit,
		UpdatedAt:         at,
	})
}

// sumContributions totals contributions in list order
func sumContributions(contributions []Contribution) float64 {
	var total float64
	for _, c := range contributions {
		total += c.BaseQuantity
	}
	return total
}

func hasContribution(line *Line, id contributionID) bool {
	for _, c := range line.Contributions {
		if c.id() == id {
			return true
		}
	}
	return false
}
