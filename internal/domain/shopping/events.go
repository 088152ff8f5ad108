package shopping

import (
	"time"

	"github.com/google/uuid"
)

// LineCreatedEvent is raised when the first contribution for an ingredient creates a line
type LineCreatedEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	LineID     uuid.UUID `json:"line_id"`
	Ingredient string    `json:"ingredient"`
	Dimension  string    `json:"dimension"`
	CreatedAt  time.Time `json:"created_at"`
}

func (e LineCreatedEvent) EventName() string {
	return "shopping.line.created"
}

func (e LineCreatedEvent) OccurredAt() time.Time {
	return e.CreatedAt
}

// LineUpdatedEvent is raised when a line's aggregated total changes
type LineUpdatedEvent struct {
	UserID            uuid.UUID `json:"user_id"`
	LineID            uuid.UUID `json:"line_id"`
	TotalBaseQuantity float64   `json:"total_base_quantity"`
	DisplayQuantity   float64   `json:"display_quantity"`
	DisplayUnit       string    `json:"display_unit"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (e LineUpdatedEvent) EventName() string {
	return "shopping.line.updated"
}

func (e LineUpdatedEvent) OccurredAt() time.Time {
	return e.UpdatedAt
}

// LineRemovedEvent is raised when a line loses its last contribution
type LineRemovedEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	LineID     uuid.UUID `json:"line_id"`
	Ingredient string    `json:"ingredient"`
	RemovedAt  time.Time `json:"removed_at"`
}

func (e LineRemovedEvent) EventName() string {
	return "shopping.line.removed"
}

func (e LineRemovedEvent) OccurredAt() time.Time {
	return e.RemovedAt
}

// EntrySyncedEvent is raised when a planner entry's contributions are added
type EntrySyncedEvent struct {
	UserID        uuid.UUID `json:"user_id"`
	EntryID       uuid.UUID `json:"entry_id"`
	AffectedLines int       `json:"affected_lines"`
	SyncedAt      time.Time `json:"synced_at"`
}

func (e EntrySyncedEvent) EventName() string {
	return "shopping.entry.synced"
}

func (e EntrySyncedEvent) OccurredAt() time.Time {
	return e.SyncedAt
}

// EntryRemovedEvent is raised when a planner entry's contributions are withdrawn
type EntryRemovedEvent struct {
	UserID        uuid.UUID `json:"user_id"`
	EntryID       uuid.UUID `json:"entry_id"`
	AffectedLines int       `json:"affected_lines"`
	RemovedAt     time.Time `json:"removed_at"`
}

func (e EntryRemovedEvent) EventName() string {
	return "shopping.entry.removed"
}

func (e EntryRemovedEvent) OccurredAt() time.Time {
	return e.RemovedAt
}

// ListRebuiltEvent is raised when all derived lines are recomputed from scratch
type ListRebuiltEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Entries   int       `json:"entries"`
	Lines     int       `json:"lines"`
	RebuiltAt time.Time `json:"rebuilt_at"`
}

func (e ListRebuiltEvent) EventName() string {
	return "shopping.list.rebuilt"
}

func (e ListRebuiltEvent) OccurredAt() time.Time {
	return e.RebuiltAt
}
