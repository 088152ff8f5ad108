// Package shopping provides the application layer for shopping lists.
// It implements the use cases defined in the inbound ports.
package shopping

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/alchemorsel/mealplan/internal/domain/recipe"
	"github.com/alchemorsel/mealplan/internal/domain/shopping"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/alchemorsel/mealplan/pkg/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Operation names used for metrics and spans
const (
	opAddEntry         = "add_entry"
	opRemoveEntry      = "remove_entry"
	opRebuildList      = "rebuild_list"
	opAddManualItem    = "add_manual_item"
	opRemoveManualItem = "remove_manual_item"
	opSetItemHave      = "set_item_have"
	opGetList          = "get_list"
	opGetBreakdown     = "get_breakdown"
)

// Config tunes the shopping service
type Config struct {
	CacheTTL      time.Duration
	SaveRetries   int
	MaxManualName int
	SubjectPrefix string
}

// Service implements the shopping list use cases
type Service struct {
	lists   outbound.ShoppingListRepository
	recipes outbound.RecipeRepository
	cache   outbound.CacheRepository
	events  outbound.MessageBus
	metrics *monitoring.MetricsCollector
	tracer  trace.Tracer
	config  Config
	locks   *userLocks
	logger  *zap.Logger
}

// NewService creates a new shopping service
func NewService(
	lists outbound.ShoppingListRepository,
	recipes outbound.RecipeRepository,
	cache outbound.CacheRepository,
	events outbound.MessageBus,
	metrics *monitoring.MetricsCollector,
	tracer trace.Tracer,
	config Config,
	logger *zap.Logger,
) *Service {
	if config.SaveRetries < 0 {
		config.SaveRetries = 0
	}
	return &Service{
		lists:   lists,
		recipes: recipes,
		cache:   cache,
		events:  events,
		metrics: metrics,
		tracer:  tracer,
		config:  config,
		locks:   newUserLocks(),
		logger:  logger.Named("shopping-service"),
	}
}

var _ inbound.ShoppingService = (*Service)(nil)

// AddEntry folds a planned recipe's ingredients into the user's list
func (s *Service) AddEntry(ctx context.Context, cmd inbound.AddEntryCommand) (result *inbound.ListChangeDTO, err error) {
	ctx, span := s.startSpan(ctx, opAddEntry, cmd.UserID,
		attribute.String("entry.id", cmd.EntryID.String()),
		attribute.String("recipe.id", cmd.RecipeID.String()),
	)
	start := time.Now()
	defer func() { s.finish(span, opAddEntry, start, err, affectedCount(result)) }()

	if cmd.UserID == uuid.Nil || cmd.EntryID == uuid.Nil || cmd.RecipeID == uuid.Nil {
		return nil, errors.NewValidationError("user_id, entry_id and recipe_id are required")
	}
	if cmd.Servings < 0 {
		return nil, errors.NewValidationError("servings must not be negative")
	}

	rec, err := s.recipes.FindByID(ctx, cmd.RecipeID)
	if err != nil {
		return nil, s.recipeError(err, cmd.RecipeID)
	}
	contributions := rec.Contributions(cmd.EntryID, cmd.Servings)

	var keys []shopping.LineKey
	list, err := s.mutate(ctx, cmd.UserID, func(list *shopping.List) (bool, error) {
		keys = list.AddContributions(cmd.EntryID, contributions)
		return len(keys) > 0, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Planner entry added to shopping list",
		zap.String("user_id", cmd.UserID.String()),
		zap.String("entry_id", cmd.EntryID.String()),
		zap.String("recipe_id", cmd.RecipeID.String()),
		zap.Int("affected_lines", len(keys)),
	)

	return changeToDTO(list, keys), nil
}

// RemoveEntry withdraws every contribution of a planner entry
func (s *Service) RemoveEntry(ctx context.Context, userID, entryID uuid.UUID) (result *inbound.ListChangeDTO, err error) {
	ctx, span := s.startSpan(ctx, opRemoveEntry, userID, attribute.String("entry.id", entryID.String()))
	start := time.Now()
	defer func() { s.finish(span, opRemoveEntry, start, err, affectedCount(result)) }()

	if userID == uuid.Nil || entryID == uuid.Nil {
		return nil, errors.NewValidationError("user_id and entry_id are required")
	}

	var keys []shopping.LineKey
	list, err := s.mutate(ctx, userID, func(list *shopping.List) (bool, error) {
		keys = list.RemoveContributions(entryID)
		return len(keys) > 0, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Planner entry removed from shopping list",
		zap.String("user_id", userID.String()),
		zap.String("entry_id", entryID.String()),
		zap.Int("affected_lines", len(keys)),
	)

	return changeToDTO(list, keys), nil
}

// RebuildList discards derived lines and aggregates the given entries anew
func (s *Service) RebuildList(ctx context.Context, cmd inbound.RebuildListCommand) (result *inbound.ListChangeDTO, err error) {
	ctx, span := s.startSpan(ctx, opRebuildList, cmd.UserID, attribute.Int("entries", len(cmd.Entries)))
	start := time.Now()
	defer func() { s.finish(span, opRebuildList, start, err, affectedCount(result)) }()

	if cmd.UserID == uuid.Nil {
		return nil, errors.NewValidationError("user_id is required")
	}

	entries, err := s.entryContributions(ctx, cmd.Entries)
	if err != nil {
		return nil, err
	}

	var keys []shopping.LineKey
	list, err := s.mutate(ctx, cmd.UserID, func(list *shopping.List) (bool, error) {
		previous := derivedKeys(list)
		keys = list.Rebuild(entries)

		current := make(map[shopping.LineKey]bool, len(keys))
		for _, key := range keys {
			current[key] = true
		}
		for _, key := range previous {
			if !current[key] {
				keys = append(keys, key)
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Shopping list rebuilt",
		zap.String("user_id", cmd.UserID.String()),
		zap.Int("entries", len(cmd.Entries)),
		zap.Int("affected_lines", len(keys)),
	)

	return changeToDTO(list, keys), nil
}

// AddManualItem adds a user-entered item
func (s *Service) AddManualItem(ctx context.Context, cmd inbound.AddManualItemCommand) (result *inbound.ShoppingItemDTO, err error) {
	ctx, span := s.startSpan(ctx, opAddManualItem, cmd.UserID)
	start := time.Now()
	defer func() { s.finish(span, opAddManualItem, start, err, 1) }()

	if cmd.UserID == uuid.Nil {
		return nil, errors.NewValidationError("user_id is required")
	}
	if cmd.Quantity < 0 {
		return nil, errors.NewValidationError("quantity must not be negative")
	}
	if s.config.MaxManualName > 0 && utf8.RuneCountInString(cmd.Name) > s.config.MaxManualName {
		return nil, errors.NewValidationError(fmt.Sprintf("name must be at most %d characters", s.config.MaxManualName))
	}

	var line shopping.Line
	_, err = s.mutate(ctx, cmd.UserID, func(list *shopping.List) (bool, error) {
		var addErr error
		line, addErr = list.AddManualItem(cmd.Name, cmd.Quantity, cmd.Unit)
		return addErr == nil, mapDomainError(addErr, uuid.Nil)
	})
	if err != nil {
		return nil, err
	}

	dto := lineToDTO(line)
	return &dto, nil
}

// RemoveManualItem deletes a manual item
func (s *Service) RemoveManualItem(ctx context.Context, userID, itemID uuid.UUID) (err error) {
	ctx, span := s.startSpan(ctx, opRemoveManualItem, userID, attribute.String("item.id", itemID.String()))
	start := time.Now()
	defer func() { s.finish(span, opRemoveManualItem, start, err, 1) }()

	_, err = s.mutate(ctx, userID, func(list *shopping.List) (bool, error) {
		return true, mapDomainError(list.RemoveManualItem(itemID), itemID)
	})
	return err
}

// SetItemHave records whether the user already has an item
func (s *Service) SetItemHave(ctx context.Context, cmd inbound.SetItemHaveCommand) (result *inbound.ShoppingItemDTO, err error) {
	ctx, span := s.startSpan(ctx, opSetItemHave, cmd.UserID, attribute.String("item.id", cmd.ItemID.String()))
	start := time.Now()
	defer func() { s.finish(span, opSetItemHave, start, err, 1) }()

	var line shopping.Line
	_, err = s.mutate(ctx, cmd.UserID, func(list *shopping.List) (bool, error) {
		var setErr error
		line, setErr = list.SetHave(cmd.ItemID, cmd.Have)
		return setErr == nil, mapDomainError(setErr, cmd.ItemID)
	})
	if err != nil {
		return nil, err
	}

	dto := lineToDTO(line)
	return &dto, nil
}

// GetList returns the user's list, served from cache when possible
func (s *Service) GetList(ctx context.Context, userID uuid.UUID) (result *inbound.ShoppingListDTO, err error) {
	ctx, span := s.startSpan(ctx, opGetList, userID)
	start := time.Now()
	defer func() { s.finish(span, opGetList, start, err, -1) }()

	if dto, ok := s.cachedList(ctx, userID); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return dto, nil
	}

	// Held until the snapshot is cached so a concurrent mutation cannot
	// invalidate between our load and our write.
	unlock := s.locks.lock(userID)
	defer unlock()

	list, err := s.lists.Load(ctx, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("load shopping list", err)
	}

	dto := listToDTO(list)
	s.cacheList(ctx, dto)
	return dto, nil
}

// GetBreakdown explains which recipes contribute to the requested lines.
// An empty itemIDs reports every derived line; manual items are skipped.
func (s *Service) GetBreakdown(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) (result []inbound.IngredientBreakdownDTO, err error) {
	ctx, span := s.startSpan(ctx, opGetBreakdown, userID, attribute.Int("items", len(itemIDs)))
	start := time.Now()
	defer func() { s.finish(span, opGetBreakdown, start, err, -1) }()

	list, err := s.lists.Load(ctx, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("load shopping list", err)
	}

	var keys []shopping.LineKey
	for _, id := range itemIDs {
		line, ok := list.Line(id)
		if !ok {
			return nil, errors.NewShoppingItemNotFoundError(id.String())
		}
		if !line.Manual {
			keys = append(keys, line.Key())
		}
	}
	if len(itemIDs) > 0 && len(keys) == 0 {
		return []inbound.IngredientBreakdownDTO{}, nil
	}

	breakdowns := list.Breakdown(keys)
	titles, err := s.recipeTitles(ctx, breakdowns)
	if err != nil {
		return nil, err
	}

	result = make([]inbound.IngredientBreakdownDTO, len(breakdowns))
	for i, b := range breakdowns {
		result[i] = breakdownToDTO(b, titles)
	}
	return result, nil
}

// mutate runs fn against a freshly loaded list under the user's lock and
// saves the result. A version conflict reloads and reapplies fn up to
// SaveRetries times. fn reports whether it changed anything; unchanged lists
// are not saved.
func (s *Service) mutate(ctx context.Context, userID uuid.UUID, fn func(*shopping.List) (bool, error)) (*shopping.List, error) {
	if userID == uuid.Nil {
		return nil, errors.NewValidationError("user_id is required")
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	for attempt := 0; attempt <= s.config.SaveRetries; attempt++ {
		list, err := s.lists.Load(ctx, userID)
		if err != nil {
			return nil, errors.NewDatabaseError("load shopping list", err)
		}

		changed, err := fn(list)
		if err != nil {
			return nil, err
		}
		if !changed {
			return list, nil
		}

		err = s.lists.Save(ctx, list)
		if err == nil {
			s.invalidateList(ctx, userID)
			s.publishEvents(ctx, userID, list.Events())
			return list, nil
		}
		if !stderrors.Is(err, shopping.ErrListVersionConflict) {
			return nil, errors.NewDatabaseError("save shopping list", err)
		}

		s.metrics.SaveConflict()
		s.logger.Warn("Shopping list changed concurrently, retrying",
			zap.String("user_id", userID.String()),
			zap.Int("attempt", attempt+1),
		)
	}

	return nil, errors.NewListConflictError(userID.String())
}

func (s *Service) entryContributions(ctx context.Context, entries []inbound.PlannedEntry) ([]shopping.EntryContributions, error) {
	ids := make([]uuid.UUID, 0, len(entries))
	seen := make(map[uuid.UUID]bool, len(entries))
	for _, e := range entries {
		if e.EntryID == uuid.Nil || e.RecipeID == uuid.Nil {
			return nil, errors.NewValidationError("every entry needs entry_id and recipe_id")
		}
		if e.Servings < 0 {
			return nil, errors.NewValidationError("servings must not be negative")
		}
		if !seen[e.RecipeID] {
			seen[e.RecipeID] = true
			ids = append(ids, e.RecipeID)
		}
	}

	found, err := s.recipes.FindByIDs(ctx, ids)
	if err != nil {
		return nil, errors.NewDatabaseError("find recipes", err)
	}
	byID := make(map[uuid.UUID]*recipe.Recipe, len(found))
	for _, r := range found {
		byID[r.ID()] = r
	}

	result := make([]shopping.EntryContributions, 0, len(entries))
	for _, e := range entries {
		r, ok := byID[e.RecipeID]
		if !ok {
			return nil, errors.NewRecipeNotFoundError(e.RecipeID.String())
		}
		result = append(result, shopping.EntryContributions{
			EntryID:       e.EntryID,
			Contributions: r.Contributions(e.EntryID, e.Servings),
		})
	}
	return result, nil
}

func (s *Service) recipeTitles(ctx context.Context, breakdowns []shopping.LineBreakdown) (map[uuid.UUID]string, error) {
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, b := range breakdowns {
		for _, row := range b.Rows {
			if !seen[row.RecipeID] {
				seen[row.RecipeID] = true
				ids = append(ids, row.RecipeID)
			}
		}
	}

	titles := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}

	found, err := s.recipes.FindByIDs(ctx, ids)
	if err != nil {
		return nil, errors.NewDatabaseError("find recipes", err)
	}
	for _, r := range found {
		titles[r.ID()] = r.Title()
	}
	return titles, nil
}

func (s *Service) recipeError(err error, recipeID uuid.UUID) error {
	if stderrors.Is(err, recipe.ErrRecipeNotFound) {
		return errors.NewRecipeNotFoundError(recipeID.String())
	}
	return errors.NewDatabaseError("find recipe", err)
}

func (s *Service) startSpan(ctx context.Context, op string, userID uuid.UUID, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("user.id", userID.String()))
	return s.tracer.Start(ctx, "shopping."+op, trace.WithAttributes(attrs...))
}

func (s *Service) finish(span trace.Span, op string, start time.Time, err error, affected int) {
	monitoring.RecordError(span, err)
	span.End()
	s.metrics.ObserveOperation(op, err, time.Since(start), affected)
}

func derivedKeys(list *shopping.List) []shopping.LineKey {
	var keys []shopping.LineKey
	for _, line := range list.Lines() {
		if !line.Manual {
			keys = append(keys, line.Key())
		}
	}
	return keys
}

func affectedCount(dto *inbound.ListChangeDTO) int {
	if dto == nil {
		return 0
	}
	return len(dto.Affected)
}
