package memory

import (
	"context"
	"sync"

	"github.com/alchemorsel/mealplan/internal/domain/recipe"
	"github.com/alchemorsel/mealplan/internal/domain/shopping"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/google/uuid"
)

type storedList struct {
	version int64
	lines   []shopping.Line
}

// ShoppingListRepository keeps list snapshots in memory with the same
// optimistic version check as the SQL store
type ShoppingListRepository struct {
	mu    sync.Mutex
	lists map[uuid.UUID]storedList
}

// NewShoppingListRepository creates an empty in-memory list store
func NewShoppingListRepository() *ShoppingListRepository {
	return &ShoppingListRepository{lists: make(map[uuid.UUID]storedList)}
}

var _ outbound.ShoppingListRepository = (*ShoppingListRepository)(nil)

// Load returns a restored copy of the user's list
func (r *ShoppingListRepository) Load(ctx context.Context, userID uuid.UUID) (*shopping.List, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.lists[userID]
	if !ok {
		return shopping.NewList(userID), nil
	}
	return shopping.RestoreList(userID, stored.version, stored.lines), nil
}

// Save stores a snapshot when the list's version matches the stored one
func (r *ShoppingListRepository) Save(ctx context.Context, list *shopping.List) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.lists[list.UserID()]
	if stored.version != list.Version() {
		return shopping.ErrListVersionConflict
	}

	next := stored.version + 1
	r.lists[list.UserID()] = storedList{version: next, lines: list.Lines()}
	list.SetVersion(next)
	return nil
}

// RecipeRepository is an in-memory recipe catalog
type RecipeRepository struct {
	mu      sync.RWMutex
	recipes map[uuid.UUID]*recipe.Recipe
}

// NewRecipeRepository creates an in-memory catalog holding the given recipes
func NewRecipeRepository(recipes ...*recipe.Recipe) *RecipeRepository {
	r := &RecipeRepository{recipes: make(map[uuid.UUID]*recipe.Recipe, len(recipes))}
	for _, rec := range recipes {
		r.recipes[rec.ID()] = rec
	}
	return r
}

var _ outbound.RecipeRepository = (*RecipeRepository)(nil)

// Create stores a recipe
func (r *RecipeRepository) Create(ctx context.Context, rec *recipe.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recipes[rec.ID()] = rec
	return nil
}

// FindByID returns the recipe or recipe.ErrRecipeNotFound
func (r *RecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.recipes[id]
	if !ok {
		return nil, recipe.ErrRecipeNotFound
	}
	return rec, nil
}

// FindByIDs returns the recipes that exist among ids, in the order requested
func (r *RecipeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*recipe.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found []*recipe.Recipe
	for _, id := range ids {
		if rec, ok := r.recipes[id]; ok {
			found = append(found, rec)
		}
	}
	return found, nil
}
