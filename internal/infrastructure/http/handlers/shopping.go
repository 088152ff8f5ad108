// Package handlers provides HTTP handlers for the REST API
package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/alchemorsel/mealplan/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// AddEntryRequest is the body of POST /entries
type AddEntryRequest struct {
	EntryID  uuid.UUID `json:"entry_id" validate:"required"`
	RecipeID uuid.UUID `json:"recipe_id" validate:"required"`
	Servings int       `json:"servings" validate:"gte=0"`
}

// RebuildRequest is the body of POST /rebuild
type RebuildRequest struct {
	Entries []inbound.PlannedEntry `json:"entries" validate:"dive"`
}

// AddItemRequest is the body of POST /items
type AddItemRequest struct {
	Name     string  `json:"name" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
	Unit     string  `json:"unit" validate:"max=32"`
}

// UpdateItemRequest is the body of PATCH /items/:itemID
type UpdateItemRequest struct {
	Have *bool `json:"have" validate:"required"`
}

// ShoppingHandlers serves the shopping list API
type ShoppingHandlers struct {
	service  inbound.ShoppingService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewShoppingHandlers creates the shopping list handlers
func NewShoppingHandlers(service inbound.ShoppingService, logger *zap.Logger) *ShoppingHandlers {
	return &ShoppingHandlers{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.Named("shopping-handlers"),
	}
}

// Register mounts the routes on group
func (h *ShoppingHandlers) Register(group *gin.RouterGroup) {
	group.GET("", h.GetList)
	group.POST("/entries", h.AddEntry)
	group.DELETE("/entries/:entryID", h.RemoveEntry)
	group.POST("/rebuild", h.Rebuild)
	group.POST("/items", h.AddItem)
	group.DELETE("/items/:itemID", h.RemoveItem)
	group.PATCH("/items/:itemID", h.UpdateItem)
	group.GET("/breakdown", h.GetBreakdown)
}

// GetList handles GET /api/v1/shopping-list
func (h *ShoppingHandlers) GetList(c *gin.Context) {
	userID, ok := h.user(c)
	if !ok {
		return
	}

	list, err := h.service.GetList(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: list})
}

// AddEntry handles POST /api/v1/shopping-list/entries
func (h *ShoppingHandlers) AddEntry(c *gin.Context) {
	userID, ok := h.user(c)
	if !ok {
		return
	}

	var req AddEntryRequest
	if !h.bind(c, &req) {
		return
	}

	change, err := h.service.AddEntry(c.Request.Context(), inbound.AddEntryCommand{
		UserID:   userID,
		EntryID:  req.EntryID,
		RecipeID: req.RecipeID,
		Servings: req.Servings,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: change, Message: "Entry added"})
}

// RemoveEntry handles DELETE /api/v1/shopping-list/entries/:entryID
func (h *ShoppingHandlers) RemoveEntry(c *gin.Context) {
	userID, ok := h.user(c)
	if !ok {
		return
	}
	entryID, ok := h.pathID(c, "entryID")
	if !ok {
		return
	}

	change, err := h.service.RemoveEntry(c.Request.Context(), userID, entryID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: change, Message: "Entry removed"})
}

// Rebuild handles POST /api/v1/shopping-list/rebuild
func (h *ShoppingHandlers) Rebuild(c *gin.Context) {
	userID, ok := h.user(c)
	if !ok {
		return
	}

	var req RebuildRequest
	if !h.bind(c, &req) {
		return
	}

	change, err := h.service.RebuildList(c.Request.Context(), inbound.RebuildListCommand{
		UserID:  userID,
		Entries: req.Entries,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: change, Message: "List rebuilt"})
}

// AddItem handles POST /api/v1/shopping-list/items
func (h *ShoppingHandlers) AddItem(c *gin.Context) {
	userID, ok := h.user(c)
	if !ok {
		return
	}

	var req AddItemRequest
	if !h.bind(c, &req) {
		return
	}

	item, err := h.service.AddManualItem(c.Request.Context(), inbound.AddManualItemCommand{
		UserID:   userID,
		Name:     req.Name,
		Quantity: req.Quantity,
		Unit:     req.Unit,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: item, Message: "Item added"})
}

// RemoveItem handles DELETE /api/v1/shopping-list/items/:itemID
func (h *ShoppingHandlers) RemoveItem(c *gin.Context) {
	userID, ok := h.user(c)
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "itemID")
	if !ok {
		return
	}

	if err := h.service.RemoveManualItem(c.Request.Context(), userID, itemID); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UpdateItem handles PATCH /api/v1/shopping-list/items/:itemID
func (h *ShoppingHandlers) UpdateItem(c *gin.Context) {
	userID, ok := h.user(c)
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "itemID")
	if !ok {
		return
	}

	var req UpdateItemRequest
	if !h.bind(c, &req) {
		return
	}

	item, err := h.service.SetItemHave(c.Request.Context(), inbound.SetItemHaveCommand{
		UserID: userID,
		ItemID: itemID,
		Have:   *req.Have,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: item})
}

// GetBreakdown handles GET /api/v1/shopping-list/breakdown?item=<id>
func (h *ShoppingHandlers) GetBreakdown(c *gin.Context) {
	userID, ok := h.user(c)
	if !ok {
		return
	}

	var itemIDs []uuid.UUID
	for _, raw := range c.QueryArray("item") {
		id, err := uuid.Parse(raw)
		if err != nil {
			_ = c.Error(errors.NewValidationError(fmt.Sprintf("item %q is not a valid id", raw)))
			return
		}
		itemIDs = append(itemIDs, id)
	}

	breakdown, err := h.service.GetBreakdown(c.Request.Context(), userID, itemIDs)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: breakdown})
}

func (h *ShoppingHandlers) user(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		_ = c.Error(errors.NewUnauthorizedError(""))
	}
	return userID, ok
}

func (h *ShoppingHandlers) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		_ = c.Error(errors.NewValidationError(fmt.Sprintf("%s is not a valid id", name)))
		return uuid.Nil, false
	}
	return id, true
}

// bind decodes the JSON body into req and validates it
func (h *ShoppingHandlers) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(errors.NewBadRequestError("Invalid request body").WithCause(err))
		return false
	}

	if err := h.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !stderrors.As(err, &fieldErrs) {
			_ = c.Error(errors.NewValidationError(err.Error()))
			return false
		}

		details := make([]errors.ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, errors.ValidationError{
				Field:   fe.Namespace(),
				Value:   fe.Value(),
				Tag:     fe.Tag(),
				Message: fmt.Sprintf("%s failed on the %q rule", fe.Field(), fe.Tag()),
			})
		}
		_ = c.Error(errors.NewValidationErrors(details))
		return false
	}

	return true
}
