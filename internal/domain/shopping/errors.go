package shopping

import "errors"

// Domain errors for shopping list operations

var (
	ErrLineNotFound        = errors.New("shopping list item not found")
	ErrLineNotManual       = errors.New("only manually added items can be removed directly")
	ErrInvalidItemName     = errors.New("shopping list item name is required")
	ErrListVersionConflict = errors.New("shopping list was modified concurrently")
)
