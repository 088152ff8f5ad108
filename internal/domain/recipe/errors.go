package recipe

import "errors"

// Domain errors for recipe operations

var (
	ErrTitleTooShort   = errors.New("recipe title must be at least 3 characters")
	ErrTitleTooLong    = errors.New("recipe title must not exceed 200 characters")
	ErrInvalidServings = errors.New("servings must be greater than 0")
	ErrIngredientName  = errors.New("ingredient name is required")
	ErrNegativeAmount  = errors.New("ingredient amount cannot be negative")
	ErrRecipeNotFound  = errors.New("recipe not found")
)
