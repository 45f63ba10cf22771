package swap

import (
	"errors"
	"fmt"
)

// ErrValidation is the parent of every swap rejection. Rejected swaps are
// never sent to the server.
var ErrValidation = errors.New("invalid swap")

var (
	ErrInvalidCoordinate = fmt.Errorf("%w: malformed coordinate", ErrValidation)
	ErrSameSlot          = fmt.Errorf("%w: source and target are the same slot", ErrValidation)
	ErrEmptySlot         = fmt.Errorf("%w: slot holds no meal", ErrValidation)
	ErrCategoryMismatch  = fmt.Errorf("%w: meals are in different categories", ErrValidation)
	ErrStaleMeal         = fmt.Errorf("%w: slot no longer holds that meal", ErrValidation)
)
