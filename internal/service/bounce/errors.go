package bounce

import "errors"

// Sentinel errors for the bounce service layer.
var (
	ErrNotFound = errors.New("bounce record not found")
)
