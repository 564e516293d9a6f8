package preference

import "errors"

// Sentinel errors for the preference service layer.
var (
	ErrNotFound     = errors.New("unsubscribe record not found")
	ErrTokenInvalid = errors.New("invalid unsubscribe token")
)
