package approval

import "errors"

// Sentinel errors for the approval service layer.
var (
	ErrNotFound       = errors.New("approval request not found")
	ErrAlreadyDecided = errors.New("approval request already decided")
	ErrStillPending   = errors.New("approval request still pending")
	ErrRejected       = errors.New("approval request was rejected")
	ErrAlreadyResumed = errors.New("approval request already resumed")
)
