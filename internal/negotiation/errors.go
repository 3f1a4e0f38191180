package negotiation

import "errors"

var (
	// ErrInvalidRequest is returned before any turn runs when construction input is malformed
	ErrInvalidRequest = errors.New("negotiation: invalid request")
	// ErrNotActive is returned when a step is attempted on a terminated negotiation
	ErrNotActive = errors.New("negotiation: not active")
)
