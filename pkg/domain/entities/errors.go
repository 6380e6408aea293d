package entities

import "errors"

var (
	ErrItemNotFound       = errors.New("inventory item not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrLogNotFound        = errors.New("production log not found")
	ErrLotNotFound        = errors.New("lot not found")
	ErrInvalidStage       = errors.New("invalid stage")
	ErrSummarizerDisabled = errors.New("summarizer disabled")
)

// ValidationError carries every problem found in a submitted record
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "validation failed: " + e.Problems[0]
	}
	msg := "validation failed:"
	for _, p := range e.Problems {
		msg += "\n  - " + p
	}
	return msg
}
