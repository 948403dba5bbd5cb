package story

import "fmt"

// ValidationError marks input rejected before any stage ran. Fatal, no retry.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}
