package festival

import (
	"errors"
	"fmt"
)

var (
	ErrBlank            = errors.New("value is blank")
	ErrNegativeDuration = errors.New("duration must be >= 0")
	ErrNoStyles         = errors.New("at least one style is required")
	ErrUnknownStyle     = errors.New("unknown style")
	ErrUnknownMonth     = errors.New("unknown month")
	ErrInvalidDate      = errors.New("invalid date")
)

// ValidationError reports a structurally invalid festival field. It is
// returned at construction/parse time and never from Agenda operations.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("festival: invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("festival: invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field, value string, err error) error {
	return &ValidationError{Field: field, Value: value, Err: err}
}
