package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed entity at the storage boundary.
type ValidationError struct {
	EntityID string
	Field    string
	Message  string
}

func (e *ValidationError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("invalid entity %s: %s: %s", e.EntityID, e.Field, e.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func withEntity(err error, id string) error {
	var ve *ValidationError
	if errors.As(err, &ve) && ve.EntityID == "" {
		ve.EntityID = id
	}
	return err
}
