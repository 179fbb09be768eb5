package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. validator.Validate caches
// struct metadata internally and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Check validates a record against its struct tags. Used at the
// localstore boundary so malformed persisted data fails fast instead
// of propagating zero values through the UI.
func Check(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validate %T: %w", v, err)
	}
	return nil
}

// CheckAll validates every element of a slice and reports the first
// failure with its index.
func CheckAll[T any](vs []T) error {
	for i := range vs {
		if err := validate.Struct(&vs[i]); err != nil {
			return fmt.Errorf("validate %T[%d]: %w", vs[i], i, err)
		}
	}
	return nil
}
