package validator

import (
	"fmt"
	"slices"
)

// InList validates that value is one of allowed. The message lists the
// allowed values using fmt's %v formatting, so time.Duration reads as "5m0s".
func InList[T comparable](field string, value T, allowed []T) Rule {
	return Rule{
		Check: func() bool {
			return slices.Contains(allowed, value)
		},
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be one of: %v", allowed)},
	}
}
