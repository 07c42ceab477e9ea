package validator

import "fmt"

// MinNum fails when value < lo.
func MinNum[T Numeric](field string, value, lo T) Rule {
	return Rule{
		Check: func() bool { return value >= lo },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at least %v", lo)},
	}
}

// MaxNum fails when value > hi.
func MaxNum[T Numeric](field string, value, hi T) Rule {
	return Rule{
		Check: func() bool { return value <= hi },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at most %v", hi)},
	}
}
