package dataservice

import "fmt"

// ValidationError reports caller-supplied input rejected before any
// transport call, so a failed validation never leaves a partially-applied
// mutation behind.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// DuplicateOrderError reports an attempted order number that already exists.
type DuplicateOrderError struct {
	OrderNumber string
}

func (e *DuplicateOrderError) Error() string {
	return fmt.Sprintf("order number %q already exists", e.OrderNumber)
}
