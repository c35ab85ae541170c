package mapping

import "fmt"

// ValidationError reports a field that could not be mapped into InvoiceData.
// It is a permanent failure: retrying the same extraction result cannot fix it.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid invoice data: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid invoice data: %s=%v: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
