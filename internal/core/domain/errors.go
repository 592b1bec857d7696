package domain

import "errors"

var (
	ErrInvalidDateFormat = errors.New("invalid date format")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidID         = errors.New("invalid id")
	ErrUsage             = errors.New("invalid command usage")
	ErrNotFound          = errors.New("record not found")
)

// ValidationError is reported back to the user as a corrective message.
// No store mutation happens when one is returned.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid builds a ValidationError around one of the sentinel errors.
func Invalid(err error, message string) *ValidationError {
	return &ValidationError{Err: err, Message: message}
}
