package transaction

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired is returned when an operation needs an identity and none is active.
	ErrAuthRequired = errors.New("authentication required")
	// ErrNotFound is returned when the transaction does not exist for the user.
	ErrNotFound = errors.New("transaction not found")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreError wraps a failure of the underlying document store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// storeErr keeps sentinel errors recognisable and wraps everything else.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAuthRequired) {
		return err
	}

	var se *StoreError
	if errors.As(err, &se) {
		return err
	}

	return &StoreError{Op: op, Err: err}
}
