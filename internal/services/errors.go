package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ValidationError reports caller input that breaks a precondition. Message is
// safe to show to the shopper.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports a referenced row that does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// EmptyCartError is returned when checkout finds no cart lines.
type EmptyCartError struct {
	SessionID string
}

func (e *EmptyCartError) Error() string {
	return "your cart is empty"
}

// BackingStoreError wraps a persistence failure. Error() is generic; the
// cause is only available through Unwrap for logging.
type BackingStoreError struct {
	Op  string
	Err error
}

func (e *BackingStoreError) Error() string {
	return "storage is temporarily unavailable"
}

func (e *BackingStoreError) Unwrap() error {
	return e.Err
}

// Detail describes the failed operation and its cause for logs.
func (e *BackingStoreError) Detail() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackingStoreError{Op: op, Err: err}
}

// IsNotFound reports whether err is a NotFoundError or gorm's record-not-found.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) || errors.Is(err, gorm.ErrRecordNotFound)
}
