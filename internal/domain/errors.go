// Package domain defines the core types, ports and errors of the grid service.
package domain

import "fmt"

// NotFoundError indicates a dataset or record was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input, including unknown fields when
// strict field resolution is enabled.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IdentifierError indicates a table or field name that is not a safe SQL
// identifier.
type IdentifierError struct {
	Name    string
	Message string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("unsafe identifier %q: %s", e.Name, e.Message)
}

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// StorageError wraps a failure of the underlying database. Op names the
// step that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrIdentifier creates an IdentifierError for name.
func ErrIdentifier(name string, cause error) *IdentifierError {
	return &IdentifierError{Name: name, Message: cause.Error()}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrStorage wraps err as a StorageError for op. A nil err yields nil.
func ErrStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
