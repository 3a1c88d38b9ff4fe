package repository

import (
	"fmt"
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	Key      string
	Value    string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with %s %s not found", e.Resource, e.Key, e.Value)
}

// ConflictError represents a write rejected by a uniqueness constraint
type ConflictError struct {
	Resource string
	Key      string
	Value    string
	Err      error
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with %s %s already exists", e.Resource, e.Key, e.Value)
}

// Unwrap returns the driver error
func (e *ConflictError) Unwrap() error {
	return e.Err
}

// PreconditionError represents a conditional write skipped because the stored row changed
type PreconditionError struct {
	Resource string
	Key      string
	Value    string
}

// Error implements the error interface
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s with %s %s was modified concurrently", e.Resource, e.Key, e.Value)
}
