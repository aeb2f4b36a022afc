// Package fault holds the error types shared across pipeline boundaries.
//
// Lower layers report what went wrong; only the chat orchestrator decides
// whether a failure degrades the answer or is surfaced to the caller.
package fault

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned for blank queries before the pipeline runs.
var ErrEmptyInput = errors.New("query must not be empty")

// Component names used in DependencyError.
const (
	ComponentEmbedding  = "embedding"
	ComponentIndex      = "index"
	ComponentGeneration = "generation"
	ComponentLoader     = "loader"
	ComponentCatalog    = "catalog"
)

// DependencyError wraps a failure of an external backend.
type DependencyError struct {
	Component string
	Err       error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s dependency failed: %v", e.Component, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// Dependency wraps err as a DependencyError, or returns nil for a nil err.
func Dependency(component string, err error) error {
	if err == nil {
		return nil
	}
	return &DependencyError{Component: component, Err: err}
}

// IsDependency reports whether err is a DependencyError for component. An
// empty component matches any.
func IsDependency(err error, component string) bool {
	var dep *DependencyError
	if !errors.As(err, &dep) {
		return false
	}
	return component == "" || dep.Component == component
}

// InitializationError marks a pipeline that could not be assembled at all.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialize pipeline: %v", e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}
