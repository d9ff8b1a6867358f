// Package persistence provides standardized error types for persistence
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all backends should use.
var (
	// ErrEnrichmentNotFound indicates an enrichment request was not found
	// for the given identifier and tenant.
	ErrEnrichmentNotFound = errors.New("enrichment request not found")

	// ErrActiveEnrichmentExists indicates a PENDING or IN_PROGRESS request
	// already exists for the lead.
	ErrActiveEnrichmentExists = errors.New("active enrichment already exists for lead")

	// ErrExecutionNotFound indicates a workflow execution was not found.
	ErrExecutionNotFound = errors.New("workflow execution not found")

	// ErrTranslationNotFound indicates a translation request was not found.
	ErrTranslationNotFound = errors.New("translation request not found")

	// ErrLeadNotFound indicates a lead was not found or belongs to another
	// tenant.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrInvalidCursor indicates a pagination cursor could not be decoded.
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)

// RepositoryError wraps repository errors with operation context.
type RepositoryError struct {
	Op       string // Operation being performed (e.g. "Create", "GetByID")
	Entity   string // Entity kind (e.g. "enrichment_request")
	EntityID string // Entity ID if applicable
	Err      error  // Underlying error
}

func (e *RepositoryError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.EntityID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s: %v", e.Op, e.Entity, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

func (e *RepositoryError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRepositoryError creates a repository error with context.
func NewRepositoryError(op, entity, entityID string, err error) *RepositoryError {
	return &RepositoryError{
		Op:       op,
		Entity:   entity,
		EntityID: entityID,
		Err:      err,
	}
}

// IsEnrichmentNotFound checks if an error indicates a missing enrichment
// request.
func IsEnrichmentNotFound(err error) bool {
	return errors.Is(err, ErrEnrichmentNotFound)
}

// IsActiveEnrichmentExists checks if an error indicates the per-lead
// concurrency guard rejected an insert.
func IsActiveEnrichmentExists(err error) bool {
	return errors.Is(err, ErrActiveEnrichmentExists)
}

// IsExecutionNotFound checks if an error indicates a missing execution.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsTranslationNotFound checks if an error indicates a missing translation
// request.
func IsTranslationNotFound(err error) bool {
	return errors.Is(err, ErrTranslationNotFound)
}

// IsLeadNotFound checks if an error indicates a missing lead.
func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}
