package enrichment

import (
	"errors"

	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// Business logic errors the API layer maps onto HTTP statuses.
var (
	// ErrRequestNotFound is returned when an enrichment request is not
	// found for the tenant.
	ErrRequestNotFound = persistence.ErrEnrichmentNotFound

	// ErrLeadNotFound is returned when the target lead does not exist or
	// belongs to another tenant.
	ErrLeadNotFound = persistence.ErrLeadNotFound

	// ErrAlreadyEnriching indicates the per-lead concurrency guard
	// rejected the trigger (409 Conflict).
	ErrAlreadyEnriching = errors.New("an enrichment is already in progress for this lead")

	// ErrProviderCannotHandle indicates the selected provider cannot work
	// with the supplied request data (400 Bad Request).
	ErrProviderCannotHandle = errors.New("provider cannot handle the request data")

	// ErrRetryNotAllowed indicates a retry of a request that is not in a
	// retryable state. Only FAILED requests may be retried (409 Conflict).
	ErrRetryNotAllowed = errors.New("only failed enrichment requests can be retried")

	// ErrMaxRetriesExceeded indicates the retry chain is exhausted
	// (409 Conflict).
	ErrMaxRetriesExceeded = errors.New("maximum retry count exceeded")

	// ErrRequestNotProcessable indicates a process call on a request that
	// is not PENDING anymore.
	ErrRequestNotProcessable = errors.New("enrichment request is not pending")

	// ErrNoActiveRequest indicates a webhook completion for a lead with no
	// request awaiting an external result.
	ErrNoActiveRequest = errors.New("no active enrichment request for lead")
)

// IsConflictError checks if an error is a state conflict that should
// return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrAlreadyEnriching) ||
		errors.Is(err, ErrRetryNotAllowed) ||
		errors.Is(err, ErrMaxRetriesExceeded) ||
		errors.Is(err, ErrRequestNotProcessable)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrLeadNotFound) ||
		errors.Is(err, ErrNoActiveRequest)
}
