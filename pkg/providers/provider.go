// Package providers defines the capability contract enrichment providers
// implement and the registry the orchestrator resolves them through.
package providers

import (
	"context"
	"errors"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// ErrProviderNotSupported indicates a provider identifier with no
// registered factory. The orchestrator fails fast on it without
// attempting any network call.
var ErrProviderNotSupported = errors.New("provider not supported")

// ErrProviderUnavailable indicates a provider that is registered but
// reported itself unavailable.
var ErrProviderUnavailable = errors.New("provider unavailable")

// Result is the outcome of one provider call. A failed call is a value,
// not an error: the orchestrator turns it into a FAILED (or TIMEOUT)
// status transition instead of propagating.
type Result struct {
	Success      bool           `json:"success"`
	Data         map[string]any `json:"data,omitempty"`
	ErrorMessage string         `json:"error,omitempty"`
	TimedOut     bool           `json:"timed_out,omitempty"`
	DurationMs   int64          `json:"duration_ms"`
}

// Provider is one third-party enrichment source.
type Provider interface {
	// ID returns the provider identifier requests select it by.
	ID() string

	// CanHandle reports whether the provider can work with the request's
	// input data.
	CanHandle(request *models.EnrichmentRequest) bool

	// Enrich performs the provider call. Provider-level failures are
	// reported inside the Result; an error return means the call could
	// not be made at all.
	Enrich(ctx context.Context, request *models.EnrichmentRequest) (*Result, error)

	// IsAvailable reports whether the provider is configured and healthy.
	IsAvailable(ctx context.Context) bool

	// Config returns the provider configuration with secrets redacted.
	Config() map[string]any
}

// Factory creates provider instances from configuration.
type Factory interface {
	ID() string
	Create(config map[string]any) (Provider, error)
}
