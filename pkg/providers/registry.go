package providers

import (
	"fmt"
	"log/slog"
)

// Registry maps provider identifiers to factories. It is populated at
// startup and read-only afterwards.
type Registry struct {
	logger    *slog.Logger
	factories map[string]Factory
}

// NewRegistry creates an empty provider registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]Factory),
	}
}

// Register adds a provider factory. Registering the same identifier twice
// replaces the earlier factory.
func (r *Registry) Register(factory Factory) {
	r.factories[factory.ID()] = factory
	r.logger.Info("Registered enrichment provider", "provider", factory.ID())
}

// Create instantiates a provider by identifier. Unknown identifiers fail
// fast with ErrProviderNotSupported.
func (r *Registry) Create(providerID string, config map[string]any) (Provider, error) {
	factory, ok := r.factories[providerID]
	if !ok {
		return nil, fmt.Errorf("provider %q: %w", providerID, ErrProviderNotSupported)
	}

	return factory.Create(config)
}

// IDs returns the registered provider identifiers.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}

	return ids
}
