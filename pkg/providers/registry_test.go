package providers_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/providers"
)

type stubProvider struct {
	id string
}

func (s *stubProvider) ID() string { return s.id }

func (s *stubProvider) CanHandle(request *models.EnrichmentRequest) bool { return true }

func (s *stubProvider) Enrich(ctx context.Context, request *models.EnrichmentRequest) (*providers.Result, error) {
	return &providers.Result{Success: true}, nil
}

func (s *stubProvider) IsAvailable(ctx context.Context) bool { return true }

func (s *stubProvider) Config() map[string]any { return nil }

type stubFactory struct {
	id string
}

func (f *stubFactory) ID() string { return f.id }

func (f *stubFactory) Create(config map[string]any) (providers.Provider, error) {
	return &stubProvider{id: f.id}, nil
}

func TestRegistry_CreateKnownProvider(t *testing.T) {
	registry := providers.NewRegistry(slog.Default())
	registry.Register(&stubFactory{id: "apollo"})

	provider, err := registry.Create("apollo", nil)
	require.NoError(t, err)
	assert.Equal(t, "apollo", provider.ID())
}

func TestRegistry_UnknownProviderFailsFast(t *testing.T) {
	registry := providers.NewRegistry(slog.Default())
	registry.Register(&stubFactory{id: "apollo"})

	_, err := registry.Create("nope", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrProviderNotSupported)
	assert.Contains(t, err.Error(), "nope")
}

func TestRegistry_IDs(t *testing.T) {
	registry := providers.NewRegistry(slog.Default())
	registry.Register(&stubFactory{id: "apollo"})
	registry.Register(&stubFactory{id: "clearbit"})

	assert.ElementsMatch(t, []string{"apollo", "clearbit"}, registry.IDs())
}
