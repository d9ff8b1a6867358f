// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"log/slog"
	"os"

	"github.com/leadflowhq/leadflow/pkg/providers"
	"github.com/leadflowhq/leadflow/pkg/providers/apollo"
	"github.com/leadflowhq/leadflow/pkg/providers/clearbit"
	"github.com/leadflowhq/leadflow/pkg/providers/hunter"
)

// NewProviderRegistry creates a registry with the native enrichment
// provider factories installed.
func NewProviderRegistry(logger *slog.Logger) *providers.Registry {
	registry := providers.NewRegistry(logger)

	registry.Register(apollo.NewFactory())
	registry.Register(clearbit.NewFactory())
	registry.Register(hunter.NewFactory())

	return registry
}

// ProviderConfigsFromEnv reads per-provider credentials from the
// environment. Providers with no key configured report unavailable and
// fail requests instead of crashing startup.
func ProviderConfigsFromEnv() map[string]map[string]any {
	return map[string]map[string]any{
		"apollo":   {"api_key": os.Getenv("APOLLO_API_KEY")},
		"clearbit": {"api_key": os.Getenv("CLEARBIT_API_KEY")},
		"hunter":   {"api_key": os.Getenv("HUNTER_API_KEY")},
	}
}
