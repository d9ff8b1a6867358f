// Package apollo implements the Apollo people-match enrichment provider.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/providers"
	"github.com/leadflowhq/leadflow/pkg/providers/base"
)

const (
	providerID     = "apollo"
	defaultBaseURL = "https://api.apollo.io"
	defaultTimeout = 15 * time.Second
)

// Provider calls the Apollo people-match API.
type Provider struct {
	*base.Provider

	client  *http.Client
	baseURL string
}

// NewProvider creates an Apollo provider from configuration.
func NewProvider(config map[string]any) *Provider {
	b := base.New(providerID, config)

	baseURL := b.ConfigString("base_url")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		Provider: b,
		client:   &http.Client{Timeout: defaultTimeout},
		baseURL:  baseURL,
	}
}

// CanHandle requires an email or a LinkedIn profile URL in the request.
func (p *Provider) CanHandle(request *models.EnrichmentRequest) bool {
	if email, ok := request.RequestData["email"].(string); ok && email != "" {
		return true
	}

	url, ok := request.RequestData["linkedin_url"].(string)

	return ok && url != ""
}

// IsAvailable reports whether a credential is configured.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.APIKey() != ""
}

// Enrich performs the people-match call.
func (p *Provider) Enrich(ctx context.Context, request *models.EnrichmentRequest) (*providers.Result, error) {
	return p.Run(ctx, func(ctx context.Context) (map[string]any, error) {
		payload := map[string]any{}
		for _, key := range []string{"email", "name", "linkedin_url"} {
			if value, ok := request.RequestData[key]; ok {
				payload[key] = value
			}
		}

		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal match payload: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/people/match", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Api-Key", p.APIKey())

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("apollo responded with status %d", resp.StatusCode)
		}

		var decoded struct {
			Person map[string]any `json:"person"`
		}

		err = json.NewDecoder(resp.Body).Decode(&decoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode apollo response: %w", err)
		}

		if decoded.Person == nil {
			return nil, fmt.Errorf("apollo returned no person match")
		}

		return decoded.Person, nil
	}), nil
}

// Factory creates Apollo providers.
type Factory struct{}

// NewFactory creates the Apollo provider factory.
func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return providerID
}

func (f *Factory) Create(config map[string]any) (providers.Provider, error) {
	return NewProvider(config), nil
}
