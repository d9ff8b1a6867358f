// Package hunter implements the Hunter email-verification enrichment
// provider.
package hunter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/providers"
	"github.com/leadflowhq/leadflow/pkg/providers/base"
)

const (
	providerID     = "hunter"
	defaultBaseURL = "https://api.hunter.io"
	defaultTimeout = 15 * time.Second
)

// Provider calls the Hunter people API.
type Provider struct {
	*base.Provider

	client  *http.Client
	baseURL string
}

// NewProvider creates a Hunter provider from configuration.
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

// CanHandle requires an email address in the request.
func (p *Provider) CanHandle(request *models.EnrichmentRequest) bool {
	email, ok := request.RequestData["email"].(string)

	return ok && email != ""
}

// IsAvailable reports whether a credential is configured.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.APIKey() != ""
}

// Enrich performs the people lookup.
func (p *Provider) Enrich(ctx context.Context, request *models.EnrichmentRequest) (*providers.Result, error) {
	return p.Run(ctx, func(ctx context.Context) (map[string]any, error) {
		email, _ := request.RequestData["email"].(string)

		endpoint := fmt.Sprintf("%s/v2/people/find?email=%s&api_key=%s",
			p.baseURL, url.QueryEscape(email), url.QueryEscape(p.APIKey()))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("hunter rate limit exceeded")
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("hunter responded with status %d", resp.StatusCode)
		}

		var decoded struct {
			Data map[string]any `json:"data"`
		}

		err = json.NewDecoder(resp.Body).Decode(&decoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode hunter response: %w", err)
		}

		if decoded.Data == nil {
			return nil, fmt.Errorf("hunter found no person for email")
		}

		return decoded.Data, nil
	}), nil
}

// Factory creates Hunter providers.
type Factory struct{}

// NewFactory creates the Hunter provider factory.
func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return providerID
}

func (f *Factory) Create(config map[string]any) (providers.Provider, error) {
	return NewProvider(config), nil
}
