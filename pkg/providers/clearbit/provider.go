// Package clearbit implements the Clearbit combined-lookup enrichment
// provider.
package clearbit

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
	providerID     = "clearbit"
	defaultBaseURL = "https://person.clearbit.com"
	defaultTimeout = 15 * time.Second
)

// Provider calls the Clearbit combined person/company lookup.
type Provider struct {
	*base.Provider

	client  *http.Client
	baseURL string
}

// NewProvider creates a Clearbit provider from configuration.
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

// Enrich performs the combined lookup.
func (p *Provider) Enrich(ctx context.Context, request *models.EnrichmentRequest) (*providers.Result, error) {
	return p.Run(ctx, func(ctx context.Context) (map[string]any, error) {
		email, _ := request.RequestData["email"].(string)

		endpoint := p.baseURL + "/v2/combined/find?email=" + url.QueryEscape(email)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Authorization", "Bearer "+p.APIKey())

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("clearbit responded with status %d", resp.StatusCode)
		}

		var decoded struct {
			Person  map[string]any `json:"person"`
			Company map[string]any `json:"company"`
		}

		err = json.NewDecoder(resp.Body).Decode(&decoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode clearbit response: %w", err)
		}

		if decoded.Person == nil && decoded.Company == nil {
			return nil, fmt.Errorf("clearbit found no match for email")
		}

		merged := make(map[string]any, len(decoded.Person)+1)
		for key, value := range decoded.Person {
			merged[key] = value
		}

		if decoded.Company != nil {
			if name, ok := decoded.Company["name"].(string); ok {
				merged["company_name"] = name
			}

			merged["company"] = decoded.Company
		}

		return merged, nil
	}), nil
}

// Factory creates Clearbit providers.
type Factory struct{}

// NewFactory creates the Clearbit provider factory.
func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return providerID
}

func (f *Factory) Create(config map[string]any) (providers.Provider, error) {
	return NewProvider(config), nil
}
