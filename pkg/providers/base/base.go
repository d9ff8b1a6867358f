// Package base supplies the shared scaffolding concrete enrichment
// providers embed: duration instrumentation around the call, response
// field normalization and the rate-limit backoff helper.
package base

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/otelhelper"
	"github.com/leadflowhq/leadflow/pkg/providers"
)

const defaultBaseDelay = 500 * time.Millisecond

// Provider carries the configuration and helpers shared by concrete
// providers.
type Provider struct {
	id        string
	config    map[string]any
	baseDelay time.Duration
}

// New creates the embedded base for a concrete provider.
func New(id string, config map[string]any) *Provider {
	if config == nil {
		config = make(map[string]any)
	}

	baseDelay := defaultBaseDelay
	if ms, ok := config["base_delay_ms"].(float64); ok && ms > 0 {
		baseDelay = time.Duration(ms) * time.Millisecond
	}

	return &Provider{
		id:        id,
		config:    config,
		baseDelay: baseDelay,
	}
}

// ID returns the provider identifier.
func (p *Provider) ID() string {
	return p.id
}

// Config returns the provider configuration with secrets redacted.
func (p *Provider) Config() map[string]any {
	redacted := make(map[string]any, len(p.config))

	for key, value := range p.config {
		if key == "api_key" {
			redacted[key] = "[redacted]"

			continue
		}

		redacted[key] = value
	}

	return redacted
}

// APIKey returns the configured credential, if any.
func (p *Provider) APIKey() string {
	key, _ := p.config["api_key"].(string)

	return key
}

// ConfigString returns a string configuration value.
func (p *Provider) ConfigString(key string) string {
	value, _ := p.config[key].(string)

	return value
}

// Backoff returns the delay before the given retry attempt for
// rate-limited providers: 2^retryCount * baseDelay. Attempts past the
// shared retry cap are clamped to the cap's delay.
func (p *Provider) Backoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}

	if retryCount > models.MaxEnrichmentRetries {
		retryCount = models.MaxEnrichmentRetries
	}

	return time.Duration(1<<uint(retryCount)) * p.baseDelay
}

// Run times the provider call and folds its outcome into a Result.
// Context deadline expiry is reported as a timeout, not an error, so the
// orchestrator can surface a TIMEOUT status.
func (p *Provider) Run(ctx context.Context, call func(ctx context.Context) (map[string]any, error)) *providers.Result {
	ctx, span := otelhelper.StartSpan(ctx, otel.Tracer("leadflow-providers"), "provider.enrich",
		attribute.String(otelhelper.ProviderIDKey, p.id))
	defer span.End()

	started := time.Now()

	data, err := call(ctx)
	durationMs := time.Since(started).Milliseconds()

	if err != nil {
		otelhelper.SetError(span, err)

		result := &providers.Result{
			ErrorMessage: err.Error(),
			DurationMs:   durationMs,
		}

		if errors.Is(err, context.DeadlineExceeded) {
			result.TimedOut = true
		}

		return result
	}

	return &providers.Result{
		Success:    true,
		Data:       Standardize(data),
		DurationMs: durationMs,
	}
}

// fieldVariants maps canonical field names to provider-specific aliases,
// in precedence order.
var fieldVariants = map[string][]string{
	"full_name":    {"full_name", "fullName", "name"},
	"email":        {"email", "emailAddress", "email_address"},
	"phone_number": {"phone_number", "phoneNumber", "phone"},
	"job_title":    {"job_title", "jobTitle", "title", "position"},
	"company_name": {"company_name", "companyName", "company", "organization"},
	"linkedin_url": {"linkedin_url", "linkedinUrl", "linkedin", "profileUrl"},
	"location":     {"location", "city", "country"},
}

// Standardize maps provider-specific field name variants onto the
// canonical lead schema. Unrecognized fields are carried through
// untouched so no provider data is lost.
func Standardize(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	out := make(map[string]any, len(data))

	claimed := make(map[string]bool)

	for canonical, variants := range fieldVariants {
		for _, variant := range variants {
			value, ok := data[variant]
			if !ok {
				continue
			}

			claimed[variant] = true

			if _, exists := out[canonical]; !exists {
				if s, isString := value.(string); !isString || s != "" {
					out[canonical] = value
				}
			}
		}
	}

	for key, value := range data {
		if !claimed[key] {
			out[key] = value
		}
	}

	return out
}
