package base

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardize(t *testing.T) {
	tests := []struct {
		name     string
		input    map[string]any
		expected map[string]any
	}{
		{
			name:     "nil input",
			input:    nil,
			expected: nil,
		},
		{
			name: "camelCase variants",
			input: map[string]any{
				"fullName":    "Ada Lovelace",
				"phoneNumber": "+44 20 7946 0958",
				"jobTitle":    "CTO",
				"companyName": "Analytical Engines",
				"linkedinUrl": "https://linkedin.com/in/ada",
			},
			expected: map[string]any{
				"full_name":    "Ada Lovelace",
				"phone_number": "+44 20 7946 0958",
				"job_title":    "CTO",
				"company_name": "Analytical Engines",
				"linkedin_url": "https://linkedin.com/in/ada",
			},
		},
		{
			name: "short variants",
			input: map[string]any{
				"name":     "Grace Hopper",
				"phone":    "+1 555 0100",
				"title":    "Rear Admiral",
				"company":  "US Navy",
				"linkedin": "https://linkedin.com/in/grace",
				"city":     "Arlington",
			},
			expected: map[string]any{
				"full_name":    "Grace Hopper",
				"phone_number": "+1 555 0100",
				"job_title":    "Rear Admiral",
				"company_name": "US Navy",
				"linkedin_url": "https://linkedin.com/in/grace",
				"location":     "Arlington",
			},
		},
		{
			name: "first matching variant wins",
			input: map[string]any{
				"job_title": "CTO",
				"position":  "Engineer",
			},
			expected: map[string]any{
				"job_title": "CTO",
			},
		},
		{
			name: "unknown fields carried through",
			input: map[string]any{
				"name":      "Ada",
				"seniority": "executive",
			},
			expected: map[string]any{
				"full_name": "Ada",
				"seniority": "executive",
			},
		},
		{
			name: "empty string does not shadow a later variant",
			input: map[string]any{
				"full_name": "",
				"name":      "Ada",
			},
			expected: map[string]any{
				"full_name": "Ada",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Standardize(tt.input))
		})
	}
}

func TestBackoff(t *testing.T) {
	provider := New("test", map[string]any{"base_delay_ms": float64(100)})

	tests := []struct {
		retryCount int
		expected   time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 800 * time.Millisecond}, // clamped at the retry cap
		{-1, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, provider.Backoff(tt.retryCount), "retryCount=%d", tt.retryCount)
	}
}

func TestRun_SuccessStandardizesAndTimes(t *testing.T) {
	provider := New("test", nil)

	result := provider.Run(context.Background(), func(ctx context.Context) (map[string]any, error) {
		return map[string]any{"name": "Ada"}, nil
	})

	require.True(t, result.Success)
	assert.Equal(t, "Ada", result.Data["full_name"])
	assert.GreaterOrEqual(t, result.DurationMs, int64(0))
	assert.Empty(t, result.ErrorMessage)
}

func TestRun_FailureIsAValueNotAnError(t *testing.T) {
	provider := New("test", nil)

	result := provider.Run(context.Background(), func(ctx context.Context) (map[string]any, error) {
		return nil, errors.New("rate limited")
	})

	assert.False(t, result.Success)
	assert.Equal(t, "rate limited", result.ErrorMessage)
	assert.False(t, result.TimedOut)
}

func TestRun_DeadlineSurfacesAsTimeout(t *testing.T) {
	provider := New("test", nil)

	result := provider.Run(context.Background(), func(ctx context.Context) (map[string]any, error) {
		return nil, context.DeadlineExceeded
	})

	assert.False(t, result.Success)
	assert.True(t, result.TimedOut)
}

func TestConfig_RedactsAPIKey(t *testing.T) {
	provider := New("test", map[string]any{
		"api_key":  "secret-key",
		"base_url": "https://api.example.com",
	})

	config := provider.Config()
	assert.Equal(t, "[redacted]", config["api_key"])
	assert.Equal(t, "https://api.example.com", config["base_url"])
	assert.Equal(t, "secret-key", provider.APIKey())
}
