package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// GeminiConfig configures the language-model interpreter.
type GeminiConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL, for proxies and tests.
	BaseURL string
}

// GeminiInterpreter interprets free-text audience descriptions with a
// Gemini model constrained to a structured JSON response.
type GeminiInterpreter struct {
	client *genai.Client
	model  string
}

// NewGeminiInterpreter creates the interpreter. Fails fast on missing
// credentials so a misconfigured deployment falls back to keywords at
// startup, not per request.
func NewGeminiInterpreter(ctx context.Context, cfg GeminiConfig) (*GeminiInterpreter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini interpreter requires an API key")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.0-flash"
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}

	return &GeminiInterpreter{client: client, model: model}, nil
}

type geminiResponse struct {
	JobTitles     []string `json:"job_titles"`
	Industries    []string `json:"industries"`
	Location      string   `json:"location"`
	CompanySize   string   `json:"company_size"`
	FundingStatus string   `json:"funding_status"`
	Reasoning     string   `json:"reasoning"`
}

var criteriaSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"job_titles":     {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"industries":     {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"location":       {Type: genai.TypeString},
		"company_size":   {Type: genai.TypeString},
		"funding_status": {Type: genai.TypeString},
		"reasoning":      {Type: genai.TypeString},
	},
	Required: []string{"job_titles", "industries", "location", "company_size", "funding_status", "reasoning"},
}

func (i *GeminiInterpreter) Interpret(ctx context.Context, text string) (*Interpretation, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty audience description", ErrInvalidInput)
	}

	resp, err := i.client.Models.GenerateContent(
		ctx,
		i.model,
		genai.Text(buildPrompt(text)),
		&genai.GenerateContentConfig{
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   criteriaSchema,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini interpretation failed: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal([]byte(resp.Text()), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse gemini response: %w", err)
	}

	return &Interpretation{
		Criteria: &models.AudienceCriteria{
			JobTitles:     parsed.JobTitles,
			Industries:    parsed.Industries,
			Location:      strings.TrimSpace(parsed.Location),
			CompanySize:   strings.TrimSpace(parsed.CompanySize),
			FundingStatus: strings.TrimSpace(parsed.FundingStatus),
		},
		Reasoning: strings.TrimSpace(parsed.Reasoning),
	}, nil
}

func buildPrompt(text string) string {
	return strings.TrimSpace(`
You translate B2B audience descriptions into targeting criteria.

Return ONLY a single JSON object with these keys:
- job_titles (array of strings)
- industries (array of strings)
- location (string)
- company_size (string; one of: "1-50", "51-500", "500+", or empty)
- funding_status (string; e.g. seed, series_a, public, or empty)
- reasoning (string; one sentence explaining the interpretation)

Rules:
- Use empty arrays or empty strings for dimensions the description does not mention.
- Do not invent criteria that are not implied by the description.

Description: ` + text + `
`)
}
