// Package translation turns audience descriptions in four input formats
// into structured targeting criteria, an enrichment schema and sample
// leads.
package translation

import (
	"context"
	"errors"
	"fmt"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// ErrInvalidInput indicates malformed raw input. Never retried.
var ErrInvalidInput = errors.New("invalid translation input")

// Interpretation is what each format interpreter produces.
type Interpretation struct {
	Criteria  *models.AudienceCriteria
	Reasoning string
}

// Interpreter turns free-form text into audience criteria. The
// genai-backed implementation lives in gemini.go; KeywordInterpreter is
// the deterministic fallback.
type Interpreter interface {
	Interpret(ctx context.Context, text string) (*Interpretation, error)
}

// Config tunes the pipeline output.
type Config struct {
	// MaxSampleLeads bounds the synthetic lead preview. Defaults to 5.
	MaxSampleLeads int
}

type interpretFunc func(ctx context.Context, rawInput string, structuredData map[string]any) (*Interpretation, error)

// Pipeline interprets input, derives the enrichment schema, generates
// sample leads and scores confidence.
type Pipeline struct {
	interpreters map[models.InputFormat]interpretFunc
	config       Config
}

// NewPipeline creates a pipeline delegating FREE_TEXT to the given
// interpreter.
func NewPipeline(freeText Interpreter, config Config) *Pipeline {
	if config.MaxSampleLeads <= 0 {
		config.MaxSampleLeads = 5
	}

	if freeText == nil {
		freeText = NewKeywordInterpreter()
	}

	p := &Pipeline{config: config}

	p.interpreters = map[models.InputFormat]interpretFunc{
		models.InputFormatFreeText: func(ctx context.Context, rawInput string, _ map[string]any) (*Interpretation, error) {
			return freeText.Interpret(ctx, rawInput)
		},
		models.InputFormatStructuredJSON: interpretStructuredJSON,
		models.InputFormatCSVUpload: func(_ context.Context, rawInput string, _ map[string]any) (*Interpretation, error) {
			return interpretCSV(rawInput)
		},
		models.InputFormatFormInput: func(_ context.Context, rawInput string, _ map[string]any) (*Interpretation, error) {
			return interpretForm(rawInput)
		},
	}

	return p
}

// Process runs the full pipeline for one request.
func (p *Pipeline) Process(ctx context.Context, format models.InputFormat, rawInput string, structuredData map[string]any) (*models.TranslationResult, error) {
	interpret, ok := p.interpreters[format]
	if !ok {
		return nil, fmt.Errorf("input format %q: %w", format, ErrInvalidInput)
	}

	interpretation, err := interpret(ctx, rawInput, structuredData)
	if err != nil {
		return nil, err
	}

	schema := GenerateEnrichmentSchema(interpretation.Criteria)
	leads := GenerateSampleLeads(interpretation.Criteria, p.config.MaxSampleLeads)
	confidence := CalculateConfidence(interpretation.Criteria, schema, leads)

	return &models.TranslationResult{
		Criteria:   interpretation.Criteria,
		Schema:     schema,
		Leads:      leads,
		Reasoning:  interpretation.Reasoning,
		Confidence: confidence,
	}, nil
}
