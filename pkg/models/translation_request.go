package models

import (
	"time"

	"github.com/google/uuid"
)

// InputFormat identifies how a translation request's raw input should be
// interpreted.
type InputFormat string

const (
	InputFormatFreeText       InputFormat = "FREE_TEXT"
	InputFormatStructuredJSON InputFormat = "STRUCTURED_JSON"
	InputFormatCSVUpload      InputFormat = "CSV_UPLOAD"
	InputFormatFormInput      InputFormat = "FORM_INPUT"
)

// TranslationStatus mirrors the enrichment lifecycle shape.
type TranslationStatus string

const (
	TranslationStatusPending    TranslationStatus = "PENDING"
	TranslationStatusProcessing TranslationStatus = "PROCESSING"
	TranslationStatusSuccess    TranslationStatus = "SUCCESS"
	TranslationStatusFailed     TranslationStatus = "FAILED"
)

// IsTerminal reports whether the status is final.
func (s TranslationStatus) IsTerminal() bool {
	return s == TranslationStatusSuccess || s == TranslationStatusFailed
}

// AudienceCriteria is the interpreted targeting output of the translation
// pipeline.
type AudienceCriteria struct {
	JobTitles          []string       `json:"job_titles,omitempty"`
	Industries         []string       `json:"industries,omitempty"`
	Location           string         `json:"location,omitempty"`
	CompanySize        string         `json:"company_size,omitempty"`
	FundingStatus      string         `json:"funding_status,omitempty"`
	AdditionalCriteria map[string]any `json:"additional_criteria,omitempty"`
}

// EnrichmentSchema describes which fields enrichment should collect for an
// audience. Conditional fields depend on which criteria dimensions are
// present.
type EnrichmentSchema struct {
	RequiredFields    []string `json:"required_fields"`
	OptionalFields    []string `json:"optional_fields"`
	ConditionalFields []string `json:"conditional_fields,omitempty"`
}

// FieldCount returns the total number of schema fields.
func (s *EnrichmentSchema) FieldCount() int {
	return len(s.RequiredFields) + len(s.OptionalFields) + len(s.ConditionalFields)
}

// SampleLead is a synthetic lead generated to preview an audience.
type SampleLead struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	JobTitle    string `json:"job_title"`
	Industry    string `json:"industry"`
	CompanyName string `json:"company_name"`
}

// TranslationRequest tracks one audience translation through the
// PENDING/PROCESSING/SUCCESS/FAILED lifecycle.
type TranslationRequest struct {
	ID                  string             `json:"id"`
	InputFormat         InputFormat        `json:"input_format" validate:"required,oneof=FREE_TEXT STRUCTURED_JSON CSV_UPLOAD FORM_INPUT"`
	RawInput            string             `json:"raw_input"`
	StructuredData      map[string]any     `json:"structured_data,omitempty"`
	Leads               []SampleLead       `json:"leads,omitempty"`
	EnrichmentSchema    *EnrichmentSchema  `json:"enrichment_schema,omitempty"`
	InterpretedCriteria *AudienceCriteria  `json:"interpreted_criteria,omitempty"`
	Reasoning           string             `json:"reasoning,omitempty"`
	Confidence          float64            `json:"confidence"`
	Status              TranslationStatus  `json:"status"`
	ErrorMessage        string             `json:"error_message,omitempty"`
	CompanyID           string             `json:"company_id"   validate:"required"`
	CreatedBy           string             `json:"created_by"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// NewTranslationRequest creates a PENDING translation request.
func NewTranslationRequest(companyID, createdBy string, format InputFormat, rawInput string, structuredData map[string]any) *TranslationRequest {
	now := time.Now().UTC()

	return &TranslationRequest{
		ID:             uuid.New().String(),
		InputFormat:    format,
		RawInput:       rawInput,
		StructuredData: structuredData,
		Status:         TranslationStatusPending,
		CompanyID:      companyID,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// WithStatus returns a copy of the request in the given status.
func (t *TranslationRequest) WithStatus(status TranslationStatus) *TranslationRequest {
	next := *t
	next.Status = status
	next.UpdatedAt = time.Now().UTC()

	return &next
}

// TranslationResult bundles the pipeline output attached on success.
type TranslationResult struct {
	Criteria   *AudienceCriteria
	Schema     *EnrichmentSchema
	Leads      []SampleLead
	Reasoning  string
	Confidence float64
}

// WithResult returns a SUCCESS copy carrying the pipeline output.
func (t *TranslationRequest) WithResult(result TranslationResult) *TranslationRequest {
	next := *t
	next.Status = TranslationStatusSuccess
	next.InterpretedCriteria = result.Criteria
	next.EnrichmentSchema = result.Schema
	next.Leads = result.Leads
	next.Reasoning = result.Reasoning
	next.Confidence = result.Confidence
	next.UpdatedAt = time.Now().UTC()

	return &next
}

// WithError returns a FAILED copy carrying the error message.
func (t *TranslationRequest) WithError(message string) *TranslationRequest {
	next := *t
	next.Status = TranslationStatusFailed
	next.ErrorMessage = message
	next.UpdatedAt = time.Now().UTC()

	return &next
}

// NextAttempt builds a fresh PENDING request from the original inputs of
// t. The failed record stays untouched for audit.
func (t *TranslationRequest) NextAttempt() *TranslationRequest {
	return NewTranslationRequest(t.CompanyID, t.CreatedBy, t.InputFormat, t.RawInput, t.StructuredData)
}
