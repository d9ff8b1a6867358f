// Package web provides HTTP request and response types for the leadflow API.
package web

// TriggerEnrichmentRequest is the request body for starting an
// enrichment. requestData is optional; the lead's own identifiers are
// used when it is omitted.
type TriggerEnrichmentRequest struct {
	CompanyID   string         `json:"companyId" validate:"required"`
	LeadID      string         `json:"leadId"    validate:"required"`
	Provider    string         `json:"provider"  validate:"required"`
	RequestData map[string]any `json:"requestData,omitempty"`
	RequestedBy string         `json:"requestedBy"`
}

// RetryEnrichmentRequest is the request body for retrying a failed
// enrichment. All fields are optional; overrides win over the original
// request data on key conflicts.
type RetryEnrichmentRequest struct {
	CompanyID            string         `json:"companyId" validate:"required"`
	RequestDataOverrides map[string]any `json:"requestDataOverrides,omitempty"`
	Provider             string         `json:"provider,omitempty"`
	RequestedBy          string         `json:"requestedBy"`
}

// StartExecutionRequest is the request body for launching a workflow
// run on the external engine.
type StartExecutionRequest struct {
	WorkflowID   string         `json:"workflowId"   validate:"required"`
	WorkflowType string         `json:"workflowType" validate:"required"`
	CompanyID    string         `json:"companyId"    validate:"required"`
	InputData    map[string]any `json:"inputData,omitempty"`
}

// CreateTranslationRequest is the request body for submitting audience
// input to the translation pipeline.
type CreateTranslationRequest struct {
	CompanyID      string         `json:"companyId"      validate:"required"`
	CreatedBy      string         `json:"createdBy"      validate:"required"`
	InputFormat    string         `json:"inputFormat"    validate:"required,oneof=FREE_TEXT STRUCTURED_JSON CSV_UPLOAD FORM_INPUT"`
	RawInput       string         `json:"rawInput"`
	StructuredData map[string]any `json:"structuredData,omitempty"`
}
