// Package models defines the core domain models for asynchronous lead
// enrichment and workflow recovery.
package models

import (
	"time"

	"github.com/google/uuid"
)

// EnrichmentStatus represents the lifecycle state of an enrichment request.
type EnrichmentStatus string

const (
	EnrichmentStatusPending    EnrichmentStatus = "PENDING"
	EnrichmentStatusInProgress EnrichmentStatus = "IN_PROGRESS"
	EnrichmentStatusSuccess    EnrichmentStatus = "SUCCESS"
	EnrichmentStatusFailed     EnrichmentStatus = "FAILED"
	EnrichmentStatusTimeout    EnrichmentStatus = "TIMEOUT"
)

// IsTerminal reports whether the status is final. Terminal requests are
// never transitioned again; retries create a new request instead.
func (s EnrichmentStatus) IsTerminal() bool {
	return s == EnrichmentStatusSuccess || s == EnrichmentStatusFailed || s == EnrichmentStatusTimeout
}

// IsActive reports whether a request in this status counts against the
// per-lead concurrency guard.
func (s EnrichmentStatus) IsActive() bool {
	return s == EnrichmentStatusPending || s == EnrichmentStatusInProgress
}

// MaxEnrichmentRetries bounds the retry chain for a single original
// request. The provider backoff helper shares the same constant.
const MaxEnrichmentRetries = 3

// EnrichmentRequest tracks one attempt to enrich a lead through a
// third-party provider. Requests are value-reconstructed, never mutated:
// every transition produces a new copy via the With* methods.
type EnrichmentRequest struct {
	ID                string           `json:"id"`
	Provider          string           `json:"provider"            validate:"required"`
	RequestData       map[string]any   `json:"request_data,omitempty"`
	ResponseData      map[string]any   `json:"response_data,omitempty"`
	Status            EnrichmentStatus `json:"status"`
	LeadID            string           `json:"lead_id"             validate:"required"`
	CompanyID         string           `json:"company_id"          validate:"required"`
	RetryCount        int              `json:"retry_count"`
	PreviousRequestID string           `json:"previous_request_id,omitempty"`
	ErrorMessage      string           `json:"error_message,omitempty"`
	DurationMs        int64            `json:"duration_ms,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// NewEnrichmentRequest creates a PENDING request for the given lead.
func NewEnrichmentRequest(leadID, companyID, provider string, requestData map[string]any) *EnrichmentRequest {
	now := time.Now().UTC()

	return &EnrichmentRequest{
		ID:          uuid.New().String(),
		Provider:    provider,
		RequestData: requestData,
		Status:      EnrichmentStatusPending,
		LeadID:      leadID,
		CompanyID:   companyID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// WithStatus returns a copy of the request in the given status.
func (r *EnrichmentRequest) WithStatus(status EnrichmentStatus) *EnrichmentRequest {
	next := *r
	next.Status = status
	next.UpdatedAt = time.Now().UTC()

	return &next
}

// WithResult returns a SUCCESS copy carrying the provider response.
func (r *EnrichmentRequest) WithResult(responseData map[string]any, durationMs int64) *EnrichmentRequest {
	next := *r
	next.Status = EnrichmentStatusSuccess
	next.ResponseData = responseData
	next.DurationMs = durationMs
	next.UpdatedAt = time.Now().UTC()

	return &next
}

// WithFailure returns a copy in the given terminal failure status with the
// error message attached.
func (r *EnrichmentRequest) WithFailure(status EnrichmentStatus, message string, durationMs int64) *EnrichmentRequest {
	next := *r
	next.Status = status
	next.ErrorMessage = message
	next.DurationMs = durationMs
	next.UpdatedAt = time.Now().UTC()

	return &next
}

// NextAttempt builds a brand-new PENDING request that continues the retry
// chain of r. Original inputs are carried forward, overrides win on key
// conflicts, and the new record references the prior one.
func (r *EnrichmentRequest) NextAttempt(overrides map[string]any, provider string) *EnrichmentRequest {
	requestData := make(map[string]any, len(r.RequestData)+len(overrides))
	for k, v := range r.RequestData {
		requestData[k] = v
	}

	for k, v := range overrides {
		requestData[k] = v
	}

	if provider == "" {
		provider = r.Provider
	}

	next := NewEnrichmentRequest(r.LeadID, r.CompanyID, provider, requestData)
	next.RetryCount = r.RetryCount + 1
	next.PreviousRequestID = r.ID

	return next
}
