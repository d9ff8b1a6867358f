// Package enrichment implements the orchestrator that drives lead
// enrichment requests through their lifecycle.
package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leadflowhq/leadflow/pkg/eventbus"
	"github.com/leadflowhq/leadflow/pkg/events"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
	"github.com/leadflowhq/leadflow/pkg/providers"
)

const defaultProcessTimeout = 30 * time.Second

// Service orchestrates enrichment requests: triggering, processing,
// retrying and webhook completion. Status transitions always flow
// PENDING -> IN_PROGRESS -> terminal; terminal requests are never
// transitioned again and retries create a brand-new request.
type Service struct {
	logger          *slog.Logger
	persistence     persistence.Persistence
	registry        *providers.Registry
	providerConfigs map[string]map[string]any
	bus             eventbus.EventPublisher
	guard           ActiveGuard
	processTimeout  time.Duration
}

// Config carries the service dependencies.
type Config struct {
	Logger          *slog.Logger
	Persistence     persistence.Persistence
	Registry        *providers.Registry
	ProviderConfigs map[string]map[string]any
	Bus             eventbus.EventPublisher
	Guard           ActiveGuard
	ProcessTimeout  time.Duration
}

// NewService creates the enrichment orchestrator.
func NewService(cfg Config) *Service {
	timeout := cfg.ProcessTimeout
	if timeout <= 0 {
		timeout = defaultProcessTimeout
	}

	guard := cfg.Guard
	if guard == nil {
		guard = NewMemoryGuard(timeout * 2)
	}

	return &Service{
		logger:          cfg.Logger.With("module", "enrichment"),
		persistence:     cfg.Persistence,
		registry:        cfg.Registry,
		providerConfigs: cfg.ProviderConfigs,
		bus:             cfg.Bus,
		guard:           guard,
		processTimeout:  timeout,
	}
}

// TriggerRequest is the input for starting an enrichment. RequestData is
// optional; the lead's canonical identifiers are always seeded in.
type TriggerRequest struct {
	CompanyID   string `validate:"required"`
	LeadID      string `validate:"required"`
	Provider    string `validate:"required"`
	RequestData map[string]any
	Actor       string
}

// Trigger validates the request, enforces the per-lead concurrency guard
// and persists a PENDING request. Processing happens asynchronously after
// the EnrichmentRequested event is published.
func (s *Service) Trigger(ctx context.Context, req TriggerRequest) (*models.EnrichmentRequest, error) {
	lead, err := s.persistence.Leads().GetByID(ctx, req.CompanyID, req.LeadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lead %s: %w", req.LeadID, err)
	}

	request := models.NewEnrichmentRequest(req.LeadID, req.CompanyID, req.Provider, seedRequestData(lead, req.RequestData))

	provider, err := s.registry.Create(req.Provider, s.providerConfigs[req.Provider])
	if err != nil {
		return nil, err
	}

	if !provider.CanHandle(request) {
		return nil, fmt.Errorf("provider %q: %w", req.Provider, ErrProviderCannotHandle)
	}

	acquired, err := s.guard.Acquire(ctx, req.LeadID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim lead %s: %w", req.LeadID, err)
	}

	if !acquired {
		return nil, ErrAlreadyEnriching
	}

	if err := s.persistence.Enrichments().Create(ctx, request); err != nil {
		_ = s.guard.Release(ctx, req.LeadID)

		if persistence.IsActiveEnrichmentExists(err) {
			return nil, ErrAlreadyEnriching
		}

		return nil, fmt.Errorf("failed to persist enrichment request: %w", err)
	}

	s.audit(ctx, req.CompanyID, req.Actor, "enrichment.triggered", request.ID, map[string]any{
		"lead_id":  req.LeadID,
		"provider": req.Provider,
	})

	s.publish(ctx, request.LeadID, events.EnrichmentRequested{
		BaseEvent:  events.NewBaseEvent(events.EnrichmentRequestedEvent, req.CompanyID),
		RequestID:  request.ID,
		LeadID:     request.LeadID,
		Provider:   request.Provider,
		RetryCount: request.RetryCount,
	})

	s.logger.InfoContext(ctx, "Enrichment triggered",
		"request_id", request.ID, "lead_id", req.LeadID, "provider", req.Provider)

	return request, nil
}

// Process executes one PENDING request against its provider. Called by
// the worker consuming EnrichmentRequested events. Provider failures
// become terminal FAILED or TIMEOUT statuses, not returned errors.
func (s *Service) Process(ctx context.Context, companyID, requestID string) (*models.EnrichmentRequest, error) {
	request, err := s.persistence.Enrichments().GetByID(ctx, companyID, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrichment request %s: %w", requestID, err)
	}

	if request.Status != models.EnrichmentStatusPending {
		return nil, fmt.Errorf("request %s in status %s: %w", requestID, request.Status, ErrRequestNotProcessable)
	}

	inProgress := request.WithStatus(models.EnrichmentStatusInProgress)
	if err := s.persistence.Enrichments().Update(ctx, inProgress); err != nil {
		return nil, fmt.Errorf("failed to mark request %s in progress: %w", requestID, err)
	}

	provider, err := s.registry.Create(request.Provider, s.providerConfigs[request.Provider])
	if err != nil {
		return s.fail(ctx, inProgress, models.EnrichmentStatusFailed, err.Error(), 0)
	}

	if !provider.IsAvailable(ctx) {
		return s.fail(ctx, inProgress, models.EnrichmentStatusFailed, providers.ErrProviderUnavailable.Error(), 0)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.processTimeout)
	defer cancel()

	result, err := provider.Enrich(callCtx, inProgress)
	if err != nil {
		return s.fail(ctx, inProgress, models.EnrichmentStatusFailed, err.Error(), 0)
	}

	if !result.Success {
		status := models.EnrichmentStatusFailed
		if result.TimedOut {
			status = models.EnrichmentStatusTimeout
		}

		return s.fail(ctx, inProgress, status, result.ErrorMessage, result.DurationMs)
	}

	return s.complete(ctx, inProgress, result.Data, result.DurationMs)
}

// RetryRequest is the input for retrying a failed enrichment.
type RetryRequest struct {
	CompanyID string `validate:"required"`
	RequestID string `validate:"required"`

	// RequestDataOverrides are merged over the original request data,
	// overrides winning on key conflicts.
	RequestDataOverrides map[string]any

	// Provider optionally redirects the retry to a different provider.
	Provider string
	Actor    string
}

// Retry creates a new PENDING request continuing a FAILED request's retry
// chain. The original record is never modified.
func (s *Service) Retry(ctx context.Context, req RetryRequest) (*models.EnrichmentRequest, error) {
	original, err := s.persistence.Enrichments().GetByID(ctx, req.CompanyID, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrichment request %s: %w", req.RequestID, err)
	}

	if original.Status != models.EnrichmentStatusFailed {
		return nil, fmt.Errorf("request %s in status %s: %w", req.RequestID, original.Status, ErrRetryNotAllowed)
	}

	if original.RetryCount >= models.MaxEnrichmentRetries {
		return nil, fmt.Errorf("request %s at retry %d: %w", req.RequestID, original.RetryCount, ErrMaxRetriesExceeded)
	}

	lead, err := s.persistence.Leads().GetByID(ctx, req.CompanyID, original.LeadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lead %s: %w", original.LeadID, err)
	}

	next := original.NextAttempt(req.RequestDataOverrides, req.Provider)
	next.RequestData = seedRequestData(lead, next.RequestData)

	provider, err := s.registry.Create(next.Provider, s.providerConfigs[next.Provider])
	if err != nil {
		return nil, err
	}

	if !provider.CanHandle(next) {
		return nil, fmt.Errorf("provider %q: %w", next.Provider, ErrProviderCannotHandle)
	}

	acquired, err := s.guard.Acquire(ctx, next.LeadID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim lead %s: %w", next.LeadID, err)
	}

	if !acquired {
		return nil, ErrAlreadyEnriching
	}

	if err := s.persistence.Enrichments().Create(ctx, next); err != nil {
		_ = s.guard.Release(ctx, next.LeadID)

		if persistence.IsActiveEnrichmentExists(err) {
			return nil, ErrAlreadyEnriching
		}

		return nil, fmt.Errorf("failed to persist retry request: %w", err)
	}

	s.audit(ctx, req.CompanyID, req.Actor, "enrichment.retried", next.ID, map[string]any{
		"previous_request_id": original.ID,
		"retry_count":         next.RetryCount,
		"provider":            next.Provider,
	})

	s.publish(ctx, next.LeadID, events.EnrichmentRequested{
		BaseEvent:  events.NewBaseEvent(events.EnrichmentRequestedEvent, req.CompanyID),
		RequestID:  next.ID,
		LeadID:     next.LeadID,
		Provider:   next.Provider,
		RetryCount: next.RetryCount,
	})

	s.logger.InfoContext(ctx, "Enrichment retried",
		"request_id", next.ID, "previous_request_id", original.ID, "retry_count", next.RetryCount)

	return next, nil
}

// WebhookPayload is the callback body asynchronous providers deliver.
// Field names follow the external provider contract. A success callback
// must carry data and a failed callback must carry the error message.
type WebhookPayload struct {
	LeadID     string         `json:"leadId"     validate:"required"`
	CompanyID  string         `json:"companyId"  validate:"required"`
	Provider   string         `json:"provider"`
	Status     string         `json:"status"     validate:"required,oneof=success failed"`
	Data       map[string]any `json:"data"       validate:"required_if=Status success"`
	Error      string         `json:"error"      validate:"required_if=Status failed"`
	DurationMs int64          `json:"durationMs"`
}

// CompleteViaWebhook resolves the lead's active request from a provider
// callback. Both outcome branches append an audit trail entry.
func (s *Service) CompleteViaWebhook(ctx context.Context, payload WebhookPayload) (*models.EnrichmentRequest, error) {
	request, err := s.persistence.Enrichments().LatestByLead(ctx, payload.CompanyID, payload.LeadID)
	if err != nil {
		if persistence.IsEnrichmentNotFound(err) {
			return nil, ErrNoActiveRequest
		}

		return nil, fmt.Errorf("failed to load latest request for lead %s: %w", payload.LeadID, err)
	}

	if !request.Status.IsActive() {
		return nil, fmt.Errorf("lead %s latest request in status %s: %w", payload.LeadID, request.Status, ErrNoActiveRequest)
	}

	if payload.Status != "success" {
		failed, err := s.fail(ctx, request, models.EnrichmentStatusFailed, payload.Error, payload.DurationMs)
		if err != nil {
			return nil, err
		}

		s.audit(ctx, payload.CompanyID, "webhook", "enrichment.webhook_failed", failed.ID, map[string]any{
			"lead_id":  payload.LeadID,
			"provider": payload.Provider,
			"error":    payload.Error,
		})

		return failed, nil
	}

	done, err := s.complete(ctx, request, payload.Data, payload.DurationMs)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, payload.CompanyID, "webhook", "enrichment.webhook_completed", done.ID, map[string]any{
		"lead_id":  payload.LeadID,
		"provider": payload.Provider,
	})

	return done, nil
}

// Get returns one request scoped to the tenant.
func (s *Service) Get(ctx context.Context, companyID, requestID string) (*models.EnrichmentRequest, error) {
	return s.persistence.Enrichments().GetByID(ctx, companyID, requestID)
}

// List returns a filtered, cursor-paginated page of requests.
func (s *Service) List(ctx context.Context, opts persistence.ListEnrichmentsOptions) (*persistence.EnrichmentPage, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	if opts.Limit > 100 {
		opts.Limit = 100
	}

	return s.persistence.Enrichments().List(ctx, opts)
}

// Stats aggregates request counts and durations for the tenant.
func (s *Service) Stats(ctx context.Context, companyID string) (*persistence.EnrichmentStats, error) {
	return s.persistence.Enrichments().Stats(ctx, companyID)
}

// complete finalizes a request as SUCCESS, merges the normalized data
// into the lead and releases the concurrency claim.
func (s *Service) complete(ctx context.Context, request *models.EnrichmentRequest, data map[string]any, durationMs int64) (*models.EnrichmentRequest, error) {
	done := request.WithResult(data, durationMs)
	if err := s.persistence.Enrichments().Update(ctx, done); err != nil {
		return nil, fmt.Errorf("failed to finalize request %s: %w", request.ID, err)
	}

	lead, err := s.persistence.Leads().GetByID(ctx, request.CompanyID, request.LeadID)
	if err == nil {
		if err := s.persistence.Leads().Save(ctx, lead.ApplyEnrichment(data)); err != nil {
			s.logger.ErrorContext(ctx, "Failed to merge enrichment into lead",
				"lead_id", request.LeadID, "error", err)
		}
	} else {
		s.logger.ErrorContext(ctx, "Failed to load lead for enrichment merge",
			"lead_id", request.LeadID, "error", err)
	}

	_ = s.guard.Release(ctx, request.LeadID)

	s.publish(ctx, request.LeadID, events.EnrichmentCompleted{
		BaseEvent:  events.NewBaseEvent(events.EnrichmentCompletedEvent, request.CompanyID),
		RequestID:  done.ID,
		LeadID:     done.LeadID,
		Provider:   done.Provider,
		DurationMs: durationMs,
	})

	s.logger.InfoContext(ctx, "Enrichment completed",
		"request_id", done.ID, "lead_id", done.LeadID, "duration_ms", durationMs)

	return done, nil
}

// fail finalizes a request in a terminal failure status and releases the
// concurrency claim.
func (s *Service) fail(ctx context.Context, request *models.EnrichmentRequest, status models.EnrichmentStatus, message string, durationMs int64) (*models.EnrichmentRequest, error) {
	failed := request.WithFailure(status, message, durationMs)
	if err := s.persistence.Enrichments().Update(ctx, failed); err != nil {
		return nil, fmt.Errorf("failed to finalize request %s: %w", request.ID, err)
	}

	_ = s.guard.Release(ctx, request.LeadID)

	s.publish(ctx, request.LeadID, events.EnrichmentFailed{
		BaseEvent:  events.NewBaseEvent(events.EnrichmentFailedEvent, request.CompanyID),
		RequestID:  failed.ID,
		LeadID:     failed.LeadID,
		Provider:   failed.Provider,
		Status:     status,
		Error:      message,
		RetryCount: failed.RetryCount,
	})

	s.logger.WarnContext(ctx, "Enrichment failed",
		"request_id", failed.ID, "lead_id", failed.LeadID, "status", status, "error", message)

	return failed, nil
}

// seedRequestData layers caller-supplied fields over the lead's
// canonical identifiers, caller values winning on key conflicts.
func seedRequestData(lead *models.Lead, data map[string]any) map[string]any {
	merged := make(map[string]any, len(data)+3)

	if lead.Email != "" {
		merged["email"] = lead.Email
	}

	if lead.FullName != "" {
		merged["full_name"] = lead.FullName
	}

	if lead.LinkedinURL != "" {
		merged["linkedin_url"] = lead.LinkedinURL
	}

	for key, value := range data {
		merged[key] = value
	}

	return merged
}

// publish is best effort. A bus outage must not roll back a persisted
// state transition.
func (s *Service) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.bus == nil {
		return
	}

	if err := s.bus.Publish(ctx, key, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

// audit is best effort for the same reason.
func (s *Service) audit(ctx context.Context, companyID, actor, action, entityID string, details map[string]any) {
	if actor == "" {
		actor = "system"
	}

	entry := models.NewAuditEntry(companyID, actor, action, "enrichment_request", entityID, details)
	if err := s.persistence.Audit().Append(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "Failed to append audit entry", "action", action, "error", err)
	}
}
