package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leadflowhq/leadflow/pkg/eventbus"
	"github.com/leadflowhq/leadflow/pkg/events"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

var (
	// ErrRequestNotFound is returned for unknown translation requests.
	ErrRequestNotFound = persistence.ErrTranslationNotFound

	// ErrRetryNotAllowed indicates a retry of a request that is not
	// FAILED.
	ErrRetryNotAllowed = errors.New("only failed translation requests can be retried")

	// ErrRequestNotProcessable indicates a process call on a request that
	// is not PENDING anymore.
	ErrRequestNotProcessable = errors.New("translation request is not pending")
)

// Service drives translation requests through the same
// PENDING/PROCESSING/SUCCESS/FAILED lifecycle enrichment uses.
type Service struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	pipeline    *Pipeline
	bus         eventbus.EventPublisher
}

// NewService creates the translation service.
func NewService(logger *slog.Logger, p persistence.Persistence, pipeline *Pipeline, bus eventbus.EventPublisher) *Service {
	return &Service{
		logger:      logger.With("module", "translation"),
		persistence: p,
		pipeline:    pipeline,
		bus:         bus,
	}
}

// CreateRequest is the input for starting a translation.
type CreateRequest struct {
	CompanyID      string             `validate:"required"`
	CreatedBy      string             `validate:"required"`
	InputFormat    models.InputFormat `validate:"required,oneof=FREE_TEXT STRUCTURED_JSON CSV_UPLOAD FORM_INPUT"`
	RawInput       string
	StructuredData map[string]any
}

// Create persists a PENDING request and returns immediately.
// Interpretation happens asynchronously after the TranslationRequested
// event is published.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.TranslationRequest, error) {
	request := models.NewTranslationRequest(req.CompanyID, req.CreatedBy, req.InputFormat, req.RawInput, req.StructuredData)

	if err := s.persistence.Translations().Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to persist translation request: %w", err)
	}

	s.publish(ctx, request.ID, events.TranslationRequested{
		BaseEvent: events.NewBaseEvent(events.TranslationRequestedEvent, req.CompanyID),
		RequestID: request.ID,
		Format:    req.InputFormat,
	})

	s.logger.InfoContext(ctx, "Translation requested",
		"request_id", request.ID, "format", req.InputFormat)

	return request, nil
}

// Process runs the pipeline for one PENDING request. Pipeline failures
// become the FAILED status, not returned errors.
func (s *Service) Process(ctx context.Context, companyID, requestID string) (*models.TranslationRequest, error) {
	request, err := s.persistence.Translations().GetByID(ctx, companyID, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load translation request %s: %w", requestID, err)
	}

	if request.Status != models.TranslationStatusPending {
		return nil, fmt.Errorf("request %s in status %s: %w", requestID, request.Status, ErrRequestNotProcessable)
	}

	processing := request.WithStatus(models.TranslationStatusProcessing)
	if err := s.persistence.Translations().Update(ctx, processing); err != nil {
		return nil, fmt.Errorf("failed to mark request %s processing: %w", requestID, err)
	}

	result, err := s.pipeline.Process(ctx, processing.InputFormat, processing.RawInput, processing.StructuredData)
	if err != nil {
		failed := processing.WithError(err.Error())
		if updateErr := s.persistence.Translations().Update(ctx, failed); updateErr != nil {
			return nil, fmt.Errorf("failed to finalize request %s: %w", requestID, updateErr)
		}

		s.publish(ctx, failed.ID, events.TranslationFailed{
			BaseEvent: events.NewBaseEvent(events.TranslationFailedEvent, companyID),
			RequestID: failed.ID,
			Error:     err.Error(),
		})

		s.logger.WarnContext(ctx, "Translation failed",
			"request_id", requestID, "error", err)

		return failed, nil
	}

	done := processing.WithResult(*result)
	if err := s.persistence.Translations().Update(ctx, done); err != nil {
		return nil, fmt.Errorf("failed to finalize request %s: %w", requestID, err)
	}

	s.publish(ctx, done.ID, events.TranslationCompleted{
		BaseEvent:  events.NewBaseEvent(events.TranslationCompletedEvent, companyID),
		RequestID:  done.ID,
		Confidence: done.Confidence,
	})

	s.logger.InfoContext(ctx, "Translation completed",
		"request_id", requestID, "confidence", done.Confidence)

	return done, nil
}

// Get returns one request scoped to the tenant.
func (s *Service) Get(ctx context.Context, companyID, requestID string) (*models.TranslationRequest, error) {
	return s.persistence.Translations().GetByID(ctx, companyID, requestID)
}

// Retry creates a fresh PENDING request from the original inputs of a
// FAILED one. The failed record stays untouched.
func (s *Service) Retry(ctx context.Context, companyID, requestID string) (*models.TranslationRequest, error) {
	original, err := s.persistence.Translations().GetByID(ctx, companyID, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load translation request %s: %w", requestID, err)
	}

	if original.Status != models.TranslationStatusFailed {
		return nil, fmt.Errorf("request %s in status %s: %w", requestID, original.Status, ErrRetryNotAllowed)
	}

	next := original.NextAttempt()
	if err := s.persistence.Translations().Create(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to persist retry request: %w", err)
	}

	s.publish(ctx, next.ID, events.TranslationRequested{
		BaseEvent: events.NewBaseEvent(events.TranslationRequestedEvent, companyID),
		RequestID: next.ID,
		Format:    next.InputFormat,
	})

	s.logger.InfoContext(ctx, "Translation retried",
		"request_id", next.ID, "previous_request_id", original.ID)

	return next, nil
}

func (s *Service) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.bus == nil {
		return
	}

	if err := s.bus.Publish(ctx, key, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
