// Package events defines the event types published on the bus for
// enrichment, translation and workflow recovery lifecycles.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/leadflowhq/leadflow/pkg/models"
)

type EventType string

// Topic is the single bus topic all lifecycle events flow through.
const Topic = "leadflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Enrichment lifecycle events.
	EnrichmentRequestedEvent EventType = "enrichment.requested"
	EnrichmentCompletedEvent EventType = "enrichment.completed"
	EnrichmentFailedEvent    EventType = "enrichment.failed"

	// Translation lifecycle events.
	TranslationRequestedEvent EventType = "translation.requested"
	TranslationCompletedEvent EventType = "translation.completed"
	TranslationFailedEvent    EventType = "translation.failed"

	// Workflow execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"

	// Workflow recovery events.
	RecoveryTriggeredEvent EventType = "execution.recovery.triggered"
	AdminNotificationEvent EventType = "admin.notification"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	CompanyID string         `json:"company_id"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps the shared envelope fields.
func NewBaseEvent(eventType EventType, companyID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		CompanyID: companyID,
	}
}

type EnrichmentRequested struct {
	BaseEvent

	RequestID  string `json:"request_id"`
	LeadID     string `json:"lead_id"`
	Provider   string `json:"provider"`
	RetryCount int    `json:"retry_count"`
}

func (e EnrichmentRequested) GetType() EventType {
	return EnrichmentRequestedEvent
}

type EnrichmentCompleted struct {
	BaseEvent

	RequestID  string `json:"request_id"`
	LeadID     string `json:"lead_id"`
	Provider   string `json:"provider"`
	DurationMs int64  `json:"duration_ms"`
}

func (e EnrichmentCompleted) GetType() EventType {
	return EnrichmentCompletedEvent
}

type EnrichmentFailed struct {
	BaseEvent

	RequestID  string                  `json:"request_id"`
	LeadID     string                  `json:"lead_id"`
	Provider   string                  `json:"provider"`
	Status     models.EnrichmentStatus `json:"status"`
	Error      string                  `json:"error"`
	RetryCount int                     `json:"retry_count"`
}

func (e EnrichmentFailed) GetType() EventType {
	return EnrichmentFailedEvent
}

type TranslationRequested struct {
	BaseEvent

	RequestID string             `json:"request_id"`
	Format    models.InputFormat `json:"format"`
}

func (e TranslationRequested) GetType() EventType {
	return TranslationRequestedEvent
}

type TranslationCompleted struct {
	BaseEvent

	RequestID  string  `json:"request_id"`
	Confidence float64 `json:"confidence"`
}

func (e TranslationCompleted) GetType() EventType {
	return TranslationCompletedEvent
}

type TranslationFailed struct {
	BaseEvent

	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

func (e TranslationFailed) GetType() EventType {
	return TranslationFailedEvent
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID  string `json:"execution_id"`
	WorkflowID   string `json:"workflow_id"`
	WorkflowType string `json:"workflow_type"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	Error       string `json:"error"`
	ErrorType   string `json:"error_type"`
	RetryCount  int    `json:"retry_count"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type RecoveryTriggered struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	StrategyID  string `json:"strategy_id"`
	Action      string `json:"action"`
	Recovered   bool   `json:"recovered"`
}

func (e RecoveryTriggered) GetType() EventType {
	return RecoveryTriggeredEvent
}

// AdminNotification asks a human to look at something the recovery engine
// could not resolve on its own.
type AdminNotification struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
}

func (e AdminNotification) GetType() EventType {
	return AdminNotificationEvent
}
