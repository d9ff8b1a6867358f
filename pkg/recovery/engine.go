// Package recovery implements the data-driven strategy engine that
// responds to workflow execution failures.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/leadflowhq/leadflow/pkg/eventbus"
	"github.com/leadflowhq/leadflow/pkg/events"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/otelhelper"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

const defaultVerificationWindow = 30 * time.Minute

// ErrDuplicateStrategyID indicates an AddStrategy call reusing an
// existing identifier.
var ErrDuplicateStrategyID = errors.New("recovery strategy id already registered")

// ExecutionDriver is the slice of the execution tracker the recovery
// actions drive.
type ExecutionDriver interface {
	Resubmit(ctx context.Context, executionID string, overrides map[string]any) (*models.WorkflowExecution, error)
	MarkReviewRequired(ctx context.Context, executionID string) (*models.WorkflowExecution, error)
	MarkStepSkipped(ctx context.Context, executionID, step string) (*models.WorkflowExecution, error)
}

// Engine evaluates the process-wide ordered rule set against failed
// executions. Strategies are data, never code: conditions are evaluated
// by a pure predicate and actions dispatched through a small interpreter.
type Engine struct {
	logger   *slog.Logger
	driver   ExecutionDriver
	notifier Notifier
	store    persistence.Persistence
	bus      eventbus.EventPublisher

	mu         sync.RWMutex
	strategies []models.RecoveryStrategy

	verificationWindow time.Duration
	now                func() time.Time
}

// NewEngine creates an empty recovery engine. Call LoadDefaults to
// install the standard strategy set.
func NewEngine(logger *slog.Logger, driver ExecutionDriver, notifier Notifier, store persistence.Persistence, bus eventbus.EventPublisher) *Engine {
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}

	return &Engine{
		logger:             logger.With("module", "recovery"),
		driver:             driver,
		notifier:           notifier,
		store:              store,
		bus:                bus,
		verificationWindow: defaultVerificationWindow,
		now:                time.Now,
	}
}

// AddStrategy validates the strategy document and appends it to the rule
// set. Identifiers must be unique.
func (e *Engine) AddStrategy(strategy models.RecoveryStrategy) error {
	if err := validateStrategy(strategy); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, existing := range e.strategies {
		if existing.ID == strategy.ID {
			return fmt.Errorf("strategy %s: %w", strategy.ID, ErrDuplicateStrategyID)
		}
	}

	e.strategies = append(e.strategies, strategy)
	e.logger.Info("Registered recovery strategy",
		"strategy_id", strategy.ID, "priority", strategy.Priority)

	return nil
}

// Strategies returns a snapshot of the rule set in registration order.
func (e *Engine) Strategies() []models.RecoveryStrategy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]models.RecoveryStrategy, len(e.strategies))
	copy(out, e.strategies)

	return out
}

// LoadDefaults installs the standard strategy set. Idempotent per id.
func (e *Engine) LoadDefaults() error {
	for _, strategy := range DefaultStrategies() {
		err := e.AddStrategy(strategy)
		if err != nil && !errors.Is(err, ErrDuplicateStrategyID) {
			return err
		}
	}

	return nil
}

// HandleError matches the failure against the rule set and executes the
// selected strategy's actions. Selection is deterministic: among
// strategies whose conditions all hold, the lowest priority value wins,
// ties broken by registration order. The context is always appended to
// the error history; with no match the execution simply stays FAILED.
func (e *Engine) HandleError(ctx context.Context, errorContext *models.ErrorContext) error {
	ctx, span := otelhelper.StartSpan(ctx, otel.Tracer("leadflow-recovery"), "recovery.handle_error",
		attribute.String(otelhelper.ExecutionIDKey, errorContext.ExecutionID),
		attribute.String(otelhelper.WorkflowIDKey, errorContext.WorkflowID),
	)
	defer span.End()

	strategy, matched := e.match(errorContext)

	record := &persistence.ErrorRecord{
		Context:    *errorContext,
		RecordedAt: e.now().UTC(),
	}

	if matched {
		span.SetAttributes(attribute.String(otelhelper.StrategyIDKey, strategy.ID))

		record.StrategyID = strategy.ID
		record.Recovered = e.executeActions(ctx, errorContext, strategy)
	}

	if err := e.store.ErrorHistory().Append(ctx, record); err != nil {
		e.logger.ErrorContext(ctx, "Failed to append error history",
			"execution_id", errorContext.ExecutionID, "error", err)
	}

	if !matched {
		e.logger.InfoContext(ctx, "No recovery strategy matched",
			"execution_id", errorContext.ExecutionID, "error_type", errorContext.ErrorType)

		return nil
	}

	e.publish(ctx, errorContext.ExecutionID, events.RecoveryTriggered{
		BaseEvent:   events.NewBaseEvent(events.RecoveryTriggeredEvent, errorContext.CompanyID),
		ExecutionID: errorContext.ExecutionID,
		WorkflowID:  errorContext.WorkflowID,
		StrategyID:  strategy.ID,
		Action:      actionSummary(strategy),
		Recovered:   record.Recovered,
	})

	return nil
}

// match selects the winning strategy for the context, if any.
func (e *Engine) match(errorContext *models.ErrorContext) (models.RecoveryStrategy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.now()

	var (
		best  models.RecoveryStrategy
		found bool
	)

	for _, strategy := range e.strategies {
		if !strategyMatches(errorContext, strategy, now) {
			continue
		}

		// Strict less-than keeps registration order as the tiebreaker.
		if !found || strategy.Priority < best.Priority {
			best = strategy
			found = true
		}
	}

	return best, found
}

func actionSummary(strategy models.RecoveryStrategy) string {
	if len(strategy.Actions) == 0 {
		return ""
	}

	return string(strategy.Actions[0].Type)
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
