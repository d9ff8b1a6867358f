package recovery

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence/memory"
)

type fakeDriver struct {
	store        *memory.Persistence
	resubmits    []string
	reviews      []string
	skips        []string
	resubmitErr  error
	lastOverride map[string]any
}

func (d *fakeDriver) Resubmit(ctx context.Context, executionID string, overrides map[string]any) (*models.WorkflowExecution, error) {
	if d.resubmitErr != nil {
		return nil, d.resubmitErr
	}

	d.resubmits = append(d.resubmits, executionID)
	d.lastOverride = overrides

	execution, err := d.store.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	next := execution.WithStatus(models.ExecutionStatusInProgress)
	next.RetryCount++

	return next, d.store.Executions().Save(ctx, next)
}

func (d *fakeDriver) MarkReviewRequired(ctx context.Context, executionID string) (*models.WorkflowExecution, error) {
	d.reviews = append(d.reviews, executionID)

	return nil, nil
}

func (d *fakeDriver) MarkStepSkipped(ctx context.Context, executionID, step string) (*models.WorkflowExecution, error) {
	d.skips = append(d.skips, executionID+":"+step)

	return nil, nil
}

type fakeNotifier struct {
	notifications []Notification
	err           error
}

func (n *fakeNotifier) Notify(ctx context.Context, notification Notification) error {
	if n.err != nil {
		return n.err
	}

	n.notifications = append(n.notifications, notification)

	return nil
}

func newEngineFixture(t *testing.T) (*Engine, *fakeDriver, *fakeNotifier, *memory.Persistence) {
	t.Helper()

	store := memory.NewPersistence()
	driver := &fakeDriver{store: store}
	notifier := &fakeNotifier{}

	engine := NewEngine(slog.New(slog.DiscardHandler), driver, notifier, store, nil)

	return engine, driver, notifier, store
}

func failedExecution(t *testing.T, store *memory.Persistence, message string) *models.WorkflowExecution {
	t.Helper()

	execution := models.NewWorkflowExecution("wf-1", "enrichment", "company-1", map[string]any{"provider": "apollo"})
	execution = execution.WithError(message)
	require.NoError(t, store.Executions().Save(context.Background(), execution))

	return execution
}

func retryStrategy(id string, priority int, needle string) models.RecoveryStrategy {
	return models.RecoveryStrategy{
		ID:       id,
		Name:     "Retry " + id,
		Priority: priority,
		Conditions: []models.RecoveryCondition{
			{Type: models.ConditionErrorMessage, Operator: models.OperatorContains, Value: needle},
		},
		Actions: []models.RecoveryAction{
			{Type: models.ActionRetry},
		},
	}
}

func TestAddStrategy_Validation(t *testing.T) {
	engine, _, _, _ := newEngineFixture(t)

	err := engine.AddStrategy(models.RecoveryStrategy{ID: "bad", Name: "Bad strategy"})
	assert.ErrorIs(t, err, ErrInvalidStrategy)

	require.NoError(t, engine.AddStrategy(retryStrategy("ok", 10, "timeout")))

	err = engine.AddStrategy(retryStrategy("ok", 20, "other"))
	assert.ErrorIs(t, err, ErrDuplicateStrategyID)

	assert.Len(t, engine.Strategies(), 1)
}

func TestHandleError_RetryActionResubmitsOnce(t *testing.T) {
	engine, driver, _, store := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, engine.AddStrategy(retryStrategy("retry-timeouts", 10, "timeout")))

	execution := failedExecution(t, store, "provider timeout after 30s")

	require.NoError(t, engine.HandleError(ctx, models.NewErrorContext(execution, "provider_error")))

	require.Equal(t, []string{execution.ID}, driver.resubmits)

	updated, err := store.Executions().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.RetryCount)

	records, err := store.ErrorHistory().ByExecution(ctx, execution.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "retry-timeouts", records[0].StrategyID)
	assert.True(t, records[0].Recovered)
}

func TestHandleError_NoMatchLeavesExecutionFailed(t *testing.T) {
	engine, driver, _, store := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, engine.AddStrategy(retryStrategy("retry-timeouts", 10, "timeout")))

	execution := failedExecution(t, store, "schema validation failed")

	require.NoError(t, engine.HandleError(ctx, models.NewErrorContext(execution, "validation_error")))

	assert.Empty(t, driver.resubmits)

	updated, err := store.Executions().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, updated.Status)

	records, err := store.ErrorHistory().ByExecution(ctx, execution.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].StrategyID)
	assert.False(t, records[0].Recovered)
}

func TestHandleError_DeterministicSelection(t *testing.T) {
	engine, driver, _, store := newEngineFixture(t)
	ctx := context.Background()

	// Both match; the lower priority value must win.
	require.NoError(t, engine.AddStrategy(retryStrategy("low-priority", 50, "timeout")))
	require.NoError(t, engine.AddStrategy(retryStrategy("high-priority", 10, "timeout")))

	for range 3 {
		execution := failedExecution(t, store, "provider timeout")
		require.NoError(t, engine.HandleError(ctx, models.NewErrorContext(execution, "")))

		records, err := store.ErrorHistory().ByExecution(ctx, execution.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "high-priority", records[0].StrategyID)
	}

	assert.Len(t, driver.resubmits, 3)
}

func TestHandleError_PriorityTieBreaksByRegistrationOrder(t *testing.T) {
	engine, _, _, store := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, engine.AddStrategy(retryStrategy("registered-first", 10, "timeout")))
	require.NoError(t, engine.AddStrategy(retryStrategy("registered-second", 10, "timeout")))

	execution := failedExecution(t, store, "provider timeout")
	require.NoError(t, engine.HandleError(ctx, models.NewErrorContext(execution, "")))

	records, err := store.ErrorHistory().ByExecution(ctx, execution.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "registered-first", records[0].StrategyID)
}

func TestHandleError_ActionsAreBestEffort(t *testing.T) {
	engine, driver, notifier, store := newEngineFixture(t)
	ctx := context.Background()

	driver.resubmitErr = errors.New("tracker unavailable")

	require.NoError(t, engine.AddStrategy(models.RecoveryStrategy{
		ID:       "retry-then-notify",
		Name:     "Retry then notify",
		Priority: 10,
		Conditions: []models.RecoveryCondition{
			{Type: models.ConditionErrorMessage, Operator: models.OperatorContains, Value: "timeout"},
		},
		Actions: []models.RecoveryAction{
			{Type: models.ActionRetry},
			{Type: models.ActionNotifyAdmin, Config: map[string]any{"severity": "critical"}},
		},
	}))

	execution := failedExecution(t, store, "provider timeout")
	require.NoError(t, engine.HandleError(ctx, models.NewErrorContext(execution, "")))

	// First action failed, second still ran.
	require.Len(t, notifier.notifications, 1)
	assert.Equal(t, "critical", notifier.notifications[0].Severity)
	assert.Equal(t, "provider timeout", notifier.notifications[0].Message)
}

func TestHandleError_FallbackProviderOverrides(t *testing.T) {
	engine, driver, _, store := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, engine.AddStrategy(models.RecoveryStrategy{
		ID:       "fallback",
		Name:     "Fallback provider",
		Priority: 10,
		Conditions: []models.RecoveryCondition{
			{Type: models.ConditionErrorMessage, Operator: models.OperatorContains, Value: "rate limit"},
		},
		Actions: []models.RecoveryAction{
			{Type: models.ActionFallbackProvider, Config: map[string]any{"provider": "clearbit"}},
		},
	}))

	execution := failedExecution(t, store, "apollo rate limit exceeded")
	require.NoError(t, engine.HandleError(ctx, models.NewErrorContext(execution, "")))

	require.Len(t, driver.resubmits, 1)
	assert.Equal(t, map[string]any{"provider": "clearbit"}, driver.lastOverride)
}

func TestHandleError_ManualInterventionAndSkipStep(t *testing.T) {
	engine, driver, _, store := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, engine.AddStrategy(models.RecoveryStrategy{
		ID:       "escalate",
		Name:     "Escalate with skip",
		Priority: 10,
		Conditions: []models.RecoveryCondition{
			{Type: models.ConditionErrorMessage, Operator: models.OperatorContains, Value: "verify"},
		},
		Actions: []models.RecoveryAction{
			{Type: models.ActionSkipStep, Config: map[string]any{"step": "verify-email"}},
			{Type: models.ActionManualIntervention},
		},
	}))

	execution := failedExecution(t, store, "verify step crashed")
	require.NoError(t, engine.HandleError(ctx, models.NewErrorContext(execution, "")))

	assert.Equal(t, []string{execution.ID + ":verify-email"}, driver.skips)
	assert.Equal(t, []string{execution.ID}, driver.reviews)
}

func TestErrorAnalytics(t *testing.T) {
	engine, _, _, store := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, engine.AddStrategy(retryStrategy("retry-timeouts", 10, "timeout")))

	// First failure recovers: the resubmitted execution reaches SUCCESS.
	first := failedExecution(t, store, "provider timeout")
	require.NoError(t, engine.HandleError(ctx, models.NewErrorContext(first, "")))

	recovered, err := store.Executions().GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NoError(t, store.Executions().Save(ctx, recovered.WithOutput(nil)))

	// Second failure matches but never recovers.
	second := failedExecution(t, store, "provider timeout")
	require.NoError(t, engine.HandleError(ctx, models.NewErrorContext(second, "")))

	// Third failure matches no strategy.
	third := failedExecution(t, store, "schema validation failed")
	require.NoError(t, engine.HandleError(ctx, models.NewErrorContext(third, "")))

	analytics, err := engine.ErrorAnalytics(ctx, "wf-1")
	require.NoError(t, err)

	assert.Equal(t, 3, analytics.TotalErrors)
	assert.Equal(t, 1, analytics.ResolvedErrors)
	assert.Equal(t, 2, analytics.UnresolvedErrors)
	assert.Equal(t, "provider timeout", analytics.MostCommonError)
	assert.InDelta(t, 1.0/3.0, analytics.RecoverySuccessRate, 0.001)
	assert.GreaterOrEqual(t, analytics.AverageResolutionTime, time.Duration(0))
}

func TestErrorAnalytics_EmptyHistory(t *testing.T) {
	engine, _, _, _ := newEngineFixture(t)

	analytics, err := engine.ErrorAnalytics(context.Background(), "wf-unknown")
	require.NoError(t, err)

	assert.Equal(t, 0, analytics.TotalErrors)
	assert.Zero(t, analytics.RecoverySuccessRate)
}

func TestLoadDefaults(t *testing.T) {
	engine, _, _, _ := newEngineFixture(t)

	require.NoError(t, engine.LoadDefaults())
	assert.Len(t, engine.Strategies(), len(DefaultStrategies()))

	// Loading twice does not duplicate.
	require.NoError(t, engine.LoadDefaults())
	assert.Len(t, engine.Strategies(), len(DefaultStrategies()))
}
