package execution_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leadflowhq/leadflow/pkg/eventbus"
	"github.com/leadflowhq/leadflow/pkg/events"
	"github.com/leadflowhq/leadflow/pkg/execution"
	"github.com/leadflowhq/leadflow/pkg/mocks"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence/memory"
)

type recordingEngine struct {
	triggers []string
	err      error
}

func (e *recordingEngine) TriggerWorkflow(ctx context.Context, ex *models.WorkflowExecution) error {
	e.triggers = append(e.triggers, ex.ID)

	return e.err
}

type recordingHandler struct {
	contexts []*models.ErrorContext
}

func (h *recordingHandler) HandleError(ctx context.Context, errorContext *models.ErrorContext) error {
	h.contexts = append(h.contexts, errorContext)

	return nil
}

func newTracker(t *testing.T) (*execution.Tracker, *memory.Persistence, *recordingEngine, *recordingHandler) {
	t.Helper()

	store := memory.NewPersistence()
	engine := &recordingEngine{}
	handler := &recordingHandler{}

	tracker := execution.NewTracker(slog.New(slog.DiscardHandler), store, engine)
	tracker.SetFailureHandler(handler)

	return tracker, store, engine, handler
}

func TestStart(t *testing.T) {
	tracker, _, engine, _ := newTracker(t)

	started, err := tracker.Start(context.Background(), "wf-1", "enrichment", "company-1",
		map[string]any{"provider": "apollo"})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusInProgress, started.Status)
	assert.NotNil(t, started.StartedAt)
	assert.Equal(t, []string{started.ID}, engine.triggers)
}

func TestStart_EngineFailureRoutesToRecovery(t *testing.T) {
	tracker, _, engine, handler := newTracker(t)
	engine.err = errors.New("engine down")

	failed, err := tracker.Start(context.Background(), "wf-1", "enrichment", "company-1", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, failed.Status)
	require.Len(t, handler.contexts, 1)
	assert.Equal(t, "engine_error", handler.contexts[0].ErrorType)
}

func TestCompleteAndFail(t *testing.T) {
	tracker, _, _, handler := newTracker(t)
	ctx := context.Background()

	started, err := tracker.Start(ctx, "wf-1", "enrichment", "company-1", nil)
	require.NoError(t, err)

	done, err := tracker.Complete(ctx, started.ID, map[string]any{"leads": 3})
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusSuccess, done.Status)
	assert.NotNil(t, done.CompletedAt)

	other, err := tracker.Start(ctx, "wf-2", "enrichment", "company-1", nil)
	require.NoError(t, err)

	failed, err := tracker.Fail(ctx, other.ID, "provider timeout", "provider_error")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, failed.Status)
	assert.Equal(t, "provider timeout", failed.ErrorMessage)

	require.Len(t, handler.contexts, 1)
	assert.Equal(t, other.ID, handler.contexts[0].ExecutionID)
	assert.Equal(t, "provider timeout", handler.contexts[0].ErrorMessage)
}

func TestResubmit(t *testing.T) {
	tracker, _, engine, _ := newTracker(t)
	ctx := context.Background()

	started, err := tracker.Start(ctx, "wf-1", "enrichment", "company-1",
		map[string]any{"provider": "apollo"})
	require.NoError(t, err)

	_, err = tracker.Fail(ctx, started.ID, "boom", "provider_error")
	require.NoError(t, err)

	resubmitted, err := tracker.Resubmit(ctx, started.ID, map[string]any{"provider": "clearbit"})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusInProgress, resubmitted.Status)
	assert.Equal(t, 1, resubmitted.RetryCount)
	assert.Empty(t, resubmitted.ErrorMessage)
	assert.Equal(t, "clearbit", resubmitted.InputData["provider"])
	assert.Len(t, engine.triggers, 2)

	// Already resubmitted: a second recovery pass for the same failure is
	// a safe no-op.
	_, err = tracker.Resubmit(ctx, started.ID, nil)
	assert.ErrorIs(t, err, execution.ErrNotResubmittable)
}

func TestResubmit_BoundedByMaxRetries(t *testing.T) {
	tracker, store, _, _ := newTracker(t)
	ctx := context.Background()

	execRecord := models.NewWorkflowExecution("wf-1", "enrichment", "company-1", nil)
	execRecord = execRecord.WithError("boom")
	execRecord.RetryCount = execution.DefaultMaxRetries
	require.NoError(t, store.Executions().Save(ctx, execRecord))

	_, err := tracker.Resubmit(ctx, execRecord.ID, nil)
	assert.ErrorIs(t, err, execution.ErrMaxRetriesExceeded)
}

func TestMarkReviewRequiredAndStepSkipped(t *testing.T) {
	tracker, _, _, _ := newTracker(t)
	ctx := context.Background()

	started, err := tracker.Start(ctx, "wf-1", "enrichment", "company-1", nil)
	require.NoError(t, err)

	_, err = tracker.Fail(ctx, started.ID, "boom", "")
	require.NoError(t, err)

	flagged, err := tracker.MarkReviewRequired(ctx, started.ID)
	require.NoError(t, err)
	assert.True(t, flagged.RequiresReview)
	assert.Equal(t, models.ExecutionStatusFailed, flagged.Status)

	skipped, err := tracker.MarkStepSkipped(ctx, started.ID, "verify-email")
	require.NoError(t, err)
	assert.Equal(t, []string{"verify-email"}, skipped.SkippedSteps)

	again, err := tracker.MarkStepSkipped(ctx, started.ID, "verify-email")
	require.NoError(t, err)
	assert.Equal(t, []string{"verify-email"}, again.SkippedSteps)
}

func TestLifecycle_PublishesEvents(t *testing.T) {
	tracker, _, _, _ := newTracker(t)
	ctx := context.Background()

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	tracker.SetBus(bus)

	started, err := tracker.Start(ctx, "wf-1", "enrichment", "company-1", nil)
	require.NoError(t, err)

	_, err = tracker.Complete(ctx, started.ID, nil)
	require.NoError(t, err)

	other, err := tracker.Start(ctx, "wf-2", "enrichment", "company-1", nil)
	require.NoError(t, err)

	_, err = tracker.Fail(ctx, other.ID, "provider timeout", "provider_error")
	require.NoError(t, err)

	var published []events.EventType
	for _, call := range bus.Calls {
		published = append(published, call.Arguments.Get(2).(eventbus.Event).GetType())
	}

	assert.Equal(t, []events.EventType{
		events.ExecutionStartedEvent,
		events.ExecutionCompletedEvent,
		events.ExecutionStartedEvent,
		events.ExecutionFailedEvent,
	}, published)
}

func TestGet_UnknownExecution(t *testing.T) {
	tracker, _, _, _ := newTracker(t)

	_, err := tracker.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, execution.ErrExecutionNotFound)
}
