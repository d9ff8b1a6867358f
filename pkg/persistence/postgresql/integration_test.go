package postgresql_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
	"github.com/leadflowhq/leadflow/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("leadflow_test"),
			postgres.WithUsername("leadflow"),
			postgres.WithPassword("leadflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		err := store.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return store, ctx
}

func TestEnrichmentRepository_ActiveGuardIsAtomic(t *testing.T) {
	store, ctx := setupTestDB(t)
	repo := store.Enrichments()

	first := models.NewEnrichmentRequest("guard-lead-1", "company-1", "apollo", nil)
	require.NoError(t, repo.Create(ctx, first))

	// The partial unique index rejects a second active request.
	second := models.NewEnrichmentRequest("guard-lead-1", "company-1", "clearbit", nil)
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, persistence.ErrActiveEnrichmentExists)

	require.NoError(t, repo.Update(ctx, first.WithFailure(models.EnrichmentStatusFailed, "provider error", 50)))
	assert.NoError(t, repo.Create(ctx, second))
}

func TestEnrichmentRepository_Lifecycle(t *testing.T) {
	store, ctx := setupTestDB(t)
	repo := store.Enrichments()

	request := models.NewEnrichmentRequest("lifecycle-lead-1", "company-1", "apollo", map[string]any{
		"email": "ada@analytical.dev",
	})
	require.NoError(t, repo.Create(ctx, request))

	inProgress := request.WithStatus(models.EnrichmentStatusInProgress)
	require.NoError(t, repo.Update(ctx, inProgress))

	done := inProgress.WithResult(map[string]any{"company_name": "Analytical Engines"}, 230)
	require.NoError(t, repo.Update(ctx, done))

	found, err := repo.GetByID(ctx, "company-1", request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrichmentStatusSuccess, found.Status)
	assert.Equal(t, "Analytical Engines", found.ResponseData["company_name"])
	assert.Equal(t, int64(230), found.DurationMs)
	assert.Equal(t, "ada@analytical.dev", found.RequestData["email"])

	_, err = repo.GetByID(ctx, "company-2", request.ID)
	assert.ErrorIs(t, err, persistence.ErrEnrichmentNotFound)
}

func TestExecutionRepository_SaveAndHistory(t *testing.T) {
	store, ctx := setupTestDB(t)

	execution := models.NewWorkflowExecution("wf-int-1", "enrichment", "company-1", map[string]any{"step": "fetch"})
	require.NoError(t, store.Executions().Save(ctx, execution))

	failed := execution.WithStatus(models.ExecutionStatusInProgress).WithError("upstream timeout")
	require.NoError(t, store.Executions().Save(ctx, failed))

	record := &persistence.ErrorRecord{
		Context:    *models.NewErrorContext(failed, "timeout"),
		StrategyID: "retry-on-timeout",
		Recovered:  true,
		RecordedAt: time.Now().UTC(),
	}
	require.NoError(t, store.ErrorHistory().Append(ctx, record))

	found, err := store.Executions().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, found.Status)
	assert.Equal(t, "upstream timeout", found.ErrorMessage)
	require.NotNil(t, found.CompletedAt)

	history, err := store.ErrorHistory().ByWorkflow(ctx, "wf-int-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "retry-on-timeout", history[0].StrategyID)
	assert.Equal(t, execution.ID, history[0].Context.ExecutionID)
}

func TestTranslationRepository_Lifecycle(t *testing.T) {
	store, ctx := setupTestDB(t)
	repo := store.Translations()

	request := models.NewTranslationRequest("company-1", "user-1", models.InputFormatCSVUpload,
		"title,industry\nCTO,SaaS", nil)
	require.NoError(t, repo.Create(ctx, request))

	done := request.WithResult(models.TranslationResult{
		Criteria:   &models.AudienceCriteria{JobTitles: []string{"CTO"}, Industries: []string{"SaaS"}},
		Schema:     &models.EnrichmentSchema{RequiredFields: []string{"fullName", "email"}},
		Leads:      []models.SampleLead{{FullName: "Sample Lead 1", JobTitle: "CTO"}},
		Reasoning:  "derived from CSV columns",
		Confidence: 0.7,
	})
	require.NoError(t, repo.Update(ctx, done))

	found, err := repo.GetByID(ctx, "company-1", request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TranslationStatusSuccess, found.Status)
	require.NotNil(t, found.InterpretedCriteria)
	assert.Equal(t, []string{"CTO"}, found.InterpretedCriteria.JobTitles)
	assert.InDelta(t, 0.7, found.Confidence, 0.0001)
	require.Len(t, found.Leads, 1)
}
