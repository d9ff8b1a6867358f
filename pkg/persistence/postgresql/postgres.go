// Package postgresql provides the PostgreSQL persistence backend.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the postgres driver.
	_ "github.com/lib/pq"

	"github.com/leadflowhq/leadflow/pkg/persistence"
	"github.com/leadflowhq/leadflow/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	enrichments  *EnrichmentRepository
	executions   *ExecutionRepository
	translations *TranslationRepository
	leads        *LeadRepository
	errorHistory *ErrorHistoryRepository
	audit        *AuditRepository
}

// NewPersistence connects, migrates and returns a PostgreSQL backend.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		enrichments:  &EnrichmentRepository{db: database, logger: logger},
		executions:   &ExecutionRepository{db: database, logger: logger},
		translations: &TranslationRepository{db: database, logger: logger},
		leads:        &LeadRepository{db: database, logger: logger},
		errorHistory: &ErrorHistoryRepository{db: database, logger: logger},
		audit:        &AuditRepository{db: database, logger: logger},
	}, nil
}

func (p *Persistence) Enrichments() persistence.EnrichmentRepository    { return p.enrichments }
func (p *Persistence) Executions() persistence.ExecutionRepository      { return p.executions }
func (p *Persistence) Translations() persistence.TranslationRepository  { return p.translations }
func (p *Persistence) Leads() persistence.LeadRepository                { return p.leads }
func (p *Persistence) ErrorHistory() persistence.ErrorHistoryRepository { return p.errorHistory }
func (p *Persistence) Audit() persistence.AuditRepository               { return p.audit }

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
