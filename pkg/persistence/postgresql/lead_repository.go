package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// LeadRepository handles lead database operations.
type LeadRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// GetByID fetches a lead scoped to its tenant.
func (r *LeadRepository) GetByID(ctx context.Context, companyID, id string) (*models.Lead, error) {
	query := `
		SELECT id, company_id, email, full_name, phone_number, job_title,
			company_name, linkedin_url, location, enriched_at, created_at, updated_at
		FROM leads
		WHERE id = $1 AND company_id = $2
	`

	var lead models.Lead

	err := r.db.QueryRowContext(ctx, query, id, companyID).Scan(
		&lead.ID,
		&lead.CompanyID,
		&lead.Email,
		&lead.FullName,
		&lead.PhoneNumber,
		&lead.JobTitle,
		&lead.CompanyName,
		&lead.LinkedinURL,
		&lead.Location,
		&lead.EnrichedAt,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRepositoryError("GetByID", "lead", id, persistence.ErrLeadNotFound)
		}

		return nil, persistence.NewRepositoryError("GetByID", "lead", id, err)
	}

	return &lead, nil
}

// Save upserts a lead record.
func (r *LeadRepository) Save(ctx context.Context, lead *models.Lead) error {
	query := `
		INSERT INTO leads (
			id, company_id, email, full_name, phone_number, job_title,
			company_name, linkedin_url, location, enriched_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			phone_number = EXCLUDED.phone_number,
			job_title = EXCLUDED.job_title,
			company_name = EXCLUDED.company_name,
			linkedin_url = EXCLUDED.linkedin_url,
			location = EXCLUDED.location,
			enriched_at = EXCLUDED.enriched_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		lead.ID,
		lead.CompanyID,
		lead.Email,
		lead.FullName,
		lead.PhoneNumber,
		lead.JobTitle,
		lead.CompanyName,
		lead.LinkedinURL,
		lead.Location,
		lead.EnrichedAt,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Save", "lead", lead.ID, err)
	}

	return nil
}
