package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one append-only audit trail record. Entries are written
// regardless of the outcome branch of the operation they describe.
type AuditEntry struct {
	ID         string         `json:"id"`
	CompanyID  string         `json:"company_id"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewAuditEntry creates an audit entry stamped with the current time.
func NewAuditEntry(companyID, actor, action, entityType, entityID string, details map[string]any) *AuditEntry {
	return &AuditEntry{
		ID:         uuid.New().String(),
		CompanyID:  companyID,
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
}
