package models

import "time"

// Lead is the contact record enrichment writes into. The canonical field
// set matches the normalized schema produced by providers.Standardize.
type Lead struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	PhoneNumber string     `json:"phone_number,omitempty"`
	JobTitle    string     `json:"job_title,omitempty"`
	CompanyName string     `json:"company_name,omitempty"`
	LinkedinURL string     `json:"linkedin_url,omitempty"`
	Location    string     `json:"location,omitempty"`
	EnrichedAt  *time.Time `json:"enriched_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ApplyEnrichment returns a copy of the lead with normalized provider
// output merged in. Empty values never overwrite existing fields.
func (l *Lead) ApplyEnrichment(data map[string]any) *Lead {
	next := *l

	setIfPresent := func(dst *string, key string) {
		if value, ok := data[key].(string); ok && value != "" {
			*dst = value
		}
	}

	setIfPresent(&next.FullName, "full_name")
	setIfPresent(&next.PhoneNumber, "phone_number")
	setIfPresent(&next.JobTitle, "job_title")
	setIfPresent(&next.CompanyName, "company_name")
	setIfPresent(&next.LinkedinURL, "linkedin_url")
	setIfPresent(&next.Location, "location")

	now := time.Now().UTC()
	next.EnrichedAt = &now
	next.UpdatedAt = now

	return &next
}
