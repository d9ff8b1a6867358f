package postgresql

// migrations returns the schema migrations keyed by version.
//
// The partial unique index on enrichment_requests makes the per-lead
// concurrency guard atomic: the database admits at most one PENDING or
// IN_PROGRESS request per lead regardless of racing writers.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS leads (
				id TEXT PRIMARY KEY,
				company_id TEXT NOT NULL,
				email TEXT NOT NULL,
				full_name TEXT NOT NULL DEFAULT '',
				phone_number TEXT NOT NULL DEFAULT '',
				job_title TEXT NOT NULL DEFAULT '',
				company_name TEXT NOT NULL DEFAULT '',
				linkedin_url TEXT NOT NULL DEFAULT '',
				location TEXT NOT NULL DEFAULT '',
				enriched_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_leads_company ON leads (company_id);

			CREATE TABLE IF NOT EXISTS enrichment_requests (
				id TEXT PRIMARY KEY,
				provider TEXT NOT NULL,
				request_data JSONB,
				response_data JSONB,
				status TEXT NOT NULL,
				lead_id TEXT NOT NULL,
				company_id TEXT NOT NULL,
				retry_count INTEGER NOT NULL DEFAULT 0,
				previous_request_id TEXT,
				error_message TEXT NOT NULL DEFAULT '',
				duration_ms BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE UNIQUE INDEX IF NOT EXISTS idx_enrichment_active_lead
				ON enrichment_requests (lead_id)
				WHERE status IN ('PENDING', 'IN_PROGRESS');

			CREATE INDEX IF NOT EXISTS idx_enrichment_company_created
				ON enrichment_requests (company_id, created_at DESC, id);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS workflow_executions (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				workflow_type TEXT NOT NULL,
				company_id TEXT NOT NULL,
				status TEXT NOT NULL,
				input_data JSONB,
				output_data JSONB,
				error_message TEXT NOT NULL DEFAULT '',
				retry_count INTEGER NOT NULL DEFAULT 0,
				requires_review BOOLEAN NOT NULL DEFAULT FALSE,
				skipped_steps JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_executions_workflow
				ON workflow_executions (workflow_id, created_at);

			CREATE TABLE IF NOT EXISTS execution_error_history (
				id BIGSERIAL PRIMARY KEY,
				execution_id TEXT NOT NULL,
				workflow_id TEXT NOT NULL,
				context JSONB NOT NULL,
				strategy_id TEXT NOT NULL DEFAULT '',
				recovered BOOLEAN NOT NULL DEFAULT FALSE,
				recorded_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_error_history_execution
				ON execution_error_history (execution_id);

			CREATE INDEX IF NOT EXISTS idx_error_history_workflow
				ON execution_error_history (workflow_id);
		`,
		3: `
			CREATE TABLE IF NOT EXISTS translation_requests (
				id TEXT PRIMARY KEY,
				input_format TEXT NOT NULL,
				raw_input TEXT NOT NULL DEFAULT '',
				structured_data JSONB,
				leads JSONB,
				enrichment_schema JSONB,
				interpreted_criteria JSONB,
				reasoning TEXT NOT NULL DEFAULT '',
				confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
				status TEXT NOT NULL,
				error_message TEXT NOT NULL DEFAULT '',
				company_id TEXT NOT NULL,
				created_by TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_translations_company
				ON translation_requests (company_id, created_at DESC);

			CREATE TABLE IF NOT EXISTS audit_trail (
				id TEXT PRIMARY KEY,
				company_id TEXT NOT NULL,
				actor TEXT NOT NULL DEFAULT '',
				action TEXT NOT NULL,
				entity_type TEXT NOT NULL,
				entity_id TEXT NOT NULL,
				details JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_audit_entity
				ON audit_trail (entity_type, entity_id);
		`,
	}
}
