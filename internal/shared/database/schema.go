package database

import (
	"context"
	"fmt"
)

// Idempotent DDL executed at startup. Statements run in order because of the
// foreign key references between them.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'viewer',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS llm_models (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		provider TEXT NOT NULL,
		cost_per_1k_tokens DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS llm_call_logs (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		model_id BIGINT NOT NULL REFERENCES llm_models(id) ON DELETE CASCADE,
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL DEFAULT 'success',
		error_message TEXT,
		prompt_preview VARCHAR(500),
		response_preview VARCHAR(500),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_llm_call_logs_user_created
		ON llm_call_logs (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS cost_logs (
		id BIGSERIAL PRIMARY KEY,
		llm_call_id BIGINT NOT NULL UNIQUE REFERENCES llm_call_logs(id) ON DELETE CASCADE,
		estimated_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id BIGSERIAL PRIMARY KEY,
		llm_call_id BIGINT NOT NULL UNIQUE REFERENCES llm_call_logs(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS system_settings (
		id BIGINT PRIMARY KEY,
		claude_haiku_45_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		max_tokens_per_request INTEGER NOT NULL DEFAULT 4096,
		enable_caching BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_by BIGINT REFERENCES users(id)
	)`,
}

// EnsureSchema creates all tables and indexes if they do not exist yet
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
