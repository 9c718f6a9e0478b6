package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mrmushfiq/llm0-observability/internal/shared/models"
)

// GetModel retrieves a model definition (with pricing) by id
func (db *DB) GetModel(ctx context.Context, id int64) (*models.LLMModel, error) {
	query := `
		SELECT id, name, provider, cost_per_1k_tokens, created_at
		FROM llm_models
		WHERE id = $1
	`

	var m models.LLMModel
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&m.ID,
		&m.Name,
		&m.Provider,
		&m.CostPer1KTokens,
		&m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrUnknownModel
	}
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}
	return &m, nil
}

// ListModels retrieves all model definitions
func (db *DB) ListModels(ctx context.Context) ([]models.LLMModel, error) {
	query := `
		SELECT id, name, provider, cost_per_1k_tokens, created_at
		FROM llm_models
		ORDER BY id
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var out []models.LLMModel
	for rows.Next() {
		var m models.LLMModel
		if err := rows.Scan(&m.ID, &m.Name, &m.Provider, &m.CostPer1KTokens, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateCallLog inserts a call log and its cost log in one transaction, so a
// call never exists without its cost estimate. The log's generated fields are
// filled in on success. A zero CreatedAt means "now".
func (db *DB) CreateCallLog(ctx context.Context, log *models.CallLog, estimatedCost float64) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	insertLog := `
		INSERT INTO llm_call_logs (
			user_id, model_id, prompt_tokens, completion_tokens, total_tokens,
			latency_ms, status, error_message, prompt_preview, response_preview,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err = tx.QueryRowContext(ctx, insertLog,
		log.UserID,
		log.ModelID,
		log.PromptTokens,
		log.CompletionTokens,
		log.TotalTokens,
		log.LatencyMs,
		log.Status,
		log.ErrorMessage,
		log.PromptPreview,
		log.ResponsePreview,
		log.CreatedAt,
	).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("insert call log: %w", err)
	}

	insertCost := `
		INSERT INTO cost_logs (llm_call_id, estimated_cost, created_at)
		VALUES ($1, $2, $3)
	`

	if _, err := tx.ExecContext(ctx, insertCost, log.ID, estimatedCost, log.CreatedAt); err != nil {
		return fmt.Errorf("insert cost log: %w", err)
	}

	return tx.Commit()
}

// GetCallLog retrieves a call log by id
func (db *DB) GetCallLog(ctx context.Context, id int64) (*models.CallLog, error) {
	query := `
		SELECT id, user_id, model_id, prompt_tokens, completion_tokens,
		       total_tokens, latency_ms, status, error_message, prompt_preview,
		       response_preview, created_at
		FROM llm_call_logs
		WHERE id = $1
	`

	var c models.CallLog
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.UserID,
		&c.ModelID,
		&c.PromptTokens,
		&c.CompletionTokens,
		&c.TotalTokens,
		&c.LatencyMs,
		&c.Status,
		&c.ErrorMessage,
		&c.PromptPreview,
		&c.ResponsePreview,
		&c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get call log: %w", err)
	}
	return &c, nil
}

// ListCallsWithCostSince retrieves a user's call logs created at or after the
// cutoff, joined with their cost estimates, oldest first. Calls without a cost
// row (which should not happen given the transactional insert) count as zero.
func (db *DB) ListCallsWithCostSince(ctx context.Context, userID int64, since time.Time) ([]models.CallWithCost, error) {
	query := `
		SELECT l.total_tokens, l.latency_ms, l.status,
		       COALESCE(c.estimated_cost, 0), l.created_at
		FROM llm_call_logs l
		LEFT JOIN cost_logs c ON c.llm_call_id = l.id
		WHERE l.user_id = $1 AND l.created_at >= $2
		ORDER BY l.created_at
	`

	rows, err := db.conn.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	var out []models.CallWithCost
	for rows.Next() {
		var c models.CallWithCost
		if err := rows.Scan(&c.TotalTokens, &c.LatencyMs, &c.Status, &c.EstimatedCost, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
