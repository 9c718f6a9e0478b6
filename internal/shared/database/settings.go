package database

import (
	"context"
	"fmt"

	"github.com/mrmushfiq/llm0-observability/internal/shared/models"
)

// The settings table holds exactly one row with this id.
const settingsRowID = 1

// GetSettings returns the singleton settings row, creating it with default
// values on first access. The fixed-id insert with ON CONFLICT makes the lazy
// initialization race-free: concurrent first reads create the row exactly once.
func (db *DB) GetSettings(ctx context.Context) (*models.SystemSettings, error) {
	insert := `
		INSERT INTO system_settings (id, claude_haiku_45_enabled, max_tokens_per_request, enable_caching)
		VALUES ($1, FALSE, 4096, TRUE)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := db.conn.ExecContext(ctx, insert, settingsRowID); err != nil {
		return nil, fmt.Errorf("init settings: %w", err)
	}

	query := `
		SELECT id, claude_haiku_45_enabled, max_tokens_per_request, enable_caching,
		       updated_at, updated_by
		FROM system_settings
		WHERE id = $1
	`

	var s models.SystemSettings
	err := db.conn.QueryRowContext(ctx, query, settingsRowID).Scan(
		&s.ID,
		&s.ClaudeHaiku45Enabled,
		&s.MaxTokensPerRequest,
		&s.EnableCaching,
		&s.UpdatedAt,
		&s.UpdatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// UpdateSettings applies the non-nil fields of the patch in a single UPDATE
// statement, so concurrent admin edits are last-writer-wins with no torn state.
// Returns the updated row.
func (db *DB) UpdateSettings(ctx context.Context, patch models.SettingsPatch, updatedBy int64) (*models.SystemSettings, error) {
	// Make sure the row exists before updating it.
	if _, err := db.GetSettings(ctx); err != nil {
		return nil, err
	}

	query := `
		UPDATE system_settings
		SET claude_haiku_45_enabled = COALESCE($2, claude_haiku_45_enabled),
		    max_tokens_per_request = COALESCE($3, max_tokens_per_request),
		    enable_caching = COALESCE($4, enable_caching),
		    updated_at = NOW(),
		    updated_by = $5
		WHERE id = $1
		RETURNING id, claude_haiku_45_enabled, max_tokens_per_request, enable_caching,
		          updated_at, updated_by
	`

	var s models.SystemSettings
	err := db.conn.QueryRowContext(ctx, query,
		settingsRowID,
		patch.ClaudeHaiku45Enabled,
		patch.MaxTokensPerRequest,
		patch.EnableCaching,
		updatedBy,
	).Scan(
		&s.ID,
		&s.ClaudeHaiku45Enabled,
		&s.MaxTokensPerRequest,
		&s.EnableCaching,
		&s.UpdatedAt,
		&s.UpdatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return &s, nil
}
