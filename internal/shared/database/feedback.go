package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mrmushfiq/llm0-observability/internal/shared/models"
)

const foreignKeyViolation = "23503"

// CreateFeedback inserts a feedback row. At most one feedback per call log is
// allowed; a second submission fails with ErrDuplicateFeedback.
func (db *DB) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	query := `
		INSERT INTO feedback (llm_call_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := db.conn.QueryRowContext(ctx, query, f.LLMCallID, f.UserID, f.Rating, f.Comment).
		Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case uniqueViolation:
				return models.ErrDuplicateFeedback
			case foreignKeyViolation:
				return models.ErrNotFound
			}
		}
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

// ListFeedback retrieves feedback rows newest first, optionally filtered by a
// case-insensitive comment search.
func (db *DB) ListFeedback(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error) {
	query := `
		SELECT id, llm_call_id, user_id, rating, comment, created_at
		FROM feedback
		WHERE ($1 = '' OR comment ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := db.conn.QueryContext(ctx, query, filter.Search, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []models.Feedback
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.LLMCallID, &f.UserID, &f.Rating, &f.Comment, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
