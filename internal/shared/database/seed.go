package database

import (
	"context"
	"fmt"
)

// Reference pricing rows created at startup (cost per 1k tokens, USD).
var defaultModels = []struct {
	Name     string
	Provider string
	Cost     float64
}{
	{"gpt-4", "OpenAI", 0.03},
	{"gpt-3.5-turbo", "OpenAI", 0.001},
	{"claude-3-sonnet", "Anthropic", 0.003},
	{"claude-3-haiku", "Anthropic", 0.00025},
	{"claude-3-opus", "Anthropic", 0.015},
}

// SeedModels inserts the default model pricing rows if they are missing
func (db *DB) SeedModels(ctx context.Context) error {
	query := `
		INSERT INTO llm_models (name, provider, cost_per_1k_tokens)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`

	for _, m := range defaultModels {
		if _, err := db.conn.ExecContext(ctx, query, m.Name, m.Provider, m.Cost); err != nil {
			return fmt.Errorf("seed model %s: %w", m.Name, err)
		}
	}
	return nil
}

// SeedAdmin creates the default admin account unless a user with that email
// already exists
func (db *DB) SeedAdmin(ctx context.Context, email, passwordHash string) error {
	query := `
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, $2, 'admin')
		ON CONFLICT (email) DO NOTHING
	`

	if _, err := db.conn.ExecContext(ctx, query, email, passwordHash); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}
