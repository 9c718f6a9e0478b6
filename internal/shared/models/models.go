package models

import "time"

// Role is a user's access level.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleViewer
}

// Authorize reports whether a role is in the allowed set. Every protected
// handler goes through this single check rather than ad hoc role comparisons.
func Authorize(role Role, allowed ...Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// Call statuses accepted at ingestion.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// ValidStatus reports whether s is an accepted call status.
func ValidStatus(s string) bool {
	return s == StatusSuccess || s == StatusError || s == StatusTimeout
}

// User is a dashboard account
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LLMModel is a model definition with its pricing
type LLMModel struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Provider        string    `json:"provider"`
	CostPer1KTokens float64   `json:"cost_per_1k_tokens"`
	CreatedAt       time.Time `json:"created_at"`
}

// CallLog is one recorded LLM invocation. Rows are append-only.
type CallLog struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	ModelID          int64     `json:"model_id"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	LatencyMs        float64   `json:"latency_ms"`
	Status           string    `json:"status"`
	ErrorMessage     *string   `json:"error_message"`
	PromptPreview    *string   `json:"prompt_preview"`
	ResponsePreview  *string   `json:"response_preview"`
	CreatedAt        time.Time `json:"created_at"`
}

// CostLog is the cost estimate attached to a call log at write time
type CostLog struct {
	ID            int64     `json:"id"`
	LLMCallID     int64     `json:"llm_call_id"`
	EstimatedCost float64   `json:"estimated_cost"`
	CreatedAt     time.Time `json:"created_at"`
}

// CallWithCost is a call log joined with its estimated cost, the row shape
// the metrics aggregator consumes.
type CallWithCost struct {
	TotalTokens   int
	LatencyMs     float64
	Status        string
	EstimatedCost float64
	CreatedAt     time.Time
}

// Feedback is a user rating on one LLM call (at most one per call)
type Feedback struct {
	ID        int64     `json:"id"`
	LLMCallID int64     `json:"llm_call_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackFilter narrows admin feedback listings.
type FeedbackFilter struct {
	Search string
	Limit  int
	Offset int
}

// SystemSettings is the singleton admin-managed configuration row
type SystemSettings struct {
	ID                   int64     `json:"id"`
	ClaudeHaiku45Enabled bool      `json:"claude_haiku_45_enabled"`
	MaxTokensPerRequest  int       `json:"max_tokens_per_request"`
	EnableCaching        bool      `json:"enable_caching"`
	UpdatedAt            time.Time `json:"updated_at"`
	UpdatedBy            *int64    `json:"updated_by,omitempty"`
}

// SettingsPatch carries the fields of a settings update; nil means unchanged.
type SettingsPatch struct {
	ClaudeHaiku45Enabled *bool `json:"claude_haiku_45_enabled"`
	MaxTokensPerRequest  *int  `json:"max_tokens_per_request"`
	EnableCaching        *bool `json:"enable_caching"`
}
