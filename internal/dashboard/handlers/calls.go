package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/mrmushfiq/llm0-observability/internal/dashboard/cost"
	"github.com/mrmushfiq/llm0-observability/internal/shared/models"
)

// previewLimit matches the preview column width; longer inputs are truncated.
const previewLimit = 500

// CallStore is the persistence surface the ingest endpoints need.
type CallStore interface {
	GetModel(ctx context.Context, id int64) (*models.LLMModel, error)
	ListModels(ctx context.Context) ([]models.LLMModel, error)
	CreateCallLog(ctx context.Context, log *models.CallLog, estimatedCost float64) error
}

// CacheInvalidator marks a user's cached metrics stale after a write.
type CacheInvalidator interface {
	Bump(ctx context.Context, userID int64) error
}

type CallHandler struct {
	store CallStore
	cache CacheInvalidator // may be nil
}

func NewCallHandler(store CallStore, cache CacheInvalidator) *CallHandler {
	return &CallHandler{
		store: store,
		cache: cache,
	}
}

type logCallRequest struct {
	ModelID          int64   `json:"model_id"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	LatencyMs        float64 `json:"latency_ms"`
	Status           string  `json:"status"`
	ErrorMessage     *string `json:"error_message"`
	PromptPreview    *string `json:"prompt_preview"`
	ResponsePreview  *string `json:"response_preview"`
}

func (req *logCallRequest) validate() error {
	if req.ModelID <= 0 {
		return fmt.Errorf("model_id: must be a positive id")
	}
	if req.PromptTokens < 0 || req.CompletionTokens < 0 {
		return fmt.Errorf("prompt_tokens, completion_tokens: must not be negative")
	}
	if req.TotalTokens != req.PromptTokens+req.CompletionTokens {
		return fmt.Errorf("total_tokens: must equal prompt_tokens + completion_tokens")
	}
	if req.LatencyMs < 0 {
		return fmt.Errorf("latency_ms: must not be negative")
	}
	if req.Status == "" {
		req.Status = models.StatusSuccess
	}
	if !models.ValidStatus(req.Status) {
		return fmt.Errorf("status: must be success, error or timeout")
	}
	req.PromptPreview = truncatePreview(req.PromptPreview)
	req.ResponsePreview = truncatePreview(req.ResponsePreview)
	return nil
}

type logCallResponse struct {
	models.CallLog
	EstimatedCost float64 `json:"estimated_cost"`
}

// HandleLogCall handles POST /llm/log-call. The cost estimate is computed
// here, at log time, and persisted with the call in one transaction; an
// unknown model rejects the whole write rather than recording zero cost.
func (h *CallHandler) HandleLogCall(w http.ResponseWriter, r *http.Request) {
	u := UserFromContext(r.Context())
	if u == nil {
		respondError(w, http.StatusUnauthorized, "authorization required")
		return
	}

	var req logCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	model, err := h.store.GetModel(r.Context(), req.ModelID)
	if err != nil {
		if errors.Is(err, models.ErrUnknownModel) {
			respondError(w, http.StatusNotFound, "model not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to look up model")
		return
	}

	estimated := cost.Estimate(req.PromptTokens, req.CompletionTokens, model.CostPer1KTokens)

	entry := &models.CallLog{
		UserID:           u.ID,
		ModelID:          req.ModelID,
		PromptTokens:     req.PromptTokens,
		CompletionTokens: req.CompletionTokens,
		TotalTokens:      req.TotalTokens,
		LatencyMs:        req.LatencyMs,
		Status:           req.Status,
		ErrorMessage:     req.ErrorMessage,
		PromptPreview:    req.PromptPreview,
		ResponsePreview:  req.ResponsePreview,
	}
	if err := h.store.CreateCallLog(r.Context(), entry, estimated); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store call log")
		return
	}

	h.invalidate(r.Context(), u.ID)

	respondJSON(w, http.StatusCreated, logCallResponse{
		CallLog:       *entry,
		EstimatedCost: estimated,
	})
}

type seedResponse struct {
	Created int    `json:"created"`
	Days    int    `json:"days"`
	PerDay  int    `json:"per_day"`
	Message string `json:"message,omitempty"`
}

var seedErrorMessages = []string{
	"timeout", "rate_limit", "invalid_request", "provider_error",
}

// HandleSeed handles POST /llm/seed: generates demo call logs for the caller
// so the dashboard charts have data to show.
func (h *CallHandler) HandleSeed(w http.ResponseWriter, r *http.Request) {
	u := UserFromContext(r.Context())
	if u == nil {
		respondError(w, http.StatusUnauthorized, "authorization required")
		return
	}

	days, err := queryInt(r, "days", 30, 1, 365)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	perDay, err := queryInt(r, "per_day", 25, 1, 1000)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	available, err := h.store.ListModels(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list models")
		return
	}
	if len(available) == 0 {
		respondJSON(w, http.StatusOK, seedResponse{Message: "no LLM models found, seed models first"})
		return
	}

	prompt := "Explain quantum computing"
	response := "Quantum computing uses qubits..."

	created := 0
	now := time.Now().UTC()
	for d := 0; d < days; d++ {
		dayAt := now.AddDate(0, 0, -d)
		for i := 0; i < perDay; i++ {
			model := available[rand.Intn(len(available))]

			promptTokens := 50 + rand.Intn(751)
			completionTokens := 20 + rand.Intn(1181)
			latency := rand.NormFloat64()*120 + 250
			if latency < 20 {
				latency = 20
			}

			status := models.StatusSuccess
			var errMsg *string
			if rand.Float64() <= 0.08 {
				status = models.StatusError
				msg := seedErrorMessages[rand.Intn(len(seedErrorMessages))]
				errMsg = &msg
			}

			entry := &models.CallLog{
				UserID:           u.ID,
				ModelID:          model.ID,
				PromptTokens:     promptTokens,
				CompletionTokens: completionTokens,
				TotalTokens:      promptTokens + completionTokens,
				LatencyMs:        float64(int(latency)),
				Status:           status,
				ErrorMessage:     errMsg,
				PromptPreview:    &prompt,
				ResponsePreview:  &response,
				CreatedAt:        dayAt,
			}
			estimated := cost.Estimate(promptTokens, completionTokens, model.CostPer1KTokens)
			if err := h.store.CreateCallLog(r.Context(), entry, estimated); err != nil {
				respondError(w, http.StatusInternalServerError, "failed to store seed logs")
				return
			}
			created++
		}
	}

	h.invalidate(r.Context(), u.ID)

	respondJSON(w, http.StatusOK, seedResponse{Created: created, Days: days, PerDay: perDay})
}

func (h *CallHandler) invalidate(ctx context.Context, userID int64) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Bump(ctx, userID); err != nil {
		log.Printf("failed to invalidate metrics cache for user %d: %v", userID, err)
	}
}

// truncatePreview cuts a preview down to the column width. The limit is in
// characters, not bytes, so multibyte text is never split mid-rune.
func truncatePreview(s *string) *string {
	if s == nil || utf8.RuneCountInString(*s) <= previewLimit {
		return s
	}
	runes := []rune(*s)
	t := string(runes[:previewLimit])
	return &t
}
