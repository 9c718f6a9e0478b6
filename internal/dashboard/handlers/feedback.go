package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mrmushfiq/llm0-observability/internal/shared/models"
)

// FeedbackStore is the persistence surface the feedback endpoints need.
type FeedbackStore interface {
	GetCallLog(ctx context.Context, id int64) (*models.CallLog, error)
	CreateFeedback(ctx context.Context, f *models.Feedback) error
	ListFeedback(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error)
}

type FeedbackHandler struct {
	store FeedbackStore
}

func NewFeedbackHandler(store FeedbackStore) *FeedbackHandler {
	return &FeedbackHandler{store: store}
}

type feedbackRequest struct {
	LLMCallID int64   `json:"llm_call_id"`
	Rating    int     `json:"rating"`
	Comment   *string `json:"comment"`
}

func (req *feedbackRequest) validate() error {
	if req.LLMCallID <= 0 {
		return fmt.Errorf("llm_call_id: must be a positive id")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return fmt.Errorf("rating: must be between 1 and 5")
	}
	return nil
}

// HandleSubmit handles POST /feedback
func (h *FeedbackHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	u := UserFromContext(r.Context())
	if u == nil {
		respondError(w, http.StatusUnauthorized, "authorization required")
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.GetCallLog(r.Context(), req.LLMCallID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondError(w, http.StatusNotFound, "call log not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to look up call log")
		return
	}

	f := &models.Feedback{
		LLMCallID: req.LLMCallID,
		UserID:    u.ID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := h.store.CreateFeedback(r.Context(), f); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			// The call was deleted between the lookup and the insert.
			respondError(w, http.StatusNotFound, "call log not found")
		case errors.Is(err, models.ErrDuplicateFeedback):
			respondError(w, http.StatusConflict, "feedback already submitted for this call")
		default:
			respondError(w, http.StatusInternalServerError, "failed to store feedback")
		}
		return
	}

	respondJSON(w, http.StatusCreated, f)
}

// HandleList handles GET /feedback (admin only, enforced by the router)
func (h *FeedbackHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50, 1, 500)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0, 0, 1<<30)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.store.ListFeedback(r.Context(), models.FeedbackFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list feedback")
		return
	}
	if out == nil {
		out = []models.Feedback{}
	}
	respondJSON(w, http.StatusOK, out)
}
