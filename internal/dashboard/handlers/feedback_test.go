package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mrmushfiq/llm0-observability/internal/shared/models"
)

type fakeFeedbackStore struct {
	knownCalls map[int64]bool
	feedback   []models.Feedback
	lastFilter models.FeedbackFilter
	inserts    int
}

func newFakeFeedbackStore(callIDs ...int64) *fakeFeedbackStore {
	known := make(map[int64]bool, len(callIDs))
	for _, id := range callIDs {
		known[id] = true
	}
	return &fakeFeedbackStore{knownCalls: known}
}

func (f *fakeFeedbackStore) GetCallLog(_ context.Context, id int64) (*models.CallLog, error) {
	if !f.knownCalls[id] {
		return nil, models.ErrNotFound
	}
	return &models.CallLog{ID: id}, nil
}

func (f *fakeFeedbackStore) CreateFeedback(_ context.Context, fb *models.Feedback) error {
	f.inserts++
	if !f.knownCalls[fb.LLMCallID] {
		return models.ErrNotFound
	}
	for _, existing := range f.feedback {
		if existing.LLMCallID == fb.LLMCallID {
			return models.ErrDuplicateFeedback
		}
	}
	fb.ID = int64(len(f.feedback) + 1)
	f.feedback = append(f.feedback, *fb)
	return nil
}

func (f *fakeFeedbackStore) ListFeedback(_ context.Context, filter models.FeedbackFilter) ([]models.Feedback, error) {
	f.lastFilter = filter
	if filter.Search == "" {
		return f.feedback, nil
	}
	var out []models.Feedback
	for _, fb := range f.feedback {
		if fb.Comment != nil && strings.Contains(*fb.Comment, filter.Search) {
			out = append(out, fb)
		}
	}
	return out, nil
}

func submitFeedback(t *testing.T, h *FeedbackHandler, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/feedback", bytes.NewReader(raw))
	req = req.WithContext(ContextWithUser(req.Context(), authedUser()))
	rec := httptest.NewRecorder()
	h.HandleSubmit(rec, req)
	return rec
}

func TestSubmitFeedback(t *testing.T) {
	store := newFakeFeedbackStore(42)
	h := NewFeedbackHandler(store)

	rec := submitFeedback(t, h, map[string]any{
		"llm_call_id": 42,
		"rating":      4,
		"comment":     "helpful answer",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if len(store.feedback) != 1 {
		t.Fatalf("stored feedback = %d, want 1", len(store.feedback))
	}
	fb := store.feedback[0]
	if fb.UserID != 1 {
		t.Errorf("user_id = %d, want 1 (from context)", fb.UserID)
	}
	if fb.Comment == nil || *fb.Comment != "helpful answer" {
		t.Errorf("comment = %v", fb.Comment)
	}
}

func TestSubmitFeedbackRatingBounds(t *testing.T) {
	for _, rating := range []int{0, 6, -1} {
		store := newFakeFeedbackStore(42)
		h := NewFeedbackHandler(store)

		rec := submitFeedback(t, h, map[string]any{"llm_call_id": 42, "rating": rating})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("rating %d: status = %d, want 400", rating, rec.Code)
		}
		if len(store.feedback) != 0 {
			t.Errorf("rating %d: invalid feedback was stored", rating)
		}
	}
}

func TestSubmitFeedbackUnknownCall(t *testing.T) {
	store := newFakeFeedbackStore()
	h := NewFeedbackHandler(store)

	rec := submitFeedback(t, h, map[string]any{"llm_call_id": 999, "rating": 3})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if store.inserts != 0 {
		t.Error("insert attempted for a call that does not exist")
	}
}

func TestSubmitFeedbackDuplicateConflicts(t *testing.T) {
	store := newFakeFeedbackStore(42)
	h := NewFeedbackHandler(store)

	if rec := submitFeedback(t, h, map[string]any{"llm_call_id": 42, "rating": 5}); rec.Code != http.StatusCreated {
		t.Fatalf("first submit status = %d", rec.Code)
	}
	rec := submitFeedback(t, h, map[string]any{"llm_call_id": 42, "rating": 1})
	if rec.Code != http.StatusConflict {
		t.Errorf("second submit status = %d, want 409", rec.Code)
	}
	if len(store.feedback) != 1 {
		t.Errorf("stored feedback = %d, want 1", len(store.feedback))
	}
}

func TestListFeedbackDefaultsAndSearch(t *testing.T) {
	store := newFakeFeedbackStore(1, 2)
	h := NewFeedbackHandler(store)
	submitFeedback(t, h, map[string]any{"llm_call_id": 1, "rating": 5, "comment": "great"})
	submitFeedback(t, h, map[string]any{"llm_call_id": 2, "rating": 2, "comment": "too slow"})

	req := httptest.NewRequest(http.MethodGet, "/feedback?search=slow", nil)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if store.lastFilter.Limit != 50 || store.lastFilter.Offset != 0 {
		t.Errorf("filter = %+v, want default limit 50 offset 0", store.lastFilter)
	}

	var out []models.Feedback
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].LLMCallID != 2 {
		t.Errorf("search result = %+v", out)
	}
}

func TestListFeedbackEmptyIsArray(t *testing.T) {
	h := NewFeedbackHandler(newFakeFeedbackStore())

	req := httptest.NewRequest(http.MethodGet, "/feedback", nil)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("empty list body = %q, want []", body)
	}
}

func TestListFeedbackRejectsBadLimit(t *testing.T) {
	h := NewFeedbackHandler(newFakeFeedbackStore())

	req := httptest.NewRequest(http.MethodGet, "/feedback?limit=0", nil)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
