package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mrmushfiq/llm0-observability/internal/dashboard/metrics"
	"github.com/mrmushfiq/llm0-observability/internal/shared/models"
)

type fakeMetricsStore struct {
	calls    []models.CallWithCost
	queries  int
	lastUser int64
}

func (f *fakeMetricsStore) ListCallsWithCostSince(_ context.Context, userID int64, _ time.Time) ([]models.CallWithCost, error) {
	f.queries++
	f.lastUser = userID
	return f.calls, nil
}

type fakeSettingsReader struct {
	settings models.SystemSettings
}

func (f *fakeSettingsReader) GetSettings(_ context.Context) (*models.SystemSettings, error) {
	s := f.settings
	return &s, nil
}

type fakeMetricsCache struct {
	entries  map[string][]byte
	versions map[int64]int64
	sets     int
	hits     int
}

func newFakeMetricsCache() *fakeMetricsCache {
	return &fakeMetricsCache{
		entries:  make(map[string][]byte),
		versions: make(map[int64]int64),
	}
}

func (f *fakeMetricsCache) Version(_ context.Context, userID int64) int64 {
	return f.versions[userID]
}

func (f *fakeMetricsCache) Get(_ context.Context, key string, dst interface{}) bool {
	raw, ok := f.entries[key]
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false
	}
	f.hits++
	return true
}

func (f *fakeMetricsCache) Set(_ context.Context, key string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	f.sets++
	return nil
}

func getMetrics(h http.HandlerFunc, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(ContextWithUser(req.Context(), authedUser()))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func sampleWindow() []models.CallWithCost {
	now := time.Now().UTC()
	return []models.CallWithCost{
		{TotalTokens: 100, LatencyMs: 90, Status: models.StatusSuccess, EstimatedCost: 0.003, CreatedAt: now},
		{TotalTokens: 400, LatencyMs: 260, Status: models.StatusError, EstimatedCost: 0.012, CreatedAt: now},
		{TotalTokens: 500, LatencyMs: 400, Status: models.StatusSuccess, EstimatedCost: 0.015, CreatedAt: now.Add(-24 * time.Hour)},
	}
}

func TestSummaryScopedToRequestingUser(t *testing.T) {
	store := &fakeMetricsStore{calls: sampleWindow()}
	h := NewMetricsHandler(store, nil, nil)

	rec := getMetrics(h.HandleSummary, "/metrics/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if store.lastUser != 1 {
		t.Errorf("queried user = %d, want 1", store.lastUser)
	}

	var s metrics.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.TotalTokens != 1000 {
		t.Errorf("total_tokens = %d, want 1000", s.TotalTokens)
	}
	if s.TotalCost != 0.03 {
		t.Errorf("total_cost = %v, want 0.03", s.TotalCost)
	}
	if s.AverageLatency != 250 {
		t.Errorf("average_latency = %v, want 250", s.AverageLatency)
	}
	if s.ErrorRate != 33.33 {
		t.Errorf("error_rate = %v, want 33.33", s.ErrorRate)
	}
}

func TestMetricsRejectsBadDays(t *testing.T) {
	store := &fakeMetricsStore{}
	h := NewMetricsHandler(store, nil, nil)

	for _, path := range []string{
		"/metrics/summary?days=0",
		"/metrics/summary?days=366",
		"/metrics/summary?days=abc",
		"/metrics/cost?days=-1",
	} {
		var rec *httptest.ResponseRecorder
		if path == "/metrics/cost?days=-1" {
			rec = getMetrics(h.HandleCost, path)
		} else {
			rec = getMetrics(h.HandleSummary, path)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
	if store.queries != 0 {
		t.Errorf("store queried %d times for invalid windows", store.queries)
	}
}

func TestMetricsRequiresUser(t *testing.T) {
	h := NewMetricsHandler(&fakeMetricsStore{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics/summary", nil)
	rec := httptest.NewRecorder()
	h.HandleSummary(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCostReportsWindow(t *testing.T) {
	store := &fakeMetricsStore{calls: sampleWindow()}
	h := NewMetricsHandler(store, nil, nil)

	rec := getMetrics(h.HandleCost, "/metrics/cost?days=7")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp costResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.TotalCost != 0.03 {
		t.Errorf("total_cost = %v, want 0.03", resp.TotalCost)
	}
	if resp.PeriodDays != 7 {
		t.Errorf("period_days = %d, want 7", resp.PeriodDays)
	}
}

func TestLatencySeriesEnvelope(t *testing.T) {
	store := &fakeMetricsStore{calls: sampleWindow()}
	h := NewMetricsHandler(store, nil, nil)

	rec := getMetrics(h.HandleLatency, "/metrics/latency")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data []metrics.LatencyBucket `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// 90 / 260 / 400 → one call under 100ms, two in 200-500ms.
	want := []metrics.LatencyBucket{{Range: "0-100ms", Count: 1}, {Range: "200-500ms", Count: 2}}
	if len(resp.Data) != len(want) {
		t.Fatalf("buckets = %+v, want %+v", resp.Data, want)
	}
	for i := range want {
		if resp.Data[i] != want[i] {
			t.Errorf("bucket[%d] = %+v, want %+v", i, resp.Data[i], want[i])
		}
	}
}

func TestMetricsCacheWriteThroughAndHit(t *testing.T) {
	store := &fakeMetricsStore{calls: sampleWindow()}
	cache := newFakeMetricsCache()
	settings := &fakeSettingsReader{settings: models.SystemSettings{EnableCaching: true}}
	h := NewMetricsHandler(store, settings, cache)

	first := getMetrics(h.HandleSummary, "/metrics/summary")
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	if cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", cache.sets)
	}

	second := getMetrics(h.HandleSummary, "/metrics/summary")
	if second.Code != http.StatusOK {
		t.Fatalf("second status = %d", second.Code)
	}
	if cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hits)
	}
	if store.queries != 1 {
		t.Errorf("store queries = %d, want 1 (second request should be served from cache)", store.queries)
	}
	if strings.TrimSpace(first.Body.String()) != strings.TrimSpace(second.Body.String()) {
		t.Errorf("cached body differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}
}

func TestMetricsCacheMissAfterVersionBump(t *testing.T) {
	store := &fakeMetricsStore{calls: sampleWindow()}
	cache := newFakeMetricsCache()
	settings := &fakeSettingsReader{settings: models.SystemSettings{EnableCaching: true}}
	h := NewMetricsHandler(store, settings, cache)

	getMetrics(h.HandleSummary, "/metrics/summary")
	cache.versions[1]++ // a new call log was written
	getMetrics(h.HandleSummary, "/metrics/summary")

	if store.queries != 2 {
		t.Errorf("store queries = %d, want 2 after version bump", store.queries)
	}
}

func TestMetricsCacheDisabledBySetting(t *testing.T) {
	store := &fakeMetricsStore{calls: sampleWindow()}
	cache := newFakeMetricsCache()
	settings := &fakeSettingsReader{settings: models.SystemSettings{EnableCaching: false}}
	h := NewMetricsHandler(store, settings, cache)

	getMetrics(h.HandleSummary, "/metrics/summary")
	getMetrics(h.HandleSummary, "/metrics/summary")

	if cache.sets != 0 || cache.hits != 0 {
		t.Errorf("cache touched (sets=%d hits=%d) with enable_caching off", cache.sets, cache.hits)
	}
	if store.queries != 2 {
		t.Errorf("store queries = %d, want 2", store.queries)
	}
}
