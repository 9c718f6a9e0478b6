package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/mrmushfiq/llm0-observability/internal/dashboard/metrics"
	"github.com/mrmushfiq/llm0-observability/internal/dashboard/metricscache"
	"github.com/mrmushfiq/llm0-observability/internal/shared/models"
)

// MetricsStore is the persistence surface the metrics endpoints need.
type MetricsStore interface {
	ListCallsWithCostSince(ctx context.Context, userID int64, since time.Time) ([]models.CallWithCost, error)
}

// SettingsReader exposes the settings singleton; metrics caching is gated on
// its enable_caching flag.
type SettingsReader interface {
	GetSettings(ctx context.Context) (*models.SystemSettings, error)
}

// MetricsCache caches computed series payloads keyed by user write version.
type MetricsCache interface {
	Version(ctx context.Context, userID int64) int64
	Get(ctx context.Context, key string, dst interface{}) bool
	Set(ctx context.Context, key string, payload interface{}) error
}

type MetricsHandler struct {
	store    MetricsStore
	settings SettingsReader
	cache    MetricsCache // may be nil
}

func NewMetricsHandler(store MetricsStore, settings SettingsReader, cache MetricsCache) *MetricsHandler {
	return &MetricsHandler{
		store:    store,
		settings: settings,
		cache:    cache,
	}
}

// HandleSummary handles GET /metrics/summary?days=N
func (h *MetricsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "summary", func(calls []models.CallWithCost) interface{} {
		return metrics.Summarize(calls)
	})
}

// HandleTokenUsage handles GET /metrics/token-usage?days=N
func (h *MetricsHandler) HandleTokenUsage(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "token-usage", func(calls []models.CallWithCost) interface{} {
		return dataResponse{Data: metrics.DailyTokenUsage(calls)}
	})
}

// HandleLatency handles GET /metrics/latency?days=N
func (h *MetricsHandler) HandleLatency(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "latency", func(calls []models.CallWithCost) interface{} {
		return dataResponse{Data: metrics.LatencyDistribution(calls)}
	})
}

// HandleErrorRate handles GET /metrics/error-rate?days=N
func (h *MetricsHandler) HandleErrorRate(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "error-rate", func(calls []models.CallWithCost) interface{} {
		return dataResponse{Data: metrics.ErrorRateTrend(calls)}
	})
}

type costResponse struct {
	TotalCost  float64 `json:"total_cost"`
	PeriodDays int     `json:"period_days"`
}

// HandleCost handles GET /metrics/cost?days=N
func (h *MetricsHandler) HandleCost(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", metrics.DefaultDays, 1, metrics.MaxDays)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.serveDays(w, r, "cost", days, func(calls []models.CallWithCost) interface{} {
		return costResponse{TotalCost: metrics.TotalCost(calls), PeriodDays: days}
	})
}

// serve parses the window and renders one metric series, cached when allowed.
// Aggregation is always scoped to the requesting user's calls.
func (h *MetricsHandler) serve(w http.ResponseWriter, r *http.Request, series string, compute func([]models.CallWithCost) interface{}) {
	days, err := queryInt(r, "days", metrics.DefaultDays, 1, metrics.MaxDays)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.serveDays(w, r, series, days, compute)
}

func (h *MetricsHandler) serveDays(w http.ResponseWriter, r *http.Request, series string, days int, compute func([]models.CallWithCost) interface{}) {
	u := UserFromContext(r.Context())
	if u == nil {
		respondError(w, http.StatusUnauthorized, "authorization required")
		return
	}
	ctx := r.Context()

	var key string
	if h.cachingEnabled(ctx) {
		key = metricscache.Key(u.ID, h.cache.Version(ctx, u.ID), series, days, time.Now())
		var cached json.RawMessage
		if h.cache.Get(ctx, key, &cached) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
	}

	calls, err := h.store.ListCallsWithCostSince(ctx, u.ID, metrics.WindowStart(time.Now(), days))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to query call logs")
		return
	}

	payload := compute(calls)
	if key != "" {
		if err := h.cache.Set(ctx, key, payload); err != nil {
			log.Printf("failed to cache %s metrics for user %d: %v", series, u.ID, err)
		}
	}
	respondJSON(w, http.StatusOK, payload)
}

// cachingEnabled is true only when a cache is wired and the enable_caching
// system setting is on. Settings lookup failures disable caching for the
// request rather than failing it.
func (h *MetricsHandler) cachingEnabled(ctx context.Context) bool {
	if h.cache == nil || h.settings == nil {
		return false
	}
	s, err := h.settings.GetSettings(ctx)
	if err != nil {
		return false
	}
	return s.EnableCaching
}
