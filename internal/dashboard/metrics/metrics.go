// Package metrics computes windowed aggregates over a user's call logs. All
// functions are single-pass folds over rows already fetched from the store;
// day bucketing is on the UTC calendar day of each call.
package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/mrmushfiq/llm0-observability/internal/shared/models"
)

// Window bounds for the days query parameter.
const (
	DefaultDays = 30
	MaxDays     = 365
)

// Summary is the aggregate view of a time window
type Summary struct {
	TotalTokens    int     `json:"total_tokens"`
	TotalCost      float64 `json:"total_cost"`
	AverageLatency float64 `json:"average_latency"`
	ErrorRate      float64 `json:"error_rate"`
}

// TokenUsagePoint is one day's token and cost totals
type TokenUsagePoint struct {
	Date   string  `json:"date"`
	Tokens int     `json:"tokens"`
	Cost   float64 `json:"cost"`
}

// LatencyBucket is a fixed latency range with its call count
type LatencyBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// ErrorRatePoint is one day's error rate
type ErrorRatePoint struct {
	Date          string  `json:"date"`
	ErrorRate     float64 `json:"error_rate"`
	TotalRequests int     `json:"total_requests"`
}

// Latency bucket upper bounds in milliseconds; the last bucket is unbounded.
var latencyBounds = []struct {
	Upper float64
	Label string
}{
	{100, "0-100ms"},
	{200, "100-200ms"},
	{500, "200-500ms"},
	{1000, "500-1000ms"},
	{math.Inf(1), "1000ms+"},
}

// Summarize computes the window summary. average_latency is the mean over all
// calls in the window regardless of status; error_rate counts every
// non-success status (errors and timeouts) as a percentage of all calls. An
// empty window yields a zero-filled summary, with error_rate defined as 0.
func Summarize(calls []models.CallWithCost) Summary {
	if len(calls) == 0 {
		return Summary{}
	}

	var tokens int
	var costSum, latencySum float64
	var failures int
	for _, c := range calls {
		tokens += c.TotalTokens
		costSum += c.EstimatedCost
		latencySum += c.LatencyMs
		if c.Status != models.StatusSuccess {
			failures++
		}
	}

	return Summary{
		TotalTokens:    tokens,
		TotalCost:      round4(costSum),
		AverageLatency: round2(latencySum / float64(len(calls))),
		ErrorRate:      round2(float64(failures) / float64(len(calls)) * 100),
	}
}

// DailyTokenUsage groups calls by UTC day and sums tokens and cost per day.
// The series is ascending by date with one entry per day that has at least one
// call; days with no calls are omitted, not zero-filled.
func DailyTokenUsage(calls []models.CallWithCost) []TokenUsagePoint {
	type dayTotals struct {
		tokens int
		cost   float64
	}

	byDay := make(map[string]*dayTotals)
	for _, c := range calls {
		day := c.CreatedAt.UTC().Format("2006-01-02")
		t, ok := byDay[day]
		if !ok {
			t = &dayTotals{}
			byDay[day] = t
		}
		t.tokens += c.TotalTokens
		t.cost += c.EstimatedCost
	}

	points := make([]TokenUsagePoint, 0, len(byDay))
	for day, t := range byDay {
		points = append(points, TokenUsagePoint{
			Date:   day,
			Tokens: t.tokens,
			Cost:   round4(t.cost),
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// LatencyDistribution partitions latencies into the fixed buckets and returns
// only the non-empty ones, in ascending bound order.
func LatencyDistribution(calls []models.CallWithCost) []LatencyBucket {
	counts := make([]int, len(latencyBounds))
	for _, c := range calls {
		for i, b := range latencyBounds {
			if c.LatencyMs < b.Upper {
				counts[i]++
				break
			}
		}
	}

	out := make([]LatencyBucket, 0, len(latencyBounds))
	for i, b := range latencyBounds {
		if counts[i] > 0 {
			out = append(out, LatencyBucket{Range: b.Label, Count: counts[i]})
		}
	}
	return out
}

// ErrorRateTrend computes the per-UTC-day error rate, ascending by date.
func ErrorRateTrend(calls []models.CallWithCost) []ErrorRatePoint {
	type dayStats struct {
		total    int
		failures int
	}

	byDay := make(map[string]*dayStats)
	for _, c := range calls {
		day := c.CreatedAt.UTC().Format("2006-01-02")
		s, ok := byDay[day]
		if !ok {
			s = &dayStats{}
			byDay[day] = s
		}
		s.total++
		if c.Status != models.StatusSuccess {
			s.failures++
		}
	}

	points := make([]ErrorRatePoint, 0, len(byDay))
	for day, s := range byDay {
		points = append(points, ErrorRatePoint{
			Date:          day,
			ErrorRate:     round2(float64(s.failures) / float64(s.total) * 100),
			TotalRequests: s.total,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// TotalCost sums the estimated cost of all calls in the window.
func TotalCost(calls []models.CallWithCost) float64 {
	var sum float64
	for _, c := range calls {
		sum += c.EstimatedCost
	}
	return round4(sum)
}

// WindowStart returns the start of a trailing window of the given number of
// days, ending now.
func WindowStart(now time.Time, days int) time.Time {
	return now.UTC().AddDate(0, 0, -days)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
