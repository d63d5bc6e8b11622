package series

import (
	"math"
	"strconv"
	"strings"

	"github.com/adeleeuw3/NLVreport/internal/period"
	"github.com/adeleeuw3/NLVreport/internal/record"
)

// Point is one chart-ready datum. Value2 is set only for dual-series charts.
// Text carries the raw token when it is not numeric (winner names, statuses).
type Point struct {
	Name   string   `json:"name"`
	Value  float64  `json:"value"`
	Value2 *float64 `json:"value2,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Options tune a single extraction.
type Options struct {
	// Labels is the default axis header for time series. Empty means Jan..Dec.
	Labels []string
}

func (o Options) labels() []string {
	if len(o.Labels) > 0 {
		return o.Labels
	}
	return period.Months
}

// Headline is the badge shown above a sparkline.
type Headline struct {
	Current       float64 `json:"current"`
	Previous      float64 `json:"previous"`
	PercentChange float64 `json:"percentChange"`
	Up            bool    `json:"up"`
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Total sums the primary values of points.
func Total(points []Point) float64 {
	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	return sum
}

// ParseNumber converts a raw token to a float. Blank and non-numeric tokens
// yield 0.
func ParseNumber(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// SplitNumbers splits a comma-joined value. Blank tokens become 0 so that
// positions stay aligned with the month header. An empty value has no tokens.
func SplitNumbers(raw string) []float64 {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		out[i] = ParseNumber(p)
	}
	return out
}

func splitLabels(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func allZero(values ...[]float64) bool {
	for _, vs := range values {
		for _, v := range vs {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

// first returns the first non-blank value among keys.
func first(f record.Fields, keys ...string) string {
	for _, k := range keys {
		if v := f.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func ptr(v float64) *float64 {
	return &v
}
