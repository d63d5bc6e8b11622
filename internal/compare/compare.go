package compare

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/adeleeuw3/NLVreport/internal/catalog"
	"github.com/adeleeuw3/NLVreport/internal/record"
	"github.com/adeleeuw3/NLVreport/internal/series"
)

// Direction classifies a period-over-period change.
type Direction string

const (
	Up      Direction = "up"
	Down    Direction = "down"
	Neutral Direction = "neutral"
)

// Result is a derived comparison between two periods. PercentChange is
// never negative; Trend carries the sign.
type Result struct {
	Trend           Direction `json:"trend"`
	PercentChange   float64   `json:"percentChange"`
	FormattedChange string    `json:"formattedChange"`
}

var neutral = Result{Trend: Neutral, PercentChange: 0, FormattedChange: "0%"}

// Trend compares current against previous. A zero previous value yields a
// neutral result, so growth from zero is not reported.
func Trend(current, previous float64) Result {
	if previous == 0 || math.IsNaN(previous) || math.IsNaN(current) {
		return neutral
	}
	pct := decimal.NewFromFloat(current).
		Sub(decimal.NewFromFloat(previous)).
		Div(decimal.NewFromFloat(previous)).
		Mul(decimal.NewFromInt(100)).
		Abs()
	res := Result{Trend: Neutral, FormattedChange: pct.StringFixed(1) + "%"}
	res.PercentChange, _ = pct.Float64()
	switch {
	case current > previous:
		res.Trend = Up
	case current < previous:
		res.Trend = Down
	}
	return res
}

// ValueFunc picks the comparable scalar out of one KPI's fields.
type ValueFunc func(fields record.Fields) float64

// CompareData compares kpiID across two records. ok is false when either
// record lacks the KPI entirely, which is distinct from a neutral result.
func CompareData(kpiID string, current, previous record.Data, extract ValueFunc) (Result, bool) {
	if !current.Has(kpiID) || !previous.Has(kpiID) {
		return Result{}, false
	}
	return Trend(extract(current[kpiID]), extract(previous[kpiID])), true
}

// ValueFor returns the comparable-scalar strategy for a KPI. Time series
// compare their last non-empty slot, single-value widgets their named field,
// and everything else the total of its extracted series.
func ValueFor(def catalog.Definition, ex *series.Extractor) ValueFunc {
	switch def.Visualization {
	case catalog.AreaChart, catalog.BarChart, catalog.LineChart:
		field := "data"
		if _, ok := def.Input(field); !ok && len(def.Inputs) > 0 {
			field = def.Inputs[0].ID
		}
		return func(f record.Fields) float64 {
			return lastNonEmpty(f[field])
		}
	case catalog.Sparkline:
		return func(f record.Fields) float64 {
			if cur := f.Get("current"); cur != "" {
				return series.ParseNumber(cur)
			}
			return lastNonEmpty(f["trend"])
		}
	case catalog.Gauge, catalog.Progress:
		return func(f record.Fields) float64 {
			if v := f.Get("score"); v != "" {
				return series.ParseNumber(v)
			}
			return series.ParseNumber(f.Get("progress"))
		}
	case catalog.Counter:
		return func(f record.Fields) float64 {
			return series.ParseNumber(f.Get("count"))
		}
	}
	return func(f record.Fields) float64 {
		return series.Total(ex.Extract(def.ID, record.Data{def.ID: f}, series.Options{}))
	}
}

func lastNonEmpty(raw string) float64 {
	parts := strings.Split(raw, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" {
			return series.ParseNumber(p)
		}
	}
	return 0
}
