package dashboard

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/adeleeuw3/NLVreport/internal/catalog"
	"github.com/adeleeuw3/NLVreport/internal/compare"
	"github.com/adeleeuw3/NLVreport/internal/series"
)

const barWidth = 24

// RenderText writes a terminal rendering of d.
func RenderText(w io.Writer, d *Dashboard) error {
	p := &printer{w: w}
	header := d.Title
	if d.RangeLabel != "" {
		header = fmt.Sprintf("%s (%s)", d.Title, d.RangeLabel)
	}
	p.printf("== %s ==\n", header)

	p.printf("\nOverview\n")
	for _, c := range d.Overview.Headlines {
		p.printf("  %-28s %s\n", c.Title, headlineSummary(c))
	}
	for _, c := range d.Overview.Trends {
		renderCard(p, c)
	}

	for _, sec := range d.Sections {
		p.printf("\n[%s] %s\n", sec.Category, sec.Color)
		for _, c := range sec.Cards {
			renderCard(p, c)
		}
	}
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func renderCard(p *printer, c Card) {
	p.printf("\n  %s  (%s)%s\n", c.Title, c.Visualization, comparisonSuffix(c.Comparison))
	if c.Empty {
		p.printf("    no data\n")
		return
	}
	switch c.Visualization {
	case catalog.Counter:
		p.printf("    %s\n", pointText(c.Series[0]))
	case catalog.Gauge, catalog.Progress:
		if c.Gauge != nil {
			p.printf("    %s %s%%\n", bar(*c.Gauge, 100), formatNumber(*c.Gauge))
		}
	case catalog.Sparkline:
		if c.Headline != nil {
			p.printf("    current %s%s\n", formatNumber(c.Headline.Current), percentBadge(c.Headline))
		}
		p.printf("    %s\n", spark(c.Series))
	case catalog.Leaderboard:
		rows := append([]series.Point(nil), c.Series...)
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Value > rows[j].Value })
		renderRows(p, rows, nil)
	default:
		renderRows(p, c.Series, c.Ghost)
	}
}

func renderRows(p *printer, points, ghost []series.Point) {
	top := 0.0
	nameWidth := 0
	for _, pt := range points {
		top = math.Max(top, math.Max(pt.Value, deref(pt.Value2)))
		nameWidth = max(nameWidth, len(pt.Name))
	}
	for i, pt := range points {
		line := fmt.Sprintf("    %-*s %s %s", nameWidth, pt.Name, bar(pt.Value, top), pointText(pt))
		if pt.Value2 != nil {
			line += fmt.Sprintf(" / %s", formatNumber(*pt.Value2))
		}
		if i < len(ghost) {
			line += fmt.Sprintf("  (prev %s)", formatNumber(ghost[i].Value))
		}
		p.printf("%s\n", line)
	}
}

func headlineSummary(c Card) string {
	if c.Empty {
		return "-"
	}
	var value string
	switch {
	case c.Headline != nil:
		value = formatNumber(c.Headline.Current)
	case len(c.Series) == 1:
		value = pointText(c.Series[0])
	default:
		value = formatNumber(lastNonZero(c.Series))
	}
	return value + comparisonSuffix(c.Comparison)
}

func comparisonSuffix(r *compare.Result) string {
	if r == nil {
		return ""
	}
	switch r.Trend {
	case compare.Up:
		return "  ▲ " + r.FormattedChange
	case compare.Down:
		return "  ▼ " + r.FormattedChange
	}
	return "  = " + r.FormattedChange
}

func percentBadge(h *series.Headline) string {
	if h.PercentChange == 0 {
		return ""
	}
	arrow := "▲"
	if !h.Up {
		arrow = "▼"
	}
	return fmt.Sprintf(" %s %.1f%%", arrow, math.Abs(h.PercentChange))
}

func bar(v, top float64) string {
	if top <= 0 || v <= 0 {
		return strings.Repeat("·", barWidth)
	}
	n := int(math.Round(v / top * barWidth))
	n = min(max(n, 1), barWidth)
	return strings.Repeat("█", n) + strings.Repeat("·", barWidth-n)
}

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

func spark(points []series.Point) string {
	if len(points) == 0 {
		return ""
	}
	lo, hi := points[0].Value, points[0].Value
	for _, p := range points {
		lo = math.Min(lo, p.Value)
		hi = math.Max(hi, p.Value)
	}
	var b strings.Builder
	for _, p := range points {
		idx := 0
		if hi > lo {
			idx = int((p.Value - lo) / (hi - lo) * float64(len(sparkTicks)-1))
		}
		b.WriteRune(sparkTicks[idx])
	}
	return b.String()
}

func pointText(p series.Point) string {
	if p.Text != "" && p.Value == 0 {
		return p.Text
	}
	return formatNumber(p.Value)
}

func lastNonZero(points []series.Point) float64 {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Value != 0 {
			return points[i].Value
		}
	}
	return 0
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
