package series

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/adeleeuw3/NLVreport/internal/catalog"
	"github.com/adeleeuw3/NLVreport/internal/record"
)

// rule shapes one KPI's fields. A nil result means "no usable data".
type rule func(def catalog.Definition, f record.Fields, ghost bool, opts Options) []Point

var rules = map[catalog.Visualization]rule{
	catalog.AreaChart:   timeSeries,
	catalog.BarChart:    timeSeries,
	catalog.LineChart:   timeSeries,
	catalog.Sparkline:   sparkline,
	catalog.Donut:       namedParts,
	catalog.Map:         namedParts,
	catalog.GroupedBar:  groupedTotal,
	catalog.Leaderboard: leaderboard,
	catalog.Radar:       radar,
	catalog.Gauge:       score,
	catalog.Progress:    score,
	catalog.Counter:     counter,
	catalog.Kanban:      kanban,
	catalog.Grid:        grid,
}

// overrides bypass the per-visualization rule for specific KPIs.
var overrides = map[string]rule{
	"mkt_linkedin_combined": dualLine,
	"comm_engagement":       engagementPairs,
}

var ghostable = map[catalog.Visualization]bool{
	catalog.AreaChart:  true,
	catalog.BarChart:   true,
	catalog.LineChart:  true,
	catalog.Sparkline:  true,
	catalog.GroupedBar: true,
	catalog.Donut:      true,
	catalog.Map:        true,
}

// SupportsGhost reports whether a visualization draws a previous-period
// series behind the current one.
func SupportsGhost(v catalog.Visualization) bool {
	return ghostable[v]
}

// Extractor turns stored KPI fields into chart series.
type Extractor struct {
	Catalog *catalog.Catalog
	// OnError receives recovered extraction failures. Nil logs them.
	OnError func(kpiID string, err error)
}

// NewExtractor returns an Extractor over cat.
func NewExtractor(cat *catalog.Catalog) *Extractor {
	return &Extractor{Catalog: cat}
}

// Extract returns the current-period series for kpiID. The result is never
// nil; unknown KPIs yield an empty series.
func (e *Extractor) Extract(kpiID string, data record.Data, opts Options) []Point {
	return e.extract(kpiID, data, false, opts)
}

// Ghost returns the previous-period series for kpiID. It is empty when the
// record carries nothing usable or the visualization has no ghost layer.
func (e *Extractor) Ghost(kpiID string, data record.Data, opts Options) []Point {
	def, ok := e.Catalog.Lookup(kpiID)
	if !ok || !SupportsGhost(def.Visualization) {
		return []Point{}
	}
	return e.extract(kpiID, data, true, opts)
}

func (e *Extractor) extract(kpiID string, data record.Data, ghost bool, opts Options) (points []Point) {
	points = []Point{}
	def, ok := e.Catalog.Lookup(kpiID)
	if !ok {
		return points
	}
	r, ok := overrides[kpiID]
	if !ok {
		r, ok = rules[def.Visualization]
	}
	if !ok {
		return points
	}
	defer func() {
		if rec := recover(); rec != nil {
			e.report(kpiID, fmt.Errorf("extract %s: %v", kpiID, rec))
			points = []Point{}
		}
	}()
	if out := r(def, data[kpiID], ghost, opts); out != nil {
		points = out
	}
	return points
}

func (e *Extractor) report(kpiID string, err error) {
	if e.OnError != nil {
		e.OnError(kpiID, err)
		return
	}
	log.Printf("series: %v", err)
}

func timeSeries(_ catalog.Definition, f record.Fields, ghost bool, opts Options) []Point {
	labels := splitLabels(first(f, "months", "labels"))
	if len(labels) == 0 {
		labels = opts.labels()
	}
	values := SplitNumbers(first(f, "data", "values"))
	if ghost && allZero(values) {
		return nil
	}
	out := make([]Point, len(labels))
	for i, label := range labels {
		var v float64
		if i < len(values) {
			v = values[i]
		}
		out[i] = Point{Name: label, Value: v}
	}
	return out
}

func dualLine(_ catalog.Definition, f record.Fields, ghost bool, opts Options) []Point {
	posts := SplitNumbers(f["posts"])
	engage := SplitNumbers(f["engage"])
	n := max(len(posts), len(engage))
	if n == 0 || (ghost && allZero(posts, engage)) {
		return nil
	}
	labels := opts.labels()
	out := make([]Point, n)
	for i := range n {
		name := strconv.Itoa(i + 1)
		if i < len(labels) {
			name = labels[i]
		}
		var p, e float64
		if i < len(posts) {
			p = posts[i]
		}
		if i < len(engage) {
			e = engage[i]
		}
		out[i] = Point{Name: name, Value: p, Value2: ptr(e)}
	}
	return out
}

func sparkline(_ catalog.Definition, f record.Fields, ghost bool, _ Options) []Point {
	trend := SplitNumbers(f["trend"])
	if ghost && allZero(trend) {
		return nil
	}
	out := make([]Point, len(trend))
	for i, v := range trend {
		out[i] = Point{Name: strconv.Itoa(i), Value: v}
	}
	return out
}

type namedField struct {
	ID   string
	Name string
}

var partFields = []namedField{
	{"wins", "Wins"},
	{"losses", "Losses"},
	{"nl", "NL"},
	{"be", "BE"},
	{"de", "DE"},
	{"in", "Within SLA"},
	{"out", "Outside SLA"},
}

// namedParts keeps only the allow-listed fields that are present.
func namedParts(_ catalog.Definition, f record.Fields, ghost bool, _ Options) []Point {
	var out []Point
	zero := true
	for _, nf := range partFields {
		raw := f.Get(nf.ID)
		if raw == "" {
			continue
		}
		v := ParseNumber(raw)
		if v != 0 {
			zero = false
		}
		out = append(out, Point{Name: nf.Name, Value: v})
	}
	if ghost && zero {
		return nil
	}
	return out
}

func groupedTotal(_ catalog.Definition, f record.Fields, ghost bool, _ Options) []Point {
	primary := ParseNumber(first(f, "events", "upsell"))
	secondary := ParseNumber(first(f, "people", "resell"))
	if ghost && primary == 0 && secondary == 0 {
		return nil
	}
	return []Point{{Name: "Total", Value: primary, Value2: ptr(secondary)}}
}

var engagementBuckets = []struct {
	Name      string
	Primary   string
	Secondary string
}{
	{"MOOCs", "mooc_c", "mooc_p"},
	{"Webinars", "web_c", "web_p"},
	{"Comm.", "com_c", "com_p"},
	{"Lectures", "guest_c", "guest_p"},
}

func engagementPairs(_ catalog.Definition, f record.Fields, ghost bool, _ Options) []Point {
	out := make([]Point, 0, len(engagementBuckets))
	zero := true
	for _, b := range engagementBuckets {
		p := ParseNumber(f[b.Primary])
		s := ParseNumber(f[b.Secondary])
		if p != 0 || s != 0 {
			zero = false
		}
		out = append(out, Point{Name: b.Name, Value: p, Value2: ptr(s)})
	}
	if ghost && zero {
		return nil
	}
	return out
}

// leaderboard parses "Name: Value, Name: Value". Order is preserved.
func leaderboard(_ catalog.Definition, f record.Fields, _ bool, _ Options) []Point {
	var out []Point
	for _, entry := range strings.Split(f["data"], ",") {
		parts := strings.Split(entry, ":")
		name := strings.TrimSpace(parts[0])
		if name == "" {
			continue
		}
		p := Point{Name: name}
		if len(parts) > 1 {
			raw := strings.TrimSpace(parts[1])
			p.Value = ParseNumber(raw)
			if _, err := strconv.ParseFloat(raw, 64); err != nil && raw != "" {
				p.Text = raw
			}
		}
		out = append(out, p)
	}
	return out
}

var radarDimensions = map[string][]namedField{
	"comm_demos": {{"design", "Design"}, {"support", "Support"}, {"data", "Data"}, {"perform", "Perform"}},
}

func radar(def catalog.Definition, f record.Fields, _ bool, _ Options) []Point {
	dims, ok := radarDimensions[def.ID]
	if !ok {
		for _, in := range def.Inputs {
			dims = append(dims, namedField{ID: in.ID, Name: in.Label})
		}
	}
	out := make([]Point, len(dims))
	for i, d := range dims {
		out[i] = Point{Name: d.Name, Value: ParseNumber(f[d.ID])}
	}
	return out
}

// score feeds gauges and progress bars. Clamping happens at render time.
func score(_ catalog.Definition, f record.Fields, _ bool, _ Options) []Point {
	return []Point{{Name: "Score", Value: ParseNumber(first(f, "score", "progress"))}}
}

func counter(_ catalog.Definition, f record.Fields, _ bool, _ Options) []Point {
	raw := first(f, "count", "winner")
	return []Point{{Name: "Value", Value: ParseNumber(raw), Text: raw}}
}

func kanban(_ catalog.Definition, f record.Fields, _ bool, _ Options) []Point {
	return []Point{
		{Name: "Start", Value: ParseNumber(f["start"])},
		{Name: "In Progress", Value: ParseNumber(f["in_progress"])},
		{Name: "Done", Value: ParseNumber(f["done"])},
	}
}

func grid(def catalog.Definition, f record.Fields, _ bool, _ Options) []Point {
	out := make([]Point, 0, len(def.Inputs))
	for _, in := range def.Inputs {
		raw := f.Get(in.ID)
		out = append(out, Point{Name: in.Label, Value: ParseNumber(raw), Text: raw})
	}
	return out
}

// SparklineHeadline derives the headline badge for a sparkline. The current
// value is the explicit current field, or else the last non-zero trend entry.
// It is compared against the non-zero entry before that one, which in a
// stitched record is the prior month.
func SparklineHeadline(f record.Fields, points []Point) Headline {
	last := lastNonZero(points, len(points))
	var h Headline
	switch cur := f.Get("current"); {
	case cur != "":
		h.Current = ParseNumber(cur)
	case last >= 0:
		h.Current = points[last].Value
	}
	h.Previous = h.Current
	if prior := lastNonZero(points, last); prior >= 0 {
		h.Previous = points[prior].Value
	}
	diff := h.Current - h.Previous
	if h.Previous != 0 {
		h.PercentChange = diff / h.Previous * 100
	}
	h.Up = diff >= 0
	return h
}

// lastNonZero returns the index of the last non-zero point before end, or -1.
func lastNonZero(points []Point, end int) int {
	for i := end - 1; i >= 0; i-- {
		if points[i].Value != 0 {
			return i
		}
	}
	return -1
}
