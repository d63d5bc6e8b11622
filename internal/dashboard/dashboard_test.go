package dashboard

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adeleeuw3/NLVreport/internal/catalog"
	"github.com/adeleeuw3/NLVreport/internal/compare"
	"github.com/adeleeuw3/NLVreport/internal/record"
	"github.com/adeleeuw3/NLVreport/internal/stitch"
)

func newTestBuilder() *Builder {
	return NewBuilder(catalog.Default(), []string{"gen_csat", "mkt_coffee", "missing_kpi"}, []string{"sales_geo"})
}

func quarter() record.Merged {
	return record.Merged{
		Data: record.Data{
			"gen_csat":     {"data": "7,8,9"},
			"mkt_coffee":   {"count": "12"},
			"ppl_sat":      {"score": "140"},
			"comm_top10":   {"data": "Low: 5, High: 50, Mid: 20"},
			"sales_rfi":    {"current": "15", "trend": "10,12"},
			"sales_geo":    {"nl": "60", "be": "30"},
			"comm_hatsoff": {"winner": "Jane"},
		},
		Meta: &record.Meta{Year: 2025, Months: []string{"Jan", "Feb", "Mar"}, RangeLabel: "Jan - Mar 2025"},
	}
}

func TestBuildWithoutPrevious(t *testing.T) {
	d := newTestBuilder().Build("Q1", quarter(), nil)
	if d.RangeLabel != "Jan - Mar 2025" || d.Year != 2025 {
		t.Fatalf("header = %q %d", d.RangeLabel, d.Year)
	}
	if len(d.Overview.Headlines) != 2 {
		t.Fatalf("headlines = %d, want 2 (unknown ids skipped)", len(d.Overview.Headlines))
	}
	csat := d.Overview.Headlines[0]
	if len(csat.Series) != 3 || csat.Series[2].Name != "Mar" || csat.Series[2].Value != 9 {
		t.Fatalf("csat series = %+v", csat.Series)
	}
	if csat.Comparison != nil || csat.Ghost != nil {
		t.Fatalf("comparison without previous: %+v", csat)
	}

	if len(d.Sections) != len(catalog.Categories()) {
		t.Fatalf("sections = %d", len(d.Sections))
	}
	total := 0
	for _, sec := range d.Sections {
		if sec.Color != sec.Category.Color() {
			t.Fatalf("section %s color = %s", sec.Category, sec.Color)
		}
		total += len(sec.Cards)
	}
	if total != catalog.Default().Len() {
		t.Fatalf("cards = %d, want %d", total, catalog.Default().Len())
	}
}

func TestCardGaugeAndHeadline(t *testing.T) {
	b := newTestBuilder()
	gauge, ok := b.Card("ppl_sat", quarter(), nil)
	if !ok || gauge.Gauge == nil || *gauge.Gauge != 100 {
		t.Fatalf("gauge = %+v", gauge.Gauge)
	}
	spark, _ := b.Card("sales_rfi", quarter(), nil)
	if spark.Headline == nil || spark.Headline.Current != 15 || spark.Headline.Previous != 10 {
		t.Fatalf("headline = %+v", spark.Headline)
	}
	if _, ok := b.Card("nope", quarter(), nil); ok {
		t.Fatalf("expected unknown kpi to fail")
	}
}

func TestSparklineHeadlineAcrossStitchedMonths(t *testing.T) {
	cat := catalog.Default()
	reports := []*record.Report{
		{Month: "Jan", Year: 2025, Layout: record.LayoutMonth, Data: record.Data{"sales_rfi": {"current": "10", "trend": "10"}}},
		{Month: "Feb", Year: 2025, Layout: record.LayoutMonth, Data: record.Data{"sales_rfi": {"current": "15", "trend": "15"}}},
	}
	months := []string{"Jan", "Feb"}
	merged := record.Merged{
		Data: stitch.Stitch(cat, reports, months),
		Meta: &record.Meta{Year: 2025, Months: months, RangeLabel: "Jan - Feb 2025"},
	}
	card, ok := NewBuilder(cat, nil, nil).Card("sales_rfi", merged, nil)
	if !ok || card.Headline == nil {
		t.Fatalf("card = %+v", card)
	}
	h := card.Headline
	if h.Current != 15 || h.Previous != 10 || h.PercentChange != 50 || !h.Up {
		t.Fatalf("headline = %+v, want 15 vs 10 (+50%%)", *h)
	}
}

func TestBuildWithPrevious(t *testing.T) {
	prev := record.Merged{
		Data: record.Data{
			"gen_csat":   {"data": "5,5,6"},
			"mkt_coffee": {"count": "0"},
		},
		Meta: &record.Meta{Year: 2024, Months: []string{"Oct", "Nov", "Dec"}},
	}
	b := newTestBuilder()
	csat, _ := b.Card("gen_csat", quarter(), &prev)
	if csat.Comparison == nil || csat.Comparison.Trend != compare.Up || csat.Comparison.FormattedChange != "50.0%" {
		t.Fatalf("comparison = %+v", csat.Comparison)
	}
	if len(csat.Ghost) != 3 || csat.Ghost[0].Name != "Jan" || csat.Ghost[0].Value != 5 {
		t.Fatalf("ghost = %+v", csat.Ghost)
	}

	coffee, _ := b.Card("mkt_coffee", quarter(), &prev)
	if coffee.Ghost != nil {
		t.Fatalf("counter has ghost %+v", coffee.Ghost)
	}
	if coffee.Comparison == nil || coffee.Comparison.Trend != compare.Neutral {
		t.Fatalf("zero previous comparison = %+v", coffee.Comparison)
	}

	geo, _ := b.Card("sales_geo", quarter(), &prev)
	if geo.Comparison != nil {
		t.Fatalf("comparison for kpi absent from previous = %+v", geo.Comparison)
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderText(&buf, newTestBuilder().Build("Q1", quarter(), nil)); err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "== Q1 (Jan - Mar 2025) ==") {
		t.Fatalf("header missing:\n%s", out)
	}
	high := strings.Index(out, "High")
	mid := strings.Index(out, "Mid")
	low := strings.Index(out, "Low")
	if high < 0 || !(high < mid && mid < low) {
		t.Fatalf("leaderboard not sorted descending:\n%s", out)
	}
	if !strings.Contains(out, "Jane") {
		t.Fatalf("counter text missing:\n%s", out)
	}
	if !strings.Contains(out, "100%") {
		t.Fatalf("gauge not clamped:\n%s", out)
	}
}

func TestExportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "q1.json")
	cur := quarter()
	err := WriteExport(path, Export{
		ExportedAt: "2025-04-01T00:00:00Z",
		Dashboard:  newTestBuilder().Build("Q1", cur, nil),
		FormData:   cur,
	})
	if err != nil {
		t.Fatalf("WriteExport: %v", err)
	}
	got, err := LoadExport(path)
	if err != nil {
		t.Fatalf("LoadExport: %v", err)
	}
	if got.Dashboard.Title != "Q1" || got.FormData.Meta == nil || got.FormData.Meta.RangeLabel != "Jan - Mar 2025" {
		t.Fatalf("export = %+v", got)
	}
	if v := got.FormData.Data["gen_csat"]["data"]; v != "7,8,9" {
		t.Fatalf("form data = %q", v)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}

	if err := WriteExport(path, Export{Dashboard: &Dashboard{}}); err == nil {
		t.Fatalf("expected error without exported_at")
	}
	if err := os.WriteFile(path, []byte(`{"schema_version": 9, "dashboard": {}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadExport(path); err == nil {
		t.Fatalf("expected schema version error")
	}
}

func TestDiff(t *testing.T) {
	a := record.Data{"gen_csat": {"data": "7"}, "mkt_coffee": {"count": "12"}, "ppl_sat": {"score": " "}}
	b := record.Data{"gen_csat": {"data": "8"}, "mkt_coffee": {"count": "12"}}
	text, err := Diff("2025-Jan", a, "2025-Feb", b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	for _, want := range []string{"--- 2025-Jan", "+++ 2025-Feb", "-    data: \"7\"", "+    data: \"8\""} {
		if !strings.Contains(text, want) {
			t.Fatalf("diff missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "ppl_sat") {
		t.Fatalf("blank kpi rendered:\n%s", text)
	}

	same, err := Diff("a", a, "b", a)
	if err != nil || same != "" {
		t.Fatalf("identical diff = %q, %v", same, err)
	}
}
