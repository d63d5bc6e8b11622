package dashboard

import (
	"github.com/adeleeuw3/NLVreport/internal/catalog"
	"github.com/adeleeuw3/NLVreport/internal/compare"
	"github.com/adeleeuw3/NLVreport/internal/record"
	"github.com/adeleeuw3/NLVreport/internal/series"
)

// Card is one KPI widget, ready for a chart component.
type Card struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description,omitempty"`
	Category      catalog.Category      `json:"category"`
	Color         string                `json:"color"`
	Visualization catalog.Visualization `json:"visualization"`
	LineNames     []string              `json:"lineNames,omitempty"`
	Series        []series.Point        `json:"series"`
	Ghost         []series.Point        `json:"ghost,omitempty"`
	Comparison    *compare.Result       `json:"comparison,omitempty"`
	Headline      *series.Headline      `json:"headline,omitempty"`
	// Gauge is the clamped 0..100 reading of gauges and progress bars.
	Gauge *float64 `json:"gauge,omitempty"`
	Empty bool     `json:"empty"`
}

// Section is one category tab.
type Section struct {
	Category catalog.Category `json:"category"`
	Color    string           `json:"color"`
	Cards    []Card           `json:"cards"`
}

// Overview is the landing tab.
type Overview struct {
	Headlines []Card `json:"headlines"`
	Trends    []Card `json:"trends"`
}

// Dashboard is the full render model of a story or snapshot.
type Dashboard struct {
	Title      string    `json:"title"`
	RangeLabel string    `json:"rangeLabel,omitempty"`
	Year       int       `json:"year,omitempty"`
	Months     []string  `json:"months,omitempty"`
	ShowMoM    bool      `json:"showMoM"`
	Overview   Overview  `json:"overview"`
	Sections   []Section `json:"sections"`
}

// Builder assembles dashboards from merged records.
type Builder struct {
	Catalog   *catalog.Catalog
	Extractor *series.Extractor
	Headlines []string
	Trends    []string
}

// NewBuilder returns a Builder with the given overview selection.
func NewBuilder(cat *catalog.Catalog, headlines, trends []string) *Builder {
	return &Builder{
		Catalog:   cat,
		Extractor: series.NewExtractor(cat),
		Headlines: headlines,
		Trends:    trends,
	}
}

// Build renders current, with previous as the optional comparison period.
func (b *Builder) Build(title string, current record.Merged, previous *record.Merged) *Dashboard {
	d := &Dashboard{Title: title}
	var opts series.Options
	if m := current.Meta; m != nil {
		d.RangeLabel = m.RangeLabel
		d.Year = m.Year
		d.Months = m.Months
		d.ShowMoM = m.ShowMoM
		opts.Labels = m.Months
	}

	cards := make(map[string]Card, b.Catalog.Len())
	for _, def := range b.Catalog.All() {
		cards[def.ID] = b.card(def, current, previous, opts)
	}

	d.Overview.Headlines = pick(cards, b.Headlines)
	d.Overview.Trends = pick(cards, b.Trends)
	for _, cat := range catalog.Categories() {
		defs := b.Catalog.ByCategory(cat)
		if len(defs) == 0 {
			continue
		}
		sec := Section{Category: cat, Color: cat.Color(), Cards: make([]Card, 0, len(defs))}
		for _, def := range defs {
			sec.Cards = append(sec.Cards, cards[def.ID])
		}
		d.Sections = append(d.Sections, sec)
	}
	return d
}

// Card builds a single KPI card.
func (b *Builder) Card(kpiID string, current record.Merged, previous *record.Merged) (Card, bool) {
	def, ok := b.Catalog.Lookup(kpiID)
	if !ok {
		return Card{}, false
	}
	var opts series.Options
	if current.Meta != nil {
		opts.Labels = current.Meta.Months
	}
	return b.card(def, current, previous, opts), true
}

func (b *Builder) card(def catalog.Definition, current record.Merged, previous *record.Merged, opts series.Options) Card {
	c := Card{
		ID:            def.ID,
		Title:         def.Title,
		Description:   def.Description,
		Category:      def.Category,
		Color:         def.Category.Color(),
		Visualization: def.Visualization,
		LineNames:     def.LineNames,
		Series:        b.Extractor.Extract(def.ID, current.Data, opts),
	}
	c.Empty = isEmpty(c.Series)

	switch def.Visualization {
	case catalog.Sparkline:
		h := series.SparklineHeadline(current.Data[def.ID], c.Series)
		c.Headline = &h
	case catalog.Gauge, catalog.Progress:
		if len(c.Series) > 0 {
			g := series.Clamp(c.Series[0].Value, 0, 100)
			c.Gauge = &g
		}
	}

	if previous == nil {
		return c
	}
	if ghost := b.Extractor.Ghost(def.ID, previous.Data, opts); len(ghost) > 0 {
		c.Ghost = ghost
	}
	if res, ok := compare.CompareData(def.ID, current.Data, previous.Data, compare.ValueFor(def, b.Extractor)); ok {
		c.Comparison = &res
	}
	return c
}

func pick(cards map[string]Card, ids []string) []Card {
	out := make([]Card, 0, len(ids))
	for _, id := range ids {
		if c, ok := cards[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func isEmpty(points []series.Point) bool {
	for _, p := range points {
		if p.Value != 0 || p.Text != "" || (p.Value2 != nil && *p.Value2 != 0) {
			return false
		}
	}
	return true
}
