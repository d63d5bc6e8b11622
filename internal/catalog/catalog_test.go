package catalog

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultCatalogParses(t *testing.T) {
	cat, err := Parse(defaultCatalogYAML, "kpis.yml")
	if err != nil {
		t.Fatalf("parse built-in catalog: %v", err)
	}
	if got, want := cat.Len(), 37; got != want {
		t.Fatalf("catalog size = %d, want %d", got, want)
	}

	total := 0
	for _, c := range Categories() {
		defs := cat.ByCategory(c)
		if len(defs) == 0 {
			t.Fatalf("category %s has no KPIs", c)
		}
		total += len(defs)
	}
	if total != cat.Len() {
		t.Fatalf("categories cover %d KPIs, want %d", total, cat.Len())
	}
}

func TestLookup(t *testing.T) {
	def, ok := Default().Lookup("mkt_linkedin_combined")
	if !ok {
		t.Fatalf("mkt_linkedin_combined missing")
	}
	if def.Visualization != LineChart {
		t.Fatalf("visualization = %s, want LineChart", def.Visualization)
	}
	if len(def.LineNames) != 2 || def.LineNames[0] != "Posts" {
		t.Fatalf("line names = %v", def.LineNames)
	}
	in, ok := def.Input("engage")
	if !ok || !in.IsArray() {
		t.Fatalf("engage input = %+v, %v", in, ok)
	}

	demos, ok := Default().Lookup("comm_demos")
	if !ok || demos.Category != CategorySales {
		t.Fatalf("comm_demos = %+v, %v", demos, ok)
	}
	if _, ok := Default().Lookup("nope"); ok {
		t.Fatalf("unexpected lookup hit")
	}
}

func TestParseRejectsInvalidDefinitions(t *testing.T) {
	doc := []byte(`kpis:
  - id: a
    title: A
    category: Finance
    visualization: Pie
    inputs:
      - {id: x, type: matrix}
  - id: a
    title: Dup
    category: General
    visualization: Counter
    inputs:
      - {id: count, type: number}
`)
	_, err := Parse(doc, "custom.yml")
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"unknown category", "unknown visualization", "unknown input type", "duplicate id"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q missing %q", msg, want)
		}
	}
}

func TestCategoryColor(t *testing.T) {
	if got, want := CategoryGeneral.Color(), "#FF914D"; got != want {
		t.Fatalf("General color = %s, want %s", got, want)
	}
}
