package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed kpis.yml
var defaultCatalogYAML []byte

// Catalog is the ordered, read-only set of KPI definitions.
type Catalog struct {
	defs  []Definition
	index map[string]int
}

// ValidationError captures a single field-specific catalog issue.
type ValidationError struct {
	File    string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
}

// ValidationErrors aggregates multiple validation problems.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

type rawCatalog struct {
	KPIs []Definition `yaml:"kpis"`
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the built-in catalog. The embedded document is validated by
// tests, so a parse failure here is a programming error.
func Default() *Catalog {
	defaultOnce.Do(func() {
		cat, err := Parse(defaultCatalogYAML, "kpis.yml")
		if err != nil {
			panic(fmt.Sprintf("built-in KPI catalog: %v", err))
		}
		defaultCat = cat
	})
	return defaultCat
}

// LoadFile reads and validates a catalog document from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, path)
}

// Parse unmarshals and validates a YAML catalog document.
func Parse(data []byte, source string) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, ValidationErrors{{
			File:    source,
			Field:   "yaml",
			Message: err.Error(),
		}}
	}

	var errs ValidationErrors
	if len(raw.KPIs) == 0 {
		errs = append(errs, ValidationError{File: source, Field: "kpis", Message: "at least one KPI is required"})
	}
	cat := &Catalog{index: make(map[string]int, len(raw.KPIs))}
	for i, def := range raw.KPIs {
		prefix := fmt.Sprintf("kpis[%d]", i)
		def.ID = strings.TrimSpace(def.ID)
		if def.ID == "" {
			errs = append(errs, ValidationError{File: source, Field: prefix + ".id", Message: "is required"})
			continue
		}
		prefix = def.ID
		if _, dup := cat.index[def.ID]; dup {
			errs = append(errs, ValidationError{File: source, Field: prefix, Message: "duplicate id"})
			continue
		}
		if strings.TrimSpace(def.Title) == "" {
			errs = append(errs, ValidationError{File: source, Field: prefix + ".title", Message: "is required"})
		}
		if !def.Category.valid() {
			errs = append(errs, ValidationError{File: source, Field: prefix + ".category", Message: fmt.Sprintf("unknown category %q", def.Category)})
		}
		if !visualizations[def.Visualization] {
			errs = append(errs, ValidationError{File: source, Field: prefix + ".visualization", Message: fmt.Sprintf("unknown visualization %q", def.Visualization)})
		}
		if len(def.Inputs) == 0 {
			errs = append(errs, ValidationError{File: source, Field: prefix + ".inputs", Message: "at least one input is required"})
		}
		seen := make(map[string]bool, len(def.Inputs))
		for j, in := range def.Inputs {
			field := fmt.Sprintf("%s.inputs[%d]", prefix, j)
			if strings.TrimSpace(in.ID) == "" {
				errs = append(errs, ValidationError{File: source, Field: field + ".id", Message: "is required"})
				continue
			}
			if seen[in.ID] {
				errs = append(errs, ValidationError{File: source, Field: field + ".id", Message: fmt.Sprintf("duplicate input %q", in.ID)})
			}
			seen[in.ID] = true
			switch in.Type {
			case InputNumber, InputText, InputDate, InputArray:
			default:
				errs = append(errs, ValidationError{File: source, Field: field + ".type", Message: fmt.Sprintf("unknown input type %q", in.Type)})
			}
		}
		cat.index[def.ID] = len(cat.defs)
		cat.defs = append(cat.defs, def)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return cat, nil
}

// Lookup returns the definition for id.
func (c *Catalog) Lookup(id string) (Definition, bool) {
	if c == nil {
		return Definition{}, false
	}
	idx, ok := c.index[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[idx], true
}

// All returns every definition in catalog order.
func (c *Catalog) All() []Definition {
	if c == nil {
		return nil
	}
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// ByCategory returns the definitions in one category, in catalog order.
func (c *Catalog) ByCategory(cat Category) []Definition {
	if c == nil {
		return nil
	}
	var out []Definition
	for _, def := range c.defs {
		if def.Category == cat {
			out = append(out, def)
		}
	}
	return out
}

// Len reports the number of definitions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.defs)
}
