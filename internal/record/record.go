package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/adeleeuw3/NLVreport/internal/catalog"
	"github.com/adeleeuw3/NLVreport/internal/period"
)

// Fields maps an input id to its raw stored value.
type Fields map[string]string

// UnmarshalJSON accepts both strings and numbers, keeping numbers as text.
func (f *Fields) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out := make(Fields, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			if val {
				out[k] = "true"
			} else {
				out[k] = ""
			}
		default:
			return fmt.Errorf("field %s: unsupported value %T", k, v)
		}
	}
	*f = out
	return nil
}

// Get returns the trimmed value of id.
func (f Fields) Get(id string) string {
	return strings.TrimSpace(f[id])
}

// Data maps a KPI id to its fields.
type Data map[string]Fields

// Has reports whether the record carries an entry for kpiID.
func (d Data) Has(kpiID string) bool {
	_, ok := d[kpiID]
	return ok
}

// Clone returns a deep copy.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for kpi, fields := range d {
		cp := make(Fields, len(fields))
		for k, v := range fields {
			cp[k] = v
		}
		out[kpi] = cp
	}
	return out
}

// Set assigns one value, creating the KPI entry as needed.
func (d Data) Set(kpiID, inputID, value string) {
	fields, ok := d[kpiID]
	if !ok {
		fields = Fields{}
		d[kpiID] = fields
	}
	fields[inputID] = value
}

// KPIIDs returns the KPI ids in sorted order.
func (d Data) KPIIDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Layout records how array-typed inputs are stored in a report.
type Layout string

const (
	// LayoutMonth stores the scalar for the report's own month.
	LayoutMonth Layout = "month"
	// LayoutYear stores twelve comma-joined slots, one per calendar month.
	LayoutYear Layout = "year"
)

// Report is one user's figures for one calendar month.
type Report struct {
	ID        string    `json:"id"`
	Month     string    `json:"month"`
	Year      int       `json:"year"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Layout    Layout    `json:"layout"`
	Data      Data      `json:"data"`
	UserID    string    `json:"userId"`
}

// InferLayout guesses the layout of an untagged legacy record: any
// array-typed value containing a comma marks the record as year-shaped.
func InferLayout(cat *catalog.Catalog, data Data) Layout {
	for kpiID, fields := range data {
		def, ok := cat.Lookup(kpiID)
		if !ok {
			continue
		}
		for _, in := range def.Inputs {
			if in.IsArray() && strings.Contains(fields[in.ID], ",") {
				return LayoutYear
			}
		}
	}
	return LayoutMonth
}

// SlotValue returns the token of a comma-joined value at idx. Values without
// a comma are returned whole.
func SlotValue(raw string, idx int) string {
	if !strings.Contains(raw, ",") {
		return strings.TrimSpace(raw)
	}
	parts := strings.Split(raw, ",")
	if idx < 0 || idx >= len(parts) {
		return ""
	}
	return strings.TrimSpace(parts[idx])
}

// MonthScalar returns the value an array-typed input holds for the report's
// own month, whichever layout it was stored in.
func (r *Report) MonthScalar(kpiID, inputID string) string {
	if r == nil {
		return ""
	}
	raw := r.Data[kpiID][inputID]
	if r.Layout == LayoutMonth {
		return strings.TrimSpace(raw)
	}
	return SlotValue(raw, period.Index(r.Month))
}

// NormalizeToMonth rewrites every array-typed input as the scalar for
// month. Scalar inputs and unknown KPIs are copied unchanged.
func NormalizeToMonth(cat *catalog.Catalog, data Data, month string) Data {
	idx := period.Index(month)
	out := data.Clone()
	if out == nil {
		out = Data{}
	}
	for kpiID, fields := range out {
		def, ok := cat.Lookup(kpiID)
		if !ok {
			continue
		}
		for _, in := range def.Inputs {
			if !in.IsArray() {
				continue
			}
			if raw, ok := fields[in.ID]; ok {
				fields[in.ID] = SlotValue(raw, idx)
			}
		}
	}
	return out
}

// Meta describes the range a merged record was stitched from.
type Meta struct {
	Year       int      `json:"year" yaml:"year"`
	Months     []string `json:"months" yaml:"months"`
	RangeLabel string   `json:"rangeLabel" yaml:"range_label"`
	ShowMoM    bool     `json:"showMoM" yaml:"show_mom"`
}

// MetaKey is the reserved key carrying range metadata inside form data.
const MetaKey = "_meta"

// Merged is a stitched record plus optional range metadata. It serializes as
// one object whose keys are KPI ids, with the metadata under MetaKey.
type Merged struct {
	Data Data
	Meta *Meta
}

func (m Merged) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Data)+1)
	for k, v := range m.Data {
		out[k] = v
	}
	if m.Meta != nil {
		out[MetaKey] = m.Meta
	}
	return json.Marshal(out)
}

func (m *Merged) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	m.Data = make(Data, len(raw))
	m.Meta = nil
	for k, v := range raw {
		if k == MetaKey {
			var meta Meta
			if err := json.Unmarshal(v, &meta); err != nil {
				return fmt.Errorf("decode %s: %w", MetaKey, err)
			}
			m.Meta = &meta
			continue
		}
		var fields Fields
		if err := json.Unmarshal(v, &fields); err != nil {
			return fmt.Errorf("decode %s: %w", k, err)
		}
		m.Data[k] = fields
	}
	return nil
}

// Dashboard is a saved, named, fully-merged dashboard state.
type Dashboard struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
	FormData  Merged    `json:"formData"`
}
