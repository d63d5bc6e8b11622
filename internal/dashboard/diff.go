package dashboard

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"

	"github.com/adeleeuw3/NLVreport/internal/record"
)

// Diff returns a unified diff between two records rendered as YAML. Blank
// inputs and empty KPIs are left out so only entered values are compared.
func Diff(fromName string, from record.Data, toName string, to record.Data) (string, error) {
	a, err := canonicalYAML(from)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", fromName, err)
	}
	b, err := canonicalYAML(to)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", toName, err)
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff records: %w", err)
	}
	return text, nil
}

func canonicalYAML(data record.Data) (string, error) {
	clean := make(map[string]map[string]string, len(data))
	for kpi, fields := range data {
		kept := make(map[string]string, len(fields))
		for id, v := range fields {
			if v = strings.TrimSpace(v); v != "" {
				kept[id] = v
			}
		}
		if len(kept) > 0 {
			clean[kpi] = kept
		}
	}
	if len(clean) == 0 {
		return "", nil
	}
	// yaml.v3 emits map keys in sorted order.
	out, err := yaml.Marshal(clean)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
