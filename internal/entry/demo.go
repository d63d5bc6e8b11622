package entry

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/adeleeuw3/NLVreport/internal/catalog"
	"github.com/adeleeuw3/NLVreport/internal/period"
	"github.com/adeleeuw3/NLVreport/internal/record"
)

// DemoMode selects how much of the year demo data fills.
type DemoMode string

const (
	// DemoFull fills all twelve slots of every array input.
	DemoFull DemoMode = "full"
	// DemoMonth fills only the slot of the current month.
	DemoMonth DemoMode = "month"
)

// ParseDemoMode validates a mode name.
func ParseDemoMode(s string) (DemoMode, error) {
	switch DemoMode(strings.ToLower(strings.TrimSpace(s))) {
	case DemoFull:
		return DemoFull, nil
	case DemoMonth:
		return DemoMonth, nil
	}
	return "", fmt.Errorf("unknown demo mode %q (want full or month)", s)
}

// Demo generates plausible sample data for every KPI in cat. Array inputs
// use the twelve-slot layout; month places the single-month value.
func Demo(cat *catalog.Catalog, mode DemoMode, month string, rnd *rand.Rand) record.Data {
	idx := period.Index(month)
	if idx < 0 {
		idx = 0
	}
	out := record.Data{}
	for _, def := range cat.All() {
		for _, in := range def.Inputs {
			base := rnd.Intn(50) + 10
			out.Set(def.ID, in.ID, demoValue(def, in, mode, idx, base, rnd))
		}
	}
	return out
}

func demoValue(def catalog.Definition, in catalog.Input, mode DemoMode, idx, base int, rnd *rand.Rand) string {
	switch {
	case in.IsArray():
		slots := make([]string, len(period.Months))
		if mode == DemoFull {
			for i := range slots {
				slots[i] = strconv.Itoa(base + rnd.Intn(20) - 10)
			}
			return strings.Join(slots, ", ")
		}
		slots[idx] = strconv.Itoa(base + 5)
		return strings.Join(slots, ",")
	case strings.Contains(in.ID, "percent") || strings.Contains(in.Label, "%"):
		return strconv.Itoa(rnd.Intn(40) + 60)
	case def.Visualization == catalog.Leaderboard:
		names := []string{"Alpha", "Bravo", "Charlie", "Delta"}
		pairs := make([]string, len(names))
		for i, n := range names {
			pairs[i] = fmt.Sprintf("%s: %d", n, (len(names)-i)*base*10)
		}
		return strings.Join(pairs, ", ")
	case in.Type == catalog.InputText:
		return fmt.Sprintf("Demo %d", base)
	}
	return strconv.Itoa(base * 2)
}
