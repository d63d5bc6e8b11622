package stitch

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/adeleeuw3/NLVreport/internal/catalog"
	"github.com/adeleeuw3/NLVreport/internal/period"
	"github.com/adeleeuw3/NLVreport/internal/record"
)

// Stitch merges monthly reports into one record over months. reports may be
// in any order and may contain nil entries; each report is matched to a
// label by its Month. Array inputs become a comma-joined value with one token
// per label. Scalar inputs take the most recent non-empty value.
func Stitch(cat *catalog.Catalog, reports []*record.Report, months []string) record.Data {
	byMonth := make(map[string]*record.Report, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		if _, dup := byMonth[r.Month]; !dup {
			byMonth[r.Month] = r
		}
	}

	out := make(record.Data, cat.Len())
	for _, def := range cat.All() {
		fields := make(record.Fields, len(def.Inputs))
		for _, in := range def.Inputs {
			if in.IsArray() {
				tokens := make([]string, len(months))
				for i, m := range months {
					tokens[i] = byMonth[m].MonthScalar(def.ID, in.ID)
				}
				fields[in.ID] = strings.Join(tokens, ",")
				continue
			}
			fields[in.ID] = latestScalar(byMonth, months, def.ID, in.ID)
		}
		out[def.ID] = fields
	}
	return out
}

func latestScalar(byMonth map[string]*record.Report, months []string, kpiID, inputID string) string {
	for i := len(months) - 1; i >= 0; i-- {
		r := byMonth[months[i]]
		if r == nil {
			continue
		}
		if v := strings.TrimSpace(r.Data[kpiID][inputID]); v != "" {
			return v
		}
	}
	return ""
}

// ReportGetter loads a single monthly report. A missing report is (nil, nil).
type ReportGetter interface {
	GetReport(ctx context.Context, userID, month string, year int) (*record.Report, error)
}

// LoadRange reads one report per month concurrently and returns them aligned
// with months. It waits for every read before returning.
func LoadRange(ctx context.Context, getter ReportGetter, userID string, months []period.MonthYear) ([]*record.Report, error) {
	reports := make([]*record.Report, len(months))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range months {
		g.Go(func() error {
			r, err := getter.GetReport(gctx, userID, m.Month, m.Year)
			if err != nil {
				return fmt.Errorf("load %s: %w", m, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// InYear pairs each month label with year.
func InYear(months []string, year int) []period.MonthYear {
	out := make([]period.MonthYear, len(months))
	for i, m := range months {
		out[i] = period.MonthYear{Month: m, Year: year}
	}
	return out
}

// Labels returns the month labels of a window.
func Labels(window []period.MonthYear) []string {
	out := make([]string, len(window))
	for i, m := range window {
		out[i] = m.Month
	}
	return out
}
