package stitch

import (
	"context"
	"fmt"
	"strings"

	"github.com/adeleeuw3/NLVreport/internal/catalog"
	"github.com/adeleeuw3/NLVreport/internal/period"
	"github.com/adeleeuw3/NLVreport/internal/record"
)

// Request selects a month range to build a story from.
type Request struct {
	Year    int
	Start   string
	End     string
	Title   string
	ShowMoM bool
}

// Story is a stitched range ready for the dashboard.
type Story struct {
	Title    string
	Current  record.Merged
	Previous *record.Merged
	// Missing lists range months without a saved report.
	Missing []string
}

// DefaultTitle names a story when the user did not.
func DefaultTitle(year int, months []string) string {
	if len(months) > 1 {
		return fmt.Sprintf("%d Performance Story", year)
	}
	return fmt.Sprintf("%d Snapshot", year)
}

// Build loads and stitches the requested range. With ShowMoM set, the
// preceding window of equal length is stitched as the comparison record.
func Build(ctx context.Context, cat *catalog.Catalog, getter ReportGetter, userID string, req Request) (*Story, error) {
	months, err := period.Range(req.Start, req.End)
	if err != nil {
		return nil, err
	}
	reports, err := LoadRange(ctx, getter, userID, InYear(months, req.Year))
	if err != nil {
		return nil, err
	}

	var saved []string
	for _, r := range reports {
		if r != nil {
			saved = append(saved, r.Month)
		}
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultTitle(req.Year, months)
	}
	story := &Story{
		Title: title,
		Current: record.Merged{
			Data: Stitch(cat, reports, months),
			Meta: &record.Meta{
				Year:       req.Year,
				Months:     months,
				RangeLabel: period.Label(months, req.Year),
				ShowMoM:    req.ShowMoM,
			},
		},
		Missing: period.Missing(saved, months),
	}
	if req.ShowMoM {
		prev, err := Previous(ctx, cat, getter, userID, story.Current.Meta)
		if err != nil {
			return nil, err
		}
		story.Previous = prev
	}
	return story, nil
}

// Previous stitches the window immediately before meta's range. It returns
// nil when no report in that window exists.
func Previous(ctx context.Context, cat *catalog.Catalog, getter ReportGetter, userID string, meta *record.Meta) (*record.Merged, error) {
	if meta == nil || len(meta.Months) == 0 {
		return nil, nil
	}
	window, err := period.Preceding(meta.Months, meta.Year)
	if err != nil {
		return nil, err
	}
	reports, err := LoadRange(ctx, getter, userID, window)
	if err != nil {
		return nil, err
	}
	found := false
	for _, r := range reports {
		if r != nil {
			found = true
			break
		}
	}
	if !found {
		return nil, nil
	}
	labels := Labels(window)
	return &record.Merged{
		Data: Stitch(cat, reports, labels),
		Meta: &record.Meta{
			Year:       window[len(window)-1].Year,
			Months:     labels,
			RangeLabel: fmt.Sprintf("%s - %s", window[0], window[len(window)-1]),
		},
	}, nil
}
