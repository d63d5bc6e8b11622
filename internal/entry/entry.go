package entry

import (
	"context"
	"fmt"

	"github.com/adeleeuw3/NLVreport/internal/catalog"
	"github.com/adeleeuw3/NLVreport/internal/period"
	"github.com/adeleeuw3/NLVreport/internal/record"
	"github.com/adeleeuw3/NLVreport/internal/stitch"
)

// ReportStore is the slice of the persistence facade that data entry uses.
type ReportStore interface {
	SaveReport(ctx context.Context, userID, month string, year int, data record.Data, title string) (string, error)
	GetReport(ctx context.Context, userID, month string, year int) (*record.Report, error)
	GetPreviousReport(ctx context.Context, userID, month string, year int) (*record.Report, error)
	DeleteReport(ctx context.Context, userID, month string, year int) error
}

// Service implements the monthly and year-merge entry flows.
type Service struct {
	Store   ReportStore
	Catalog *catalog.Catalog
}

// NewService returns a Service over s and cat.
func NewService(s ReportStore, cat *catalog.Catalog) *Service {
	return &Service{Store: s, Catalog: cat}
}

// Form is the editable contents of one month.
type Form struct {
	Month string
	Year  int
	Title string
	Data  record.Data
	// Found is false when nothing was saved for the month yet.
	Found bool
}

// Load returns the month's data with every array-typed input reduced to the
// month's own scalar, whatever layout the report was stored in.
func (s *Service) Load(ctx context.Context, userID, month string, year int) (*Form, error) {
	month, err := period.Normalize(month)
	if err != nil {
		return nil, err
	}
	r, err := s.Store.GetReport(ctx, userID, month, year)
	if err != nil {
		return nil, fmt.Errorf("load %s %d: %w", month, year, err)
	}
	form := &Form{Month: month, Year: year, Data: record.Data{}}
	if r == nil {
		return form, nil
	}
	form.Found = true
	form.Title = r.Title
	form.Data = s.monthView(r)
	return form, nil
}

// Save stores one month's form.
func (s *Service) Save(ctx context.Context, userID string, form *Form) (string, error) {
	id, err := s.Store.SaveReport(ctx, userID, form.Month, form.Year, form.Data, form.Title)
	if err != nil {
		return "", fmt.Errorf("save %s %d: %w", form.Month, form.Year, err)
	}
	return id, nil
}

// CopyPrevious returns the previous calendar month's values for use as the
// starting point of month/year. ok is false when there is nothing to copy.
func (s *Service) CopyPrevious(ctx context.Context, userID, month string, year int) (record.Data, bool, error) {
	prev, err := s.Store.GetPreviousReport(ctx, userID, month, year)
	if err != nil {
		return nil, false, fmt.Errorf("load previous month: %w", err)
	}
	if prev == nil {
		return nil, false, nil
	}
	return s.monthView(prev), true, nil
}

// LoadMerged builds the year form for the selected months: array-typed
// inputs carry twelve slots, filled only for months that were loaded.
func (s *Service) LoadMerged(ctx context.Context, userID string, year int, months []string) (record.Data, error) {
	months = period.Sort(months)
	reports, err := stitch.LoadRange(ctx, s.Store, userID, stitch.InYear(months, year))
	if err != nil {
		return nil, err
	}
	return stitch.Stitch(s.Catalog, reports, period.Months), nil
}

// SaveMany writes data to each selected month. Twelve-slot array values are
// reduced to the slot of the month being written. Writes are independent;
// the months saved before a failure stay saved.
func (s *Service) SaveMany(ctx context.Context, userID string, year int, months []string, data record.Data, title string) ([]string, error) {
	var ids []string
	for _, m := range period.Sort(months) {
		id, err := s.Store.SaveReport(ctx, userID, m, year, data, title)
		if err != nil {
			return ids, fmt.Errorf("save %s %d: %w", m, year, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteMany removes the selected months.
func (s *Service) DeleteMany(ctx context.Context, userID string, year int, months []string) error {
	for _, m := range period.Sort(months) {
		if err := s.Store.DeleteReport(ctx, userID, m, year); err != nil {
			return fmt.Errorf("delete %s %d: %w", m, year, err)
		}
	}
	return nil
}

func (s *Service) monthView(r *record.Report) record.Data {
	if r.Layout == record.LayoutMonth {
		return r.Data.Clone()
	}
	return record.NormalizeToMonth(s.Catalog, r.Data, r.Month)
}
