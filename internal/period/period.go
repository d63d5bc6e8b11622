package period

import (
	"errors"
	"fmt"
	"strings"
)

// Months is the canonical calendar ordering used by every array-typed input.
var Months = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// ErrRange is returned when a range starts after it ends.
var ErrRange = errors.New("Start month must be before end month")

// MonthYear names one calendar month.
type MonthYear struct {
	Month string
	Year  int
}

func (m MonthYear) String() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// Index returns the zero-based position of month, or -1.
func Index(month string) int {
	month = strings.TrimSpace(month)
	for i, m := range Months {
		if strings.EqualFold(m, month) {
			return i
		}
	}
	return -1
}

// Normalize returns the canonical spelling of month.
func Normalize(month string) (string, error) {
	idx := Index(month)
	if idx < 0 {
		return "", fmt.Errorf("unknown month %q", month)
	}
	return Months[idx], nil
}

// ReportID is the composite key of a monthly report.
func ReportID(month string, year int) string {
	return fmt.Sprintf("%d-%s", year, month)
}

// Previous returns the calendar month before month/year, wrapping January
// into December of the prior year.
func Previous(month string, year int) (MonthYear, error) {
	idx := Index(month)
	if idx < 0 {
		return MonthYear{}, fmt.Errorf("unknown month %q", month)
	}
	if idx == 0 {
		return MonthYear{Month: Months[11], Year: year - 1}, nil
	}
	return MonthYear{Month: Months[idx-1], Year: year}, nil
}

// Range returns the months from start to end inclusive.
func Range(start, end string) ([]string, error) {
	from := Index(start)
	if from < 0 {
		return nil, fmt.Errorf("unknown month %q", start)
	}
	to := Index(end)
	if to < 0 {
		return nil, fmt.Errorf("unknown month %q", end)
	}
	if from > to {
		return nil, ErrRange
	}
	out := make([]string, 0, to-from+1)
	out = append(out, Months[from:to+1]...)
	return out, nil
}

// Label renders a range header such as "Jan - Mar 2025".
func Label(months []string, year int) string {
	switch len(months) {
	case 0:
		return fmt.Sprintf("%d", year)
	case 1:
		return fmt.Sprintf("%s %d", months[0], year)
	}
	return fmt.Sprintf("%s - %s %d", months[0], months[len(months)-1], year)
}

// Preceding returns the n months immediately before the first month of
// months in year, oldest first. The window may cross into the prior year.
func Preceding(months []string, year int) ([]MonthYear, error) {
	if len(months) == 0 {
		return nil, nil
	}
	cursor := MonthYear{Month: months[0], Year: year}
	out := make([]MonthYear, len(months))
	for i := len(months) - 1; i >= 0; i-- {
		prev, err := Previous(cursor.Month, cursor.Year)
		if err != nil {
			return nil, err
		}
		out[i] = prev
		cursor = prev
	}
	return out, nil
}

// Missing lists the months of rangeMonths that are not in saved.
func Missing(saved, rangeMonths []string) []string {
	have := make(map[string]bool, len(saved))
	for _, m := range saved {
		have[m] = true
	}
	var out []string
	for _, m := range rangeMonths {
		if !have[m] {
			out = append(out, m)
		}
	}
	return out
}

// Sort orders month labels by calendar position, dropping unknown labels.
func Sort(months []string) []string {
	seen := make(map[int]bool, len(months))
	for _, m := range months {
		if idx := Index(m); idx >= 0 {
			seen[idx] = true
		}
	}
	out := make([]string, 0, len(seen))
	for i, m := range Months {
		if seen[i] {
			out = append(out, m)
		}
	}
	return out
}

type preset struct {
	Start string
	End   string
}

var presets = map[string]preset{
	"Q1":   {"Jan", "Mar"},
	"Q2":   {"Apr", "Jun"},
	"Q3":   {"Jul", "Sep"},
	"Q4":   {"Oct", "Dec"},
	"H1":   {"Jan", "Jun"},
	"H2":   {"Jul", "Dec"},
	"FULL": {"Jan", "Dec"},
}

// Preset resolves a named range (Q1..Q4, H1, H2, Full).
func Preset(name string) (start, end string, ok bool) {
	p, ok := presets[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return "", "", false
	}
	return p.Start, p.End, true
}
