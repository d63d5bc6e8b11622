package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/adeleeuw3/NLVreport/internal/period"
	"github.com/adeleeuw3/NLVreport/internal/record"
)

// SaveReport creates or overwrites the report for month/year. Array-typed
// inputs are normalized to the month's own slot before writing.
func (s *Store) SaveReport(ctx context.Context, userID, month string, year int, data record.Data, title string) (string, error) {
	if err := requireUser(userID); err != nil {
		return "", err
	}
	month, err := period.Normalize(month)
	if err != nil {
		return "", err
	}
	normalized := record.NormalizeToMonth(s.Catalog, data, month)
	dataJSON, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("marshal report data: %w", err)
	}

	id := period.ReportID(month, year)
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO reports (user_id, id, month, year, title, layout, created_at, data_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, userID, id, month, year, title, string(record.LayoutMonth), millis(s.now()), string(dataJSON))
	if err != nil {
		return "", fmt.Errorf("save report %s: %w", id, err)
	}
	return id, nil
}

// GetReport returns the report for month/year, or nil if none was saved.
func (s *Store) GetReport(ctx context.Context, userID, month string, year int) (*record.Report, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	month, err := period.Normalize(month)
	if err != nil {
		return nil, err
	}
	id := period.ReportID(month, year)

	var (
		title     sql.NullString
		layout    sql.NullString
		createdAt int64
		dataJSON  string
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT title, layout, created_at, data_json FROM reports WHERE user_id = ? AND id = ?
	`, userID, id).Scan(&title, &layout, &createdAt, &dataJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}

	var data record.Data
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	r := &record.Report{
		ID:        id,
		Month:     month,
		Year:      year,
		Title:     title.String,
		CreatedAt: fromMillis(createdAt),
		Layout:    record.Layout(layout.String),
		Data:      data,
		UserID:    userID,
	}
	if r.Layout == "" {
		r.Layout = record.InferLayout(s.Catalog, data)
	}
	return r, nil
}

// GetPreviousReport returns the report for the calendar month before
// month/year, wrapping January into the prior December.
func (s *Store) GetPreviousReport(ctx context.Context, userID, month string, year int) (*record.Report, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	prev, err := period.Previous(month, year)
	if err != nil {
		return nil, err
	}
	return s.GetReport(ctx, userID, prev.Month, prev.Year)
}

// GetSavedMonths lists the months of year that have a report, in calendar order.
func (s *Store) GetSavedMonths(ctx context.Context, userID string, year int) ([]string, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT month FROM reports WHERE user_id = ? AND year = ?", userID, year)
	if err != nil {
		return nil, fmt.Errorf("list saved months: %w", err)
	}
	defer rows.Close()

	var months []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan saved month: %w", err)
		}
		months = append(months, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved months: %w", err)
	}
	return period.Sort(months), nil
}

// DeleteReport removes the report for month/year. Deleting a missing report
// is not an error.
func (s *Store) DeleteReport(ctx context.Context, userID, month string, year int) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	month, err := period.Normalize(month)
	if err != nil {
		return err
	}
	id := period.ReportID(month, year)
	if _, err := s.db.ExecContext(ctx, "DELETE FROM reports WHERE user_id = ? AND id = ?", userID, id); err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	return nil
}

// PutRawReport writes a report row exactly as given, layout included. It
// exists for importing records produced elsewhere.
func (s *Store) PutRawReport(ctx context.Context, r record.Report) error {
	if err := requireUser(r.UserID); err != nil {
		return err
	}
	month, err := period.Normalize(r.Month)
	if err != nil {
		return err
	}
	dataJSON, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Errorf("marshal report data: %w", err)
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	id := period.ReportID(month, r.Year)
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO reports (user_id, id, month, year, title, layout, created_at, data_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.UserID, id, month, r.Year, r.Title, string(r.Layout), millis(created), string(dataJSON))
	if err != nil {
		return fmt.Errorf("put report %s: %w", id, err)
	}
	return nil
}
