package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/adeleeuw3/NLVreport/internal/record"
)

// SaveDashboard stores a snapshot and returns its id. An empty id creates a
// new snapshot; an existing id is overwritten in place.
func (s *Store) SaveDashboard(ctx context.Context, userID, id, title string, data record.Merged) (string, error) {
	if err := requireUser(userID); err != nil {
		return "", err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("dashboard title is required")
	}
	if id == "" {
		id = uuid.NewString()
	}
	formJSON, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal dashboard: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO dashboards (user_id, id, title, updated_at, form_data_json)
		VALUES (?, ?, ?, ?, ?)
	`, userID, id, title, millis(s.now()), string(formJSON))
	if err != nil {
		return "", fmt.Errorf("save dashboard %s: %w", id, err)
	}
	return id, nil
}

// GetDashboard returns one snapshot or ErrNotFound.
func (s *Store) GetDashboard(ctx context.Context, userID, id string) (*record.Dashboard, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, updated_at, form_data_json FROM dashboards WHERE user_id = ? AND id = ?
	`, userID, id)
	d, err := scanDashboard(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("dashboard %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetDashboards lists snapshots, most recently updated first.
func (s *Store) GetDashboards(ctx context.Context, userID string) ([]record.Dashboard, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, updated_at, form_data_json FROM dashboards
		WHERE user_id = ?
		ORDER BY updated_at DESC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	defer rows.Close()

	var out []record.Dashboard
	for rows.Next() {
		d, err := scanDashboard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dashboards: %w", err)
	}
	return out, nil
}

// DeleteDashboard removes a snapshot.
func (s *Store) DeleteDashboard(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM dashboards WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return fmt.Errorf("delete dashboard %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("dashboard %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDashboard(row rowScanner) (*record.Dashboard, error) {
	var (
		d         record.Dashboard
		updatedAt int64
		formJSON  string
	)
	if err := row.Scan(&d.ID, &d.Title, &updatedAt, &formJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan dashboard: %w", err)
	}
	d.UpdatedAt = fromMillis(updatedAt)
	if err := json.Unmarshal([]byte(formJSON), &d.FormData); err != nil {
		return nil, fmt.Errorf("decode dashboard %s: %w", d.ID, err)
	}
	return &d, nil
}
