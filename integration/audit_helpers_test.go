package integration_test

import (
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

type auditRow struct {
	Actor string
	Type  string
	Error string
}

func loadAuditRows(t *testing.T, dbPath string) []auditRow {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open audit db: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.Query("SELECT actor, type, payload_json FROM events ORDER BY id")
	if err != nil {
		t.Fatalf("query audit events: %v", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []auditRow
	for rows.Next() {
		var row auditRow
		var payload string
		if err := rows.Scan(&row.Actor, &row.Type, &payload); err != nil {
			t.Fatalf("scan audit event: %v", err)
		}
		var fields struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal([]byte(payload), &fields); err != nil {
			t.Fatalf("decode payload of %s: %v", row.Type, err)
		}
		row.Error = fields.Error
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate audit events: %v", err)
	}
	return out
}

// requireAuditEvents checks that every wanted type was logged by the CLI and
// that wanted _finished events did not record a failure.
func requireAuditEvents(t *testing.T, dbPath string, want []string) {
	t.Helper()
	seen := make(map[string]auditRow)
	for _, row := range loadAuditRows(t, dbPath) {
		if row.Actor != "cli" {
			t.Fatalf("audit event %s has actor %q, want cli", row.Type, row.Actor)
		}
		if _, ok := seen[row.Type]; !ok || row.Error == "" {
			seen[row.Type] = row
		}
	}
	for _, eventType := range want {
		row, ok := seen[eventType]
		if !ok {
			t.Fatalf("missing audit event %s in %s", eventType, dbPath)
		}
		if strings.HasSuffix(eventType, "_finished") && row.Error != "" {
			t.Fatalf("audit event %s recorded error: %s", eventType, row.Error)
		}
	}
}

// requireAuditFailure checks that some eventType was logged with an error
// containing substr.
func requireAuditFailure(t *testing.T, dbPath, eventType, substr string) {
	t.Helper()
	for _, row := range loadAuditRows(t, dbPath) {
		if row.Type == eventType && strings.Contains(row.Error, substr) {
			return
		}
	}
	t.Fatalf("no %s event with error containing %q in %s", eventType, substr, dbPath)
}
