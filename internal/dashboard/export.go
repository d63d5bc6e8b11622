package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adeleeuw3/NLVreport/internal/record"
)

const ExportSchemaVersion = 1

// Export is the on-disk form of a rendered dashboard. FormData keeps the
// stitched record so the export can be re-imported as a snapshot.
type Export struct {
	SchemaVersion int           `json:"schema_version"`
	ExportedAt    string        `json:"exported_at"`
	Dashboard     *Dashboard    `json:"dashboard"`
	FormData      record.Merged `json:"form_data"`
}

func WriteExport(path string, export Export) error {
	if path == "" {
		return fmt.Errorf("export path is required")
	}
	if export.ExportedAt == "" {
		return fmt.Errorf("export exported_at is required")
	}
	if export.Dashboard == nil {
		return fmt.Errorf("export dashboard is required")
	}
	export.SchemaVersion = ExportSchemaVersion

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure export dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp export: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename export: %w", err)
	}
	return nil
}

func LoadExport(path string) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	var export Export
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&export); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	if export.SchemaVersion != ExportSchemaVersion {
		return nil, fmt.Errorf("unsupported export schema_version %d", export.SchemaVersion)
	}
	if export.Dashboard == nil {
		return nil, fmt.Errorf("export missing dashboard")
	}
	return &export, nil
}
