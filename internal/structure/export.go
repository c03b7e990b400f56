package structure

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"RebateRecon/internal/mapping"
)

// WriteCSV saves the summary as a local sheet: the profile columns as
// header, then one line per row with row placeholders bound from line 2.
func WriteCSV(path string, rows []SummaryRow, profile *mapping.Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(profile.Columns); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(BindRows(Table(rows, profile), 2)); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
