// Package validation runs the QC checks of a payment run against the
// warehouse and writes their CSV reports.
package validation

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NormalizeString trims whitespace and converts to lowercase for comparisons
func NormalizeString(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsTrue reports whether a flag cell reads y, 1 or true.
func IsTrue(v string) bool {
	switch NormalizeString(v) {
	case "y", "1", "true":
		return true
	}
	return false
}

// writeCSV writes header and rows to path, creating its directory.
func writeCSV(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatCount(n *int64) string {
	if n == nil {
		return ""
	}
	return fmt.Sprintf("%d", *n)
}
