package workbook

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type csvBook struct {
	name string
	rows [][]string
}

func openCSV(path string) (Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, rec := range records {
		records[i] = trimTrailingEmpty(rec)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &csvBook{name: name, rows: trimTrailingRows(records)}, nil
}

func (b *csvBook) SheetNames() []string {
	return []string{b.name}
}

func (b *csvBook) Rows(sheet string) ([][]string, error) {
	if sheet != b.name {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	return b.rows, nil
}

func (b *csvBook) Close() error {
	return nil
}
