// Package workbook opens contractor and wholesaler exports as plain string
// matrices, one per sheet, regardless of the file format they arrived in.
package workbook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported workbook format")

// SupportedExtensions are the spreadsheet formats a folder scan picks up.
var SupportedExtensions = []string{".xlsx", ".xls", ".xlsm", ".xlsb"}

// Workbook is a read-only view of a spreadsheet file.
type Workbook interface {
	SheetNames() []string
	// Rows returns the sheet as ragged rows. Index i is Excel row i+1.
	Rows(sheet string) ([][]string, error)
	Close() error
}

type Options struct {
	// Raw skips number formats and returns stored cell values (xlsx only).
	Raw bool
}

// Open picks a reader from the file extension.
func Open(path string, opts Options) (Workbook, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return openExcelize(path, opts)
	case ".xls":
		return openXLS(path)
	case ".xlsb":
		return openXLSB(path)
	case ".csv":
		return openCSV(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}

// FindFiles lists the files directly under folder with one of exts.
func FindFiles(folder string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || IsJunkFile(e.Name()) {
			continue
		}
		if want[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(folder, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// IsJunkFile reports editor lock files and macOS metadata.
func IsJunkFile(filename string) bool {
	base := filepath.Base(filename)
	dir := filepath.Dir(filename)

	if strings.HasPrefix(base, "~$") {
		return true
	}
	// hidden and AppleDouble (._) files
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.Contains(dir, "__MACOSX") {
		return true
	}
	return false
}

// Width is the column count of a ragged matrix.
func Width(rows [][]string) int {
	n := 0
	for _, r := range rows {
		if len(r) > n {
			n = len(r)
		}
	}
	return n
}

// trimTrailingEmpty drops empty cells at the end of a row so every reader
// reports the same width for the same sheet.
func trimTrailingEmpty(row []string) []string {
	end := len(row)
	for end > 0 && row[end-1] == "" {
		end--
	}
	return row[:end]
}

// trimTrailingRows drops empty rows at the end of a sheet.
func trimTrailingRows(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && len(rows[end-1]) == 0 {
		end--
	}
	return rows[:end]
}
