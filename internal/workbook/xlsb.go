package workbook

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	xlsbbook "github.com/TsubasaBE/go-xlsb/workbook"
)

type xlsbBook struct {
	f  *os.File
	wb *xlsbbook.Workbook
}

func openXLSB(path string) (Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	wb, err := xlsbbook.OpenReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &xlsbBook{f: f, wb: wb}, nil
}

func (b *xlsbBook) SheetNames() []string {
	return b.wb.Sheets()
}

func (b *xlsbBook) Rows(sheet string) ([][]string, error) {
	idx := -1
	for i, name := range b.wb.Sheets() {
		if strings.EqualFold(name, sheet) {
			idx = i + 1
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	ws, err := b.wb.Sheet(idx)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var rows [][]string
	for row := range ws.Rows(false) {
		cells := make([]string, 0, len(row))
		for _, c := range row {
			for len(cells) < c.C {
				cells = append(cells, "")
			}
			cells = append(cells, cellString(c.V))
		}
		r := 0
		if len(row) > 0 {
			r = row[0].R
		} else {
			r = len(rows)
		}
		for len(rows) < r {
			rows = append(rows, nil)
		}
		rows = append(rows, trimTrailingEmpty(cells))
	}
	return trimTrailingRows(rows), nil
}

func (b *xlsbBook) Close() error {
	err := b.wb.Close()
	if cerr := b.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(t)
	}
}
