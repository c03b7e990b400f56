package workbook

import (
	"fmt"
	"os"

	"github.com/extrame/xls"
)

// xlsBook reads legacy BIFF8 workbooks. The whole file is decoded on open.
type xlsBook struct {
	names  []string
	sheets map[string][][]string
}

func openXLS(path string) (Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	book, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	b := &xlsBook{sheets: make(map[string][][]string)}
	for i := 0; i < book.NumSheets(); i++ {
		sheet := book.GetSheet(i)
		if sheet == nil {
			continue
		}
		rows := gridRows(int(sheet.MaxRow), func(r int) xlsRow {
			if row := sheet.Row(r); row != nil {
				return row
			}
			return nil
		})
		b.names = append(b.names, sheet.Name)
		b.sheets[sheet.Name] = rows
	}
	return b, nil
}

// xlsRow is the part of *xls.Row the reader uses.
type xlsRow interface {
	FirstCol() int
	LastCol() int
	Col(i int) string
}

// gridRows lays out rows 0..maxRow so that index i is sheet row i+1 and each
// cell sits at its column index. Missing rows come out empty.
func gridRows(maxRow int, row func(r int) xlsRow) [][]string {
	rows := make([][]string, 0, maxRow+1)
	for r := 0; r <= maxRow; r++ {
		line := row(r)
		if line == nil {
			rows = append(rows, nil)
			continue
		}
		last := line.LastCol()
		if last < 0 {
			last = 0
		}
		cells := make([]string, last)
		for c := line.FirstCol(); c < last; c++ {
			if c >= 0 {
				cells[c] = line.Col(c)
			}
		}
		rows = append(rows, trimTrailingEmpty(cells))
	}
	return trimTrailingRows(rows)
}

func (b *xlsBook) SheetNames() []string {
	return b.names
}

func (b *xlsBook) Rows(sheet string) ([][]string, error) {
	rows, ok := b.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	return rows, nil
}

func (b *xlsBook) Close() error {
	return nil
}
