package workbook

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

type excelBook struct {
	xl  *excelize.File
	raw bool
}

func openExcelize(path string, opts Options) (Workbook, error) {
	xl, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &excelBook{xl: xl, raw: opts.Raw}, nil
}

func (b *excelBook) SheetNames() []string {
	return b.xl.GetSheetList()
}

func (b *excelBook) Rows(sheet string) ([][]string, error) {
	rawRows, err := b.xl.GetRows(sheet, excelize.Options{RawCellValue: b.raw})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	rows := make([][]string, len(rawRows))
	for i, r := range rawRows {
		rows[i] = trimTrailingEmpty(r)
	}
	return trimTrailingRows(rows), nil
}

func (b *excelBook) Close() error {
	return b.xl.Close()
}
