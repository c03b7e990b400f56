// Package reports builds the payment-run summaries handed back to the
// program team.
package reports

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"RebateRecon/internal/config"
	"RebateRecon/internal/workbook"
)

const salesHeader = "extended_price"

type TemplateOptions struct {
	HeaderRow      int // 1-based Excel row
	MinFilledCells int
	SkipSheets     []string
	Log            *zap.Logger
}

func (o *TemplateOptions) defaults() {
	if o.HeaderRow < 1 {
		o.HeaderRow = config.TemplateHeaderRow
	}
	if o.MinFilledCells < 1 {
		o.MinFilledCells = config.TemplateMinFilledCells
	}
	if o.SkipSheets == nil {
		o.SkipSheets = config.TemplateSkipSheets
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
}

// TemplateCount is one returned contractor template.
type TemplateCount struct {
	Filename     string
	CompleteRows int
	Sales        decimal.Decimal
	Err          error
}

// TemplateCounts counts the complete rows and the extended_price total of
// every .xlsx template in folder.
func TemplateCounts(folder string, opts TemplateOptions) ([]TemplateCount, error) {
	opts.defaults()
	files, err := workbook.FindFiles(folder, []string{".xlsx"})
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	out := make([]TemplateCount, 0, len(files))
	for _, f := range files {
		c := countTemplate(f, opts)
		if c.Err != nil {
			opts.Log.Error("read template", zap.String("file", c.Filename), zap.Error(c.Err))
		}
		out = append(out, c)
	}
	return out, nil
}

func countTemplate(path string, opts TemplateOptions) TemplateCount {
	res := TemplateCount{Filename: filepath.Base(path), Sales: decimal.Zero}
	wb, err := workbook.Open(path, workbook.Options{Raw: true})
	if err != nil {
		res.Err = err
		return res
	}
	defer wb.Close()

	sheet, ok := firstUsableSheet(wb.SheetNames(), opts.SkipSheets)
	if !ok {
		opts.Log.Warn("no valid sheet, skipping", zap.String("file", res.Filename))
		return res
	}
	rows, err := wb.Rows(sheet)
	if err != nil {
		res.Err = err
		return res
	}

	hIdx := opts.HeaderRow - 1
	var header []string
	if hIdx < len(rows) {
		header = rows[hIdx]
	}
	salesCol := -1
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == salesHeader {
			salesCol = i
			break
		}
	}

	// Rows are counted over the sheet's whole used width, including cells
	// past the last header column.
	for i := hIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if countFilled(row) >= opts.MinFilledCells {
			res.CompleteRows++
		}
		if salesCol >= 0 && salesCol < len(row) {
			if d, err := decimal.NewFromString(strings.TrimSpace(row[salesCol])); err == nil {
				res.Sales = res.Sales.Add(d)
			}
		}
	}
	return res
}

func firstUsableSheet(names, skip []string) (string, bool) {
	for _, n := range names {
		lower := strings.ToLower(n)
		usable := true
		for _, s := range skip {
			if s != "" && strings.Contains(lower, strings.ToLower(s)) {
				usable = false
				break
			}
		}
		if usable {
			return n, true
		}
	}
	return "", false
}

// countFilled counts non-empty cells. A cell holding only spaces is filled.
func countFilled(row []string) int {
	n := 0
	for _, c := range row {
		if c != "" {
			n++
		}
	}
	return n
}

var templateHeader = []interface{}{"Filename", "Complete Rows (>5 columns)", "Sales"}

// WriteTemplateCounts saves counts as a one-sheet workbook at path.
func WriteTemplateCounts(path string, counts []TemplateCount) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if err := f.SetSheetRow(sheet, "A1", &templateHeader); err != nil {
		return err
	}
	for i, c := range counts {
		var row []interface{}
		if c.Err != nil {
			row = []interface{}{c.Filename, "Error", "Error"}
		} else {
			row = []interface{}{c.Filename, c.CompleteRows, c.Sales.InexactFloat64()}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
