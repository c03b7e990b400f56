package structure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"RebateRecon/internal/mapping"
	"RebateRecon/internal/workbook"
)

const (
	headerScanRows   = 10
	headerFillMin    = 0.3
	dataRowFillRatio = 0.5
)

// SheetInfo is the detected layout of one worksheet.
type SheetInfo struct {
	Headers     []string
	HeaderRow   int // 0-based, -1 when no header row was found
	DataRange   string
	HeaderRange string
	UseHeader   bool
	// RowsCount is the number of valid data rows. The header row is taken
	// off only when it is itself a valid row, so a sheet whose header is
	// under half filled reports one more row than pay runs before this
	// rule, which always subtracted one.
	RowsCount int
	Mapping     mapping.Mapping
	Err         error
}

// SummaryRow is one line of the structure summary, keyed by column name.
type SummaryRow map[string]string

// FindHeaderRow picks, among the first ten rows, the first one with the
// highest share of filled cells. It is accepted when more than 30% filled.
func FindHeaderRow(rows [][]string) (int, bool) {
	width := workbook.Width(rows)
	if width == 0 {
		return -1, false
	}
	best, bestScore := 0, -1.0
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		score := float64(filled(rows[i])) / float64(width)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if bestScore > headerFillMin {
		return best, true
	}
	return -1, false
}

// AnalyzeSheet detects the header and data ranges of a raw sheet matrix and
// maps its headers through profile.
func AnalyzeSheet(rows [][]string, profile *mapping.Profile) SheetInfo {
	info := SheetInfo{HeaderRow: -1}
	width := workbook.Width(rows)
	h, ok := FindHeaderRow(rows)
	if !ok {
		return info
	}

	info.HeaderRow = h
	info.Headers = make([]string, width)
	for i, cell := range rows[h] {
		info.Headers[i] = strings.TrimSpace(cell)
	}
	info.UseHeader = len(info.Headers) > 0
	if profile != nil {
		info.Mapping = profile.Match(info.Headers)
	}

	lastCol := ColumnLetter(width)
	info.HeaderRange = fmt.Sprintf("A%d:%s%d", h+1, lastCol, h+1)

	first, last, valid := -1, -1, 0
	headerValid := false
	for i := h; i < len(rows); i++ {
		if float64(filled(rows[i]))/float64(width) < dataRowFillRatio {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		valid++
		if i == h {
			headerValid = true
		}
	}
	if valid == 0 {
		return info
	}
	info.DataRange = fmt.Sprintf("A%d:%s%d", first+1, lastCol, last+1)
	info.RowsCount = valid
	if headerValid {
		info.RowsCount--
	}
	return info
}

// ColumnLetter converts a 1-based column count to its Excel letter.
func ColumnLetter(n int) string {
	if n < 1 {
		n = 1
	}
	name, err := excelize.ColumnNumberToName(n)
	if err != nil {
		return "A"
	}
	return name
}

func filled(row []string) int {
	n := 0
	for _, c := range row {
		if c != "" {
			n++
		}
	}
	return n
}

// Analyzer turns a folder of exports into structure summary rows.
type Analyzer struct {
	Profile    *mapping.Profile
	PaymentRun string
	Log        *zap.Logger
}

func NewAnalyzer(profile *mapping.Profile, paymentRun string, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{Profile: profile, PaymentRun: paymentRun, Log: log}
}

var ErrFolderNotFound = errors.New("source folder does not exist")

// AnalyzeFolder analyzes every supported workbook directly under folder.
func (a *Analyzer) AnalyzeFolder(folder string) ([]SummaryRow, error) {
	if st, err := os.Stat(folder); err != nil || !st.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
	}
	files, err := workbook.FindFiles(folder, workbook.SupportedExtensions)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		a.Log.Warn("no excel files found", zap.String("folder", folder))
		return nil, nil
	}
	a.Log.Info("analyzing excel files", zap.Int("files", len(files)), zap.String("profile", a.Profile.Name))

	var out []SummaryRow
	for _, f := range files {
		a.Log.Info("processing", zap.String("file", filepath.Base(f)))
		out = append(out, a.AnalyzeFile(f)...)
	}
	return out, nil
}

// AnalyzeFile returns one row per sheet, or a single error row when the file
// cannot be opened.
func (a *Analyzer) AnalyzeFile(path string) []SummaryRow {
	name := filepath.Base(path)
	wb, err := workbook.Open(path, workbook.Options{})
	if err != nil {
		a.Log.Error("open workbook", zap.String("file", name), zap.Error(err))
		return []SummaryRow{a.errorRow(name, err)}
	}
	defer wb.Close()

	var out []SummaryRow
	for _, sheet := range wb.SheetNames() {
		var info SheetInfo
		rows, err := wb.Rows(sheet)
		if err != nil {
			a.Log.Error("read sheet", zap.String("file", name), zap.String("sheet", sheet), zap.Error(err))
			info = SheetInfo{HeaderRow: -1, Err: err}
		} else {
			info = AnalyzeSheet(rows, a.Profile)
		}
		a.Log.Debug("detected headers",
			zap.String("file", name),
			zap.String("sheet", sheet),
			zap.Strings("headers", info.Headers),
			zap.Int("matched", info.Mapping.Matched()))
		out = append(out, a.summaryRow(name, sheet, info))
	}
	return out
}

func (a *Analyzer) summaryRow(file, sheet string, info SheetInfo) SummaryRow {
	row := SummaryRow{
		"payment_run":    a.PaymentRun,
		"file_name":      file,
		"sheet_name":     sheet,
		"structure_type": a.Profile.StructureType,
		"headers":        strings.Join(info.Headers, "|"),
		"data_range":     info.DataRange,
		"header_range":   info.HeaderRange,
		"use_header":     boolCell(info.UseHeader),
		"rows_count":     strconv.Itoa(info.RowsCount),
		"process":        "TRUE",
	}
	for k, v := range a.Profile.Constants {
		row[k] = v
	}
	// An unreadable sheet or one with no header leaves the mapping cells blank.
	for _, fm := range info.Mapping {
		row[fm.Field] = mapping.Quote(fm.Header)
	}
	if info.Err != nil {
		row["error"] = info.Err.Error()
	}
	return row
}

func (a *Analyzer) errorRow(file string, err error) SummaryRow {
	row := SummaryRow{
		"payment_run":    "ERROR",
		"file_name":      file,
		"sheet_name":     "ERROR",
		"structure_type": a.Profile.StructureType,
		"use_header":     "FALSE",
		"rows_count":     "0",
		"process":        "FALSE",
		"error":          err.Error(),
	}
	for _, f := range a.Profile.Fields {
		row[f.Name] = mapping.NullValue
	}
	return row
}

func boolCell(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// Table projects rows into the profile's column order.
func Table(rows []SummaryRow, profile *mapping.Profile) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		line := make([]string, len(profile.Columns))
		for j, col := range profile.Columns {
			line[j] = r[col]
		}
		out[i] = line
	}
	return out
}

// BindRows fills the row placeholder of formula constants with the sheet row
// each line lands on, starting at startRow.
func BindRows(table [][]string, startRow int) [][]string {
	out := make([][]string, len(table))
	for i, line := range table {
		bound := make([]string, len(line))
		rowNum := strconv.Itoa(startRow + i)
		for j, v := range line {
			bound[j] = strings.ReplaceAll(v, mapping.RowPlaceholder, rowNum)
		}
		out[i] = bound
	}
	return out
}
