package warehouse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"RebateRecon/internal/workbook"
)

// Column types inferred from sheet values.
const (
	TypeBigint  = "BIGINT"
	TypeDouble  = "DOUBLE"
	TypeVarchar = "VARCHAR"
)

var ErrNoHeader = errors.New("sheet has no header row")

// Frame is a typed in-memory table read from one sheet. Row values are
// int64, float64, string or nil.
type Frame struct {
	Columns []string
	Types   []string
	Rows    [][]any
}

// NewFrame treats the first row as the header. Blank rows are dropped.
func NewFrame(rows [][]string) (*Frame, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrNoHeader
	}
	width := workbook.Width(rows)
	cols := normalizeHeaders(rows[0], width)

	var data [][]string
	for _, r := range rows[1:] {
		if isBlank(r) {
			continue
		}
		line := make([]string, width)
		copy(line, r)
		data = append(data, line)
	}

	f := &Frame{Columns: cols, Types: make([]string, width)}
	for c := 0; c < width; c++ {
		f.Types[c] = inferType(data, c)
	}
	f.Rows = make([][]any, len(data))
	for i, line := range data {
		vals := make([]any, width)
		for c, cell := range line {
			v, err := convert(cell, f.Types[c])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i+2, cols[c], err)
			}
			vals[c] = v
		}
		f.Rows[i] = vals
	}
	return f, nil
}

// normalizeHeaders names blank headers "Unnamed: N" and suffixes repeats
// with ".1", ".2" the way dataframe loaders do.
func normalizeHeaders(raw []string, width int) []string {
	out := make([]string, width)
	seen := make(map[string]int, width)
	taken := make(map[string]bool, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(raw) {
			name = strings.TrimSpace(raw[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for taken[name] {
			seen[base]++
			name = fmt.Sprintf("%s.%d", base, seen[base])
		}
		taken[name] = true
		out[i] = name
	}
	return out
}

func inferType(data [][]string, col int) string {
	nonEmpty := false
	integer := true
	for _, line := range data {
		v := strings.TrimSpace(line[col])
		if v == "" {
			continue
		}
		nonEmpty = true
		if leadingZero(v) {
			return TypeVarchar
		}
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			continue
		}
		integer = false
		if _, err := decimal.NewFromString(v); err != nil {
			return TypeVarchar
		}
	}
	switch {
	case !nonEmpty:
		return TypeVarchar
	case integer:
		return TypeBigint
	default:
		return TypeDouble
	}
}

// leadingZero reports digit codes such as UPCs ("00042") whose zeros a
// numeric column would drop.
func leadingZero(v string) bool {
	return len(v) > 1 && v[0] == '0' && v[1] >= '0' && v[1] <= '9'
}

func convert(cell, typ string) (any, error) {
	v := strings.TrimSpace(cell)
	if v == "" {
		return nil, nil
	}
	switch typ {
	case TypeBigint:
		return strconv.ParseInt(v, 10, 64)
	case TypeDouble:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, err
		}
		f, _ := d.Float64()
		return f, nil
	default:
		return cell, nil
	}
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
