package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"RebateRecon/internal/warehouse"
)

var ErrMissingColumns = errors.New("required columns missing")

// Source is the part of the warehouse the QC checks read from.
type Source interface {
	TableInfo(ctx context.Context, table string) ([]warehouse.Column, error)
	FileCounts(ctx context.Context, table string) (map[string]int64, error)
	ReadText(ctx context.Context, table string, columns []string) ([]warehouse.TextRow, []string, error)
}

// ValidationResult describes a table a check is about to run against.
type ValidationResult struct {
	Table   string
	Columns []string
	Missing []string
}

// PreValidateTable confirms table exists and carries every required column
// before a check scans it.
func PreValidateTable(ctx context.Context, src Source, table string, required []string) (*ValidationResult, error) {
	if table == "" {
		return nil, fmt.Errorf("table name is required")
	}
	cols, err := src.TableInfo(ctx, table)
	if err != nil {
		return nil, err
	}
	result := &ValidationResult{Table: table}
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		result.Columns = append(result.Columns, c.Name)
		have[c.Name] = true
	}
	for _, r := range required {
		if !have[r] {
			result.Missing = append(result.Missing, r)
		}
	}
	if len(result.Missing) > 0 {
		return result, fmt.Errorf("%w in %s: %s", ErrMissingColumns, table, strings.Join(result.Missing, ", "))
	}
	return result, nil
}
