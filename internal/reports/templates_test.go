package reports

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeTemplate lays rows out from Excel row 1 of each named sheet.
func writeTemplate(t *testing.T, path string, sheets map[string][][]interface{}, order []string) {
	t.Helper()
	f := excelize.NewFile()
	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func templateRows(data ...[]interface{}) [][]interface{} {
	rows := [][]interface{}{
		{"Charlotte Pipe contractor template"},
		{"Contractor:", "Acme"},
		{}, {}, {},
		{"invoice", "item", "qty", "uom", " Extended_Price ", "notes"},
	}
	return append(rows, data...)
}

func TestTemplateCounts(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, filepath.Join(dir, "acme.xlsx"), map[string][][]interface{}{
		"Sample": {{"ignored"}},
		"Data": templateRows(
			[]interface{}{"1", "pipe", 2, "ea", 10.10},
			[]interface{}{"2", "tee", 1, "ea", "n/a"},
			[]interface{}{"3", "", "", "", 5.25},
			[]interface{}{"4", "cap", 3, "", 0.65, "x", "y", "z"},
			[]interface{}{"5", "", "", "", "", "", "late", "note"},
			[]interface{}{" ", " ", "elbow", 1},
		),
	}, []string{"Sample", "Data"})
	writeTemplate(t, filepath.Join(dir, "beta.xlsx"), map[string][][]interface{}{
		"Instructions": {{"read me"}},
	}, []string{"Instructions"})
	writeTemplate(t, filepath.Join(dir, "gamma.xlsx"), map[string][][]interface{}{
		"Sheet": {{"short"}},
	}, []string{"Sheet"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.xlsx"), []byte("nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$acme.xlsx"), []byte("lock"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.xls"), []byte("skip"), 0o644))

	counts, err := TemplateCounts(dir, TemplateOptions{})
	require.NoError(t, err)
	require.Len(t, counts, 4)

	acme := counts[0]
	assert.Equal(t, "acme.xlsx", acme.Filename)
	assert.NoError(t, acme.Err)
	assert.Equal(t, 5, acme.CompleteRows, "cells past the header and blank-looking spaces count as filled")
	assert.True(t, decimal.RequireFromString("16").Equal(acme.Sales), acme.Sales.String())

	beta := counts[1]
	assert.Equal(t, "beta.xlsx", beta.Filename)
	assert.NoError(t, beta.Err)
	assert.Zero(t, beta.CompleteRows)
	assert.True(t, beta.Sales.IsZero())

	broken := counts[2]
	assert.Equal(t, "broken.xlsx", broken.Filename)
	assert.Error(t, broken.Err)

	gamma := counts[3]
	assert.Zero(t, gamma.CompleteRows)
	assert.True(t, gamma.Sales.IsZero())
}

func TestTemplateCounts_MissingFolder(t *testing.T) {
	_, err := TemplateCounts(filepath.Join(t.TempDir(), "none"), TemplateOptions{})
	assert.Error(t, err)
}

func TestWriteTemplateCounts(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports", "templateCounts.xlsx")
	counts := []TemplateCount{
		{Filename: "a.xlsx", CompleteRows: 3, Sales: decimal.RequireFromString("16.00")},
		{Filename: "b.xlsx", Err: assert.AnError},
	}
	require.NoError(t, WriteTemplateCounts(out, counts))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Filename", "Complete Rows (>5 columns)", "Sales"}, rows[0])
	assert.Equal(t, []string{"a.xlsx", "3", "16"}, rows[1])
	assert.Equal(t, []string{"b.xlsx", "Error", "Error"}, rows[2])
}
