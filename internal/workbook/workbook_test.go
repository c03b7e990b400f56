package workbook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeXLSX(t *testing.T, path string, sheets map[string][][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func TestOpen_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	writeXLSX(t, path, map[string][][]interface{}{
		"Data": {
			{"Report"},
			{},
			{"Vendor", "Qty", "Price"},
			{"Charlotte", 10, 1.5},
		},
	})

	wb, err := Open(path, Options{})
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Data"}, wb.SheetNames())
	rows, err := wb.Rows("Data")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Report"}, rows[0])
	assert.Empty(t, rows[1])
	assert.Equal(t, []string{"Vendor", "Qty", "Price"}, rows[2])
	assert.Equal(t, "Charlotte", rows[3][0])
	assert.Equal(t, 3, Width(rows))
}

func TestOpen_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,\n1,2,\n\n"), 0o644))

	wb, err := Open(path, Options{})
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"export"}, wb.SheetNames())
	rows, err := wb.Rows("export")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, rows)

	_, err = wb.Rows("other")
	assert.Error(t, err)
}

func TestOpen_Unsupported(t *testing.T) {
	_, err := Open("notes.txt", Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOpen_CorruptXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))
	_, err := Open(path, Options{})
	assert.Error(t, err)
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.xlsx", "a.XLS", "~$a.xlsx", ".hidden.xlsx", "notes.txt", "c.xlsb"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.xlsx"), 0o755))

	files, err := FindFiles(dir, SupportedExtensions)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.XLS"),
		filepath.Join(dir, "b.xlsx"),
		filepath.Join(dir, "c.xlsb"),
	}, files)

	_, err = FindFiles(filepath.Join(dir, "missing"), SupportedExtensions)
	assert.Error(t, err)
}

func TestIsJunkFile(t *testing.T) {
	assert.True(t, IsJunkFile("~$book.xlsx"))
	assert.True(t, IsJunkFile("._book.xlsx"))
	assert.True(t, IsJunkFile("__MACOSX/book.xlsx"))
	assert.False(t, IsJunkFile("book.xlsx"))
}

func TestTrimHelpers(t *testing.T) {
	assert.Equal(t, []string{"a", "", "b"}, trimTrailingEmpty([]string{"a", "", "b", "", ""}))
	assert.Empty(t, trimTrailingEmpty([]string{"", ""}))
	assert.Len(t, trimTrailingRows([][]string{{"a"}, nil, {}}), 1)
}
