package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"RebateRecon/internal/logger"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "recon.yaml")
	body := `payment_run: "20250901"
logging:
  folder_path: ` + filepath.Join(dir, "logs") + `
  console: false
warehouse:
  path: ` + filepath.Join(dir, "recon.duckdb") + `
validation:
  output_dir: ` + filepath.Join(dir, "outputs") + `
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { logger.SetGlobalLogger(nil) })
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	err := rootCmd.ExecuteContext(context.Background())
	shutdown()
	return out.String(), err
}

func writeSheet(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func TestWarehouseAndValidate(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	tx := filepath.Join(dir, "transactions_20250901.xlsx")
	writeSheet(t, tx, [][]interface{}{
		{"contractor_name", "archive_file_name", "item_description", "exclude", "potential_earnings", "pipe", "fittings"},
		{"Acme", "acme.xlsx", "NIBCO elbow", "N", "", "N", "N"},
		{"Acme", "acme.xlsx", "PVC pipe solid", "", "", "Y", ""},
		{"Beta", "beta.xlsx", "copper tubing", "Y", "4.10", "", ""},
	})

	out, err := runCLI(t, "", "-c", cfgPath, "warehouse", "load-transactions", tx)
	require.NoError(t, err, out)
	assert.Contains(t, out, "item_description")

	out, err = runCLI(t, "", "-c", cfgPath, "warehouse", "info")
	require.NoError(t, err, out)
	assert.Contains(t, out, "contractor_transactions\t3 rows")

	out, err = runCLI(t, "acme.xlsx 2\nbeta.xlsx 5\ngone.xlsx 1\n", "-c", cfgPath, "validate", "file-counts", "--input", "-")
	require.NoError(t, err, out)
	assert.Contains(t, out, "- Found with matching count: 1")
	assert.Contains(t, out, "- Found with count mismatch: 1")
	assert.Contains(t, out, "- Not found in DB: 1")
	report, err := os.ReadFile(filepath.Join(dir, "outputs", "file_count_results.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "found (count mismatch: input=5, db=1)")

	excl := filepath.Join(dir, "excl.csv")
	out, err = runCLI(t, "", "-c", cfgPath, "validate", "exclusions", "--output", excl)
	require.NoError(t, err, out)
	assert.Contains(t, out, "with 2 issues")

	pf := filepath.Join(dir, "pf.csv")
	out, err = runCLI(t, "", "-c", cfgPath, "validate", "pipe-fittings", "--output", pf)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Found 2 discrepancies")
}

func TestLoadSummariesRefusesDuplicate(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	summaries := filepath.Join(dir, "summaries.xlsx")
	writeSheet(t, summaries, [][]interface{}{
		{"contractor", "sales"},
		{"Acme", 100},
	})

	out, err := runCLI(t, "", "-c", cfgPath, "warehouse", "load-summaries", summaries)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Sheet1 -> Sheet1: 1 rows")

	_, err = runCLI(t, "", "-c", cfgPath, "warehouse", "load-summaries", summaries)
	assert.ErrorContains(t, err, "already loaded")

	out, err = runCLI(t, "", "-c", cfgPath, "warehouse", "load-summaries", "--force", summaries)
	require.NoError(t, err, out)
}

func TestAnalyzeDryRun(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	exports := filepath.Join(dir, "exports")
	require.NoError(t, os.MkdirAll(exports, 0o755))
	writeSheet(t, filepath.Join(exports, "acme.xlsx"), [][]interface{}{
		{"Invoice #", "MFR", "Qty", "Ext Price"},
		{"1", "Charlotte", 2, 10.5},
	})

	csvPath := filepath.Join(dir, "summary.csv")
	out, err := runCLI(t, "", "-c", cfgPath, "analyze", "--profile", "base", "--folder", exports, "--csv", csvPath, "--dry-run")
	require.NoError(t, err, out)
	assert.Contains(t, out, "analyzed 1 sheets with profile base")

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "20250901,acme.xlsx,Sheet1,"), lines[1])
}

func TestAnalyzeUnknownProfile(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "", "-c", writeConfig(t, dir), "analyze", "--profile", "nope", "--folder", dir, "--dry-run")
	assert.ErrorContains(t, err, `unknown profile "nope"`)
}

func TestTemplateCountsCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	templates := filepath.Join(dir, "templates")
	require.NoError(t, os.MkdirAll(templates, 0o755))
	writeSheet(t, filepath.Join(templates, "acme.xlsx"), [][]interface{}{
		{"title"}, {}, {}, {}, {},
		{"a", "b", "c", "d", "extended_price"},
		{"1", "2", "3", "4", 7.5},
	})
	output := filepath.Join(dir, "reports", "counts.xlsx")

	out, err := runCLI(t, "", "-c", cfgPath, "template-counts", "--folder", templates, "--output", output)
	require.NoError(t, err, out)
	assert.Contains(t, out, "acme.xlsx")
	assert.Contains(t, out, "7.50")
	assert.FileExists(t, output)
}
