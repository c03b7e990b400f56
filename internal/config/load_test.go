package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultPaymentRun, cfg.PaymentRun)
	assert.Equal(t, DefaultWorksheet, cfg.Google.Worksheet)
	assert.Equal(t, DefaultSheetsRetries, cfg.Google.MaxRetries)
	assert.Equal(t, DefaultSheetsRetryDelay, cfg.Google.RetryDelay)
	assert.Equal(t, TransactionsTable, cfg.Warehouse.TransactionsTable)
	assert.Equal(t, SummaryTables, cfg.Warehouse.SummaryTables)
	assert.Equal(t, "by_item", cfg.Warehouse.SheetToTable["By Item"])
	assert.Equal(t, ExclusionTerms, cfg.Validation.ExclusionTerms)
	assert.Equal(t, TemplateHeaderRow, cfg.Templates.HeaderRow)
}

func TestLoad_YAMLAndSort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recon.yaml")
	data := `
payment_run: "20250901"
google:
  worksheet: summary
  retry_delay: 250ms
profiles:
  credit:
    folder: /data/credits
    sheet_id: abc123
validation:
  exclusion_terms: [copper]
services:
  - name: warehouse
    start_order: 2
  - name: logger
    start_order: 1
    config:
      retention_days: 7
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "20250901", cfg.PaymentRun)
	assert.Equal(t, "summary", cfg.Google.Worksheet)
	assert.Equal(t, 250*time.Millisecond, cfg.Google.RetryDelay)
	assert.Equal(t, "/data/credits", cfg.Profiles["credit"].Folder)
	assert.Equal(t, "abc123", cfg.Profiles["credit"].SheetID)
	assert.Equal(t, []string{"copper"}, cfg.Validation.ExclusionTerms)
	require.Len(t, cfg.Services, 2)
	assert.Equal(t, "logger", cfg.Services[0].Name)
	assert.Equal(t, 7, cfg.Services[0].Config["retention_days"])
	// untouched sections keep defaults
	assert.Equal(t, DefaultDuckDBPath, cfg.Warehouse.Path)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services: [:"), 0o644))

	_, err := Load(path, "")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RECON_DUCKDB_PATH", "/tmp/x.duckdb")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/tmp/sa.json")
	t.Setenv("RECON_LOG_LEVEL", "DEBUG")
	t.Setenv("RECON_PAYMENT_RUN", "20251001")

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/x.duckdb", cfg.Warehouse.Path)
	assert.Equal(t, "/tmp/sa.json", cfg.Google.CredentialsFile)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "20251001", cfg.PaymentRun)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("RECON_LOG_DIR="+dir+"\n"), 0o644))
	t.Setenv("RECON_LOG_DIR", "")
	os.Unsetenv("RECON_LOG_DIR")

	cfg, err := Load("", envPath)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Logging.FolderPath)
}

func TestServicesNamed(t *testing.T) {
	cfg := DefaultConfig()
	got := cfg.ServicesNamed("warehouse")
	require.Len(t, got, 1)
	assert.Equal(t, "warehouse", got[0].Name)
	assert.Equal(t, DefaultDuckDBPath, got[0].Config["path"])
	assert.Empty(t, cfg.ServicesNamed("cron"))

	cfg.Logging.FolderPath = "/tmp/recon-logs"
	cfg.Services[0].Config = map[string]interface{}{"folder_path": "ignored", "extra": 1}
	lg := cfg.ServicesNamed("logger")[0]
	assert.Equal(t, "/tmp/recon-logs", lg.Config["folder_path"])
	assert.Equal(t, 1, lg.Config["extra"])
	assert.Equal(t, DefaultRetentionDays, lg.Config["retention_days"])
	assert.Equal(t, "ignored", cfg.Services[0].Config["folder_path"], "source config untouched")
}
