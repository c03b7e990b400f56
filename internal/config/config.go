package config

import "time"

const (
	DefaultPaymentRun    = "YYYYMMDD"
	DefaultWorksheet     = "info"
	DefaultDuckDBPath    = "charlotte_pipe.duckdb"
	DefaultLogFolder     = "./logs"
	DefaultRetentionDays = 30
	DefaultOutputDir     = "outputs"

	// Sheets calls that hit quota or server errors are retried with
	// exponential backoff.
	DefaultSheetsRetries    = 3
	DefaultSheetsRetryDelay = time.Second

	TransactionsTable = "contractor_transactions"
	LoadAuditTable    = "load_audit"

	// Template workbooks keep their header on Excel row 6.
	TemplateHeaderRow      = 6
	TemplateMinFilledCells = 4
)

// SummaryTables are cleared before every summary load.
var SummaryTables = []string{
	"by_contractor",
	"exposure_summary",
	"program_summary",
	"offer_summary",
	"program_rate_summary",
	"by_item",
}

// SheetToTable covers summary sheets whose name is not the table name.
var SheetToTable = map[string]string{
	"By Contractor": "by_contractor",
	"By Item":       "by_item",
}

// ExclusionTerms flag competitor or non-covered products.
var ExclusionTerms = []string{
	"copper",
	"spears",
	"tyler",
	"JM eagle",
	"lasco",
	"ipex",
	"nibco",
}

// TemplateSkipSheets are sheet name fragments that never hold template data.
var TemplateSkipSheets = []string{"sample", "instructions"}
