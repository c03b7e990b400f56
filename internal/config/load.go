package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the recon.yaml layout.
type Config struct {
	PaymentRun string                   `yaml:"payment_run"`
	Logging    LoggingConfig            `yaml:"logging"`
	Google     GoogleConfig             `yaml:"google"`
	Warehouse  WarehouseConfig          `yaml:"warehouse"`
	Profiles   map[string]ProfileConfig `yaml:"profiles"`
	Validation ValidationConfig         `yaml:"validation"`
	Templates  TemplatesConfig          `yaml:"templates"`
	Services   []ServiceConfig          `yaml:"services"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	FolderPath    string `yaml:"folder_path"`
	RetentionDays int    `yaml:"retention_days"`
	Console       bool   `yaml:"console"`
}

type GoogleConfig struct {
	CredentialsFile string        `yaml:"credentials_file"`
	Worksheet       string        `yaml:"worksheet"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
}

type WarehouseConfig struct {
	Path              string            `yaml:"path"`
	TransactionsTable string            `yaml:"transactions_table"`
	SummaryTables     []string          `yaml:"summary_tables"`
	SheetToTable      map[string]string `yaml:"sheet_to_table"`
}

// ProfileConfig holds the per-run inputs of one mapping profile.
// TermsFile, when set, replaces the embedded term lists.
type ProfileConfig struct {
	Folder    string `yaml:"folder"`
	SheetID   string `yaml:"sheet_id"`
	TermsFile string `yaml:"terms_file"`
}

type ValidationConfig struct {
	OutputDir      string   `yaml:"output_dir"`
	ExclusionTerms []string `yaml:"exclusion_terms"`
}

type TemplatesConfig struct {
	Folder         string   `yaml:"folder"`
	Output         string   `yaml:"output"`
	HeaderRow      int      `yaml:"header_row"`
	MinFilledCells int      `yaml:"min_filled_cells"`
	SkipSheets     []string `yaml:"skip_sheets"`
}

// ServiceConfig is one entry of the services: list, started by start_order.
type ServiceConfig struct {
	Name       string                 `yaml:"name"`
	StartOrder int                    `yaml:"start_order"`
	Config     map[string]interface{} `yaml:"config"`
}

func DefaultConfig() *Config {
	return &Config{
		PaymentRun: DefaultPaymentRun,
		Logging: LoggingConfig{
			Level:         "info",
			FolderPath:    DefaultLogFolder,
			RetentionDays: DefaultRetentionDays,
			Console:       true,
		},
		Google: GoogleConfig{
			Worksheet:  DefaultWorksheet,
			MaxRetries: DefaultSheetsRetries,
			RetryDelay: DefaultSheetsRetryDelay,
		},
		Warehouse: WarehouseConfig{
			Path:              DefaultDuckDBPath,
			TransactionsTable: TransactionsTable,
			SummaryTables:     append([]string(nil), SummaryTables...),
			SheetToTable:      copyMap(SheetToTable),
		},
		Profiles: map[string]ProfileConfig{},
		Validation: ValidationConfig{
			OutputDir:      DefaultOutputDir,
			ExclusionTerms: append([]string(nil), ExclusionTerms...),
		},
		Templates: TemplatesConfig{
			HeaderRow:      TemplateHeaderRow,
			MinFilledCells: TemplateMinFilledCells,
			SkipSheets:     append([]string(nil), TemplateSkipSheets...),
		},
		Services: []ServiceConfig{
			{Name: "logger", StartOrder: 1},
			{Name: "warehouse", StartOrder: 2},
		},
	}
}

// Load reads a .env file (if present) and then the YAML config at path.
// A missing config file yields the defaults.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnvOverrides()
	cfg.fillDefaults()

	sort.SliceStable(cfg.Services, func(i, j int) bool {
		return cfg.Services[i].StartOrder < cfg.Services[j].StartOrder
	})
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RECON_DUCKDB_PATH"); v != "" {
		c.Warehouse.Path = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		c.Google.CredentialsFile = v
	}
	if v := os.Getenv("RECON_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("RECON_LOG_DIR"); v != "" {
		c.Logging.FolderPath = v
	}
	if v := os.Getenv("RECON_PAYMENT_RUN"); v != "" {
		c.PaymentRun = v
	}
}

// fillDefaults restores values a partial YAML file zeroed out.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.PaymentRun == "" {
		c.PaymentRun = def.PaymentRun
	}
	if c.Logging.FolderPath == "" {
		c.Logging.FolderPath = def.Logging.FolderPath
	}
	if c.Google.Worksheet == "" {
		c.Google.Worksheet = def.Google.Worksheet
	}
	if c.Google.MaxRetries == 0 {
		c.Google.MaxRetries = def.Google.MaxRetries
	}
	if c.Google.RetryDelay == 0 {
		c.Google.RetryDelay = def.Google.RetryDelay
	}
	if c.Warehouse.Path == "" {
		c.Warehouse.Path = def.Warehouse.Path
	}
	if c.Warehouse.TransactionsTable == "" {
		c.Warehouse.TransactionsTable = def.Warehouse.TransactionsTable
	}
	if len(c.Warehouse.SummaryTables) == 0 {
		c.Warehouse.SummaryTables = def.Warehouse.SummaryTables
	}
	if c.Warehouse.SheetToTable == nil {
		c.Warehouse.SheetToTable = def.Warehouse.SheetToTable
	}
	if c.Profiles == nil {
		c.Profiles = map[string]ProfileConfig{}
	}
	if c.Validation.OutputDir == "" {
		c.Validation.OutputDir = def.Validation.OutputDir
	}
	if len(c.Validation.ExclusionTerms) == 0 {
		c.Validation.ExclusionTerms = def.Validation.ExclusionTerms
	}
	if c.Templates.HeaderRow <= 0 {
		c.Templates.HeaderRow = def.Templates.HeaderRow
	}
	if c.Templates.MinFilledCells <= 0 {
		c.Templates.MinFilledCells = def.Templates.MinFilledCells
	}
	if c.Templates.SkipSheets == nil {
		c.Templates.SkipSheets = def.Templates.SkipSheets
	}
	if len(c.Services) == 0 {
		c.Services = def.Services
	}
}

// ServicesNamed returns the configured services whose name is in names,
// keeping start order.
func (c *Config) ServicesNamed(names ...string) []ServiceConfig {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []ServiceConfig
	for _, s := range c.Services {
		if want[s.Name] {
			out = append(out, c.withSettings(s))
		}
	}
	return out
}

// withSettings copies the logging and warehouse sections into the service
// config map. Those sections win over keys set under services:.
func (c *Config) withSettings(s ServiceConfig) ServiceConfig {
	m := make(map[string]interface{}, len(s.Config)+4)
	for k, v := range s.Config {
		m[k] = v
	}
	switch s.Name {
	case "logger":
		m["folder_path"] = c.Logging.FolderPath
		m["level"] = c.Logging.Level
		m["retention_days"] = c.Logging.RetentionDays
		m["console"] = c.Logging.Console
	case "warehouse":
		m["path"] = c.Warehouse.Path
	}
	s.Config = m
	return s
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
