package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"RebateRecon/internal/gsheets"
	"RebateRecon/internal/logger"
	"RebateRecon/internal/mapping"
	"RebateRecon/internal/structure"
)

type analyzeOptions struct {
	profile    string
	folder     string
	sheetID    string
	worksheet  string
	paymentRun string
	csvPath    string
	dryRun     bool
}

func newAnalyzeCmd() *cobra.Command {
	var o analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Map the exports in a folder and append the sheet summary",
		Long: `Scans every spreadsheet in the profile folder, finds each sheet's header
row and data range, maps the headers onto the rebate fields and appends one
summary row per sheet to the shared spreadsheet.

rows_count is the number of data rows filled at least half way. The header
row is only taken off when it is itself half filled, so sheets with a sparse
header count one row more than pay runs that always subtracted it.

Example:
  recon analyze --profile credit --payment-run 20250901`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.profile, "profile", "p", "", "Mapping profile: "+strings.Join(mapping.ProfileNames(), "|"))
	f.StringVar(&o.folder, "folder", "", "Folder of exports (default: profile folder from config)")
	f.StringVar(&o.sheetID, "sheet-id", "", "Google spreadsheet id (default: profile sheet_id from config)")
	f.StringVar(&o.worksheet, "worksheet", "", "Worksheet to append to (default: google.worksheet)")
	f.StringVar(&o.paymentRun, "payment-run", "", "Payment run written to every row (default: payment_run)")
	f.StringVar(&o.csvPath, "csv", "", "Also write the summary to this CSV file")
	f.BoolVar(&o.dryRun, "dry-run", false, "Analyze only, do not touch the spreadsheet")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func resolveProfile(name string) (*mapping.Profile, error) {
	if pc, ok := cfg.Profiles[name]; ok && pc.TermsFile != "" {
		return mapping.LoadProfileFile(pc.TermsFile)
	}
	profiles, err := mapping.LoadProfiles()
	if err != nil {
		return nil, err
	}
	p, ok := profiles[name]
	if !ok {
		names := make([]string, 0, len(profiles))
		for n := range profiles {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown profile %q (want one of %s)", name, strings.Join(names, ", "))
	}
	return p, nil
}

func runAnalyze(cmd *cobra.Command, o analyzeOptions) error {
	p, err := resolveProfile(o.profile)
	if err != nil {
		return err
	}
	pc := cfg.Profiles[o.profile]
	folder := firstNonEmpty(o.folder, pc.Folder)
	if folder == "" {
		return fmt.Errorf("no folder for profile %s: pass --folder or set profiles.%s.folder", o.profile, o.profile)
	}
	run := firstNonEmpty(o.paymentRun, cfg.PaymentRun)

	analyzer := structure.NewAnalyzer(p, run, log)
	rows, err := analyzer.AnalyzeFolder(folder)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		log.Info("No data to summarize")
		return nil
	}

	if o.csvPath != "" {
		if err := structure.WriteCSV(o.csvPath, rows, p); err != nil {
			return err
		}
		log.Info("summary written", zap.String("csv", o.csvPath), zap.Int("rows", len(rows)))
	}
	if o.dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "analyzed %d sheets with profile %s (dry run)\n", len(rows), p.Name)
		return nil
	}

	sheetID := firstNonEmpty(o.sheetID, pc.SheetID)
	if sheetID == "" {
		return fmt.Errorf("no spreadsheet for profile %s: pass --sheet-id, --csv with --dry-run, or set profiles.%s.sheet_id", o.profile, o.profile)
	}
	api, err := gsheets.NewClient(cmd.Context(), cfg.Google.CredentialsFile)
	if err != nil {
		return err
	}
	worksheet := firstNonEmpty(o.worksheet, cfg.Google.Worksheet)
	res, err := gsheets.NewAppender(gsheets.WithRetry(api, log, cfg.Google.MaxRetries, cfg.Google.RetryDelay), log).Append(cmd.Context(), sheetID, worksheet, p.Columns, structure.Table(rows, p))
	if err != nil {
		return err
	}
	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit("summary appended",
			zap.String("profile", p.Name),
			zap.String("payment_run", run),
			zap.String("worksheet", res.Worksheet),
			zap.Int("start_row", res.StartRow),
			zap.Int("rows", res.Rows))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "appended %d rows to %s starting at row %d\n", res.Rows, res.Worksheet, res.StartRow)
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
