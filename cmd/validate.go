package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"RebateRecon/internal/validation"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "validate",
		Short:       "Run the QC checks against the loaded transactions",
		Annotations: map[string]string{needsWarehouse: "true"},
	}
	cmd.AddCommand(newFileCountsCmd(), newExclusionsCmd(), newPipeFittingsCmd())
	return cmd
}

func outputPath(flag, name string) string {
	if flag != "" {
		return flag
	}
	return filepath.Join(cfg.Validation.OutputDir, name)
}

func newFileCountsCmd() *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "file-counts",
		Short: "Compare pasted \"<file> <count>\" lines with the loaded row counts",
		Long: `Reads one "<file name> <row count>" line per file from --input, or from
stdin when --input is "-". Counts must not contain thousands separators.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			} else {
				fmt.Fprintln(cmd.ErrOrStderr(), "Paste file names and counts, one per line (e.g. my_file.csv 120), then Ctrl+D.")
			}
			lines, err := validation.ParseCountLines(r)
			if err != nil {
				return err
			}

			wh, err := openWarehouse()
			if err != nil {
				return err
			}
			dbCounts, err := wh.FileCounts(cmd.Context(), cfg.Warehouse.TransactionsTable)
			if err != nil {
				return err
			}
			results := validation.CompareFileCounts(lines, dbCounts)
			path := outputPath(output, "file_count_results.csv")
			if err := validation.WriteFileCounts(path, results); err != nil {
				return err
			}

			s := validation.Summarize(results)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Results written to: %s\n\nSummary:\n", path)
			fmt.Fprintf(out, "- Input files checked: %d\n", s.Checked)
			fmt.Fprintf(out, "- Found with matching count: %d\n", s.Matched)
			fmt.Fprintf(out, "- Found with count mismatch: %d\n", s.Mismatched)
			fmt.Fprintf(out, "- Found without input count: %d\n", s.NoCount)
			fmt.Fprintf(out, "- Not found in DB: %d\n", s.NotFound)
			fmt.Fprintf(out, "- Missing from input: %d\n", s.Missing)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "-", `File of "<name> <count>" lines, "-" for stdin`)
	cmd.Flags().StringVar(&output, "output", "", "CSV report path (default: <output_dir>/file_count_results.csv)")
	return cmd
}

func newExclusionsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "exclusions",
		Short: "Flag competitor and non-covered products that are not excluded",
		RunE: func(cmd *cobra.Command, args []string) error {
			wh, err := openWarehouse()
			if err != nil {
				return err
			}
			issues, err := validation.ExclusionReport(cmd.Context(), wh,
				cfg.Warehouse.TransactionsTable, cfg.Validation.ExclusionTerms, log)
			if err != nil {
				return err
			}
			path := outputPath(output, "03_exclusions.csv")
			if err := validation.WriteExclusions(path, issues); err != nil {
				return err
			}
			log.Info("exclusions report written", zap.String("path", path), zap.Int("issues", len(issues)))
			fmt.Fprintf(cmd.OutOrStdout(), "Exclusions report written to %s with %d issues.\n", path, len(issues))
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "CSV report path (default: <output_dir>/03_exclusions.csv)")
	return cmd
}

func newPipeFittingsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "pipe-fittings",
		Short: "Check pipe and fittings flags against the item descriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			wh, err := openWarehouse()
			if err != nil {
				return err
			}
			found, err := validation.PipeFittingReport(cmd.Context(), wh, cfg.Warehouse.TransactionsTable, log)
			if err != nil {
				return err
			}
			path := outputPath(output, "pipe_fitting_discrepancies.csv")
			if err := validation.WritePipeFittings(path, found); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Validation complete. Found %d discrepancies.\n", len(found))
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "CSV report path (default: <output_dir>/pipe_fitting_discrepancies.csv)")
	return cmd
}
