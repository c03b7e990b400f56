package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"RebateRecon/internal/reports"
)

func newTemplateCountsCmd() *cobra.Command {
	var folder, output string
	cmd := &cobra.Command{
		Use:   "template-counts",
		Short: "Count complete rows and sales in returned contractor templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			folder = firstNonEmpty(folder, cfg.Templates.Folder)
			if folder == "" {
				return fmt.Errorf("pass --folder or set templates.folder")
			}
			output = firstNonEmpty(output, cfg.Templates.Output, filepath.Join("reports", "templateCounts.xlsx"))

			counts, err := reports.TemplateCounts(folder, reports.TemplateOptions{
				HeaderRow:      cfg.Templates.HeaderRow,
				MinFilledCells: cfg.Templates.MinFilledCells,
				SkipSheets:     cfg.Templates.SkipSheets,
				Log:            log,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range counts {
				if c.Err != nil {
					fmt.Fprintf(out, "%-40s Error\n", c.Filename)
					continue
				}
				fmt.Fprintf(out, "%-40s %6d %14s\n", c.Filename, c.CompleteRows, c.Sales.StringFixed(2))
			}
			if err := reports.WriteTemplateCounts(output, counts); err != nil {
				return err
			}
			log.Info("saved template counts", zap.String("output", output), zap.Int("files", len(counts)))
			return nil
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "Folder of returned templates (default: templates.folder)")
	cmd.Flags().StringVar(&output, "output", "", "Output workbook (default: templates.output)")
	return cmd
}
