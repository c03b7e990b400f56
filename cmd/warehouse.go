package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"RebateRecon/internal/logger"
	"RebateRecon/internal/warehouse"
)

func newWarehouseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "warehouse",
		Short:       "Load summaries and transactions into DuckDB",
		Annotations: map[string]string{needsWarehouse: "true"},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every row of the summary tables",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				wh, err := openWarehouse()
				if err != nil {
					return err
				}
				cleared, err := wh.ClearTables(cmd.Context(), cfg.Warehouse.SummaryTables)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %d tables\n", len(cleared))
				return nil
			},
		},
		newLoadSummariesCmd(),
		&cobra.Command{
			Use:   "load-transactions <transactions.xlsx>",
			Short: "Replace the transactions table with the first sheet of a workbook",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				wh, err := openWarehouse()
				if err != nil {
					return err
				}
				table := cfg.Warehouse.TransactionsTable
				cols, err := wh.LoadTransactions(cmd.Context(), args[0], table)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "table %s created with columns:\n", table)
				return printColumns(cmd, cols)
			},
		},
		&cobra.Command{
			Use:   "info [table]",
			Short: "Show a table's columns, or list the tables",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				wh, err := openWarehouse()
				if err != nil {
					return err
				}
				if len(args) == 0 {
					tables, err := wh.Tables(cmd.Context())
					if err != nil {
						return err
					}
					for _, t := range tables {
						n, err := wh.RowCount(cmd.Context(), t)
						if err != nil {
							return err
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rows\n", t, n)
					}
					return nil
				}
				cols, err := wh.TableInfo(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printColumns(cmd, cols)
			},
		},
	)
	return cmd
}

func newLoadSummariesCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "load-summaries <summaries.xlsx>",
		Short: "Append every sheet of a summary workbook to its table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wh, err := openWarehouse()
			if err != nil {
				return err
			}
			if !force {
				loaded, err := wh.AlreadyLoaded(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if loaded {
					return fmt.Errorf("%s was already loaded, pass --force to append it again", args[0])
				}
			}
			results, err := wh.LoadSummaries(cmd.Context(), args[0], cfg.Warehouse.SheetToTable)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %d rows\n", r.Sheet, r.Table, r.Rows)
			}
			if len(results) > 0 && logger.GlobalLogger != nil {
				logger.GlobalLogger.LogAudit("summaries loaded",
					zap.String("batch_id", results[0].BatchID),
					zap.String("file", args[0]),
					zap.String("checksum", results[0].Checksum),
					zap.Int("sheets", len(results)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Load even if the same file was loaded before")
	return cmd
}

func printColumns(cmd *cobra.Command, cols []warehouse.Column) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tNULLABLE")
	for _, c := range cols {
		fmt.Fprintf(tw, "%s\t%s\t%t\n", c.Name, c.Type, c.Nullable)
	}
	return tw.Flush()
}
