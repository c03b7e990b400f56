package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"RebateRecon/internal/appmanager"
	"RebateRecon/internal/config"
	"RebateRecon/internal/logger"
	"RebateRecon/internal/warehouse"
)

var (
	// Global flags
	cfgFile string
	envFile string
	verbose bool

	cfg     *config.Config
	manager *appmanager.AppManager
	log     *zap.Logger
)

// needsWarehouse marks commands that open the DuckDB file.
const needsWarehouse = "warehouse"

var rootCmd = &cobra.Command{
	Use:   "recon",
	Short: "Payment-run reconciliation tools for contractor rebate exports",
	Long: `recon prepares and checks a rebate payment run.

It maps contractor and wholesaler exports onto the canonical rebate fields,
appends the per-sheet summary to the shared Google spreadsheet, loads the
extracted summaries and transactions into DuckDB and runs the QC checks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile, envFile)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		services := []string{"logger"}
		if wantsWarehouse(cmd) {
			services = append(services, "warehouse")
		}
		manager = appmanager.NewAppManager()
		if skipped := manager.AutoRegisterServices(cfg.ServicesNamed(services...)); len(skipped) > 0 {
			fmt.Fprintf(os.Stderr, "unknown services ignored: %v\n", skipped)
		}
		if err := manager.StartAll(); err != nil {
			return err
		}
		log = logger.L().With(zap.String("command", cmd.CommandPath()))
		return nil
	},
}

func wantsWarehouse(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[needsWarehouse] == "true" {
			return true
		}
	}
	return false
}

// openWarehouse returns the warehouse started for this command.
func openWarehouse() (*warehouse.Warehouse, error) {
	if manager == nil {
		return nil, fmt.Errorf("services not started")
	}
	wh := manager.Warehouse()
	if wh == nil {
		return nil, fmt.Errorf("warehouse service is not configured")
	}
	return wh, nil
}

func shutdown() {
	if manager == nil {
		return
	}
	if err := manager.StopAll(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	manager = nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "recon.yaml", "Config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newTemplateCountsCmd())
	rootCmd.AddCommand(newWarehouseCmd())
	rootCmd.AddCommand(newValidateCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
