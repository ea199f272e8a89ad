package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	analyzeFromDB  bool
	analyzePersist bool
	analyzePublish bool
	analyzeOut     string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run every engine once and export CSV and XLSX tables",
	Long: `Run every engine once and export CSV and XLSX tables.

Examples:
  stockanalysis analyze                       # CSV directory in, powerbi/ out
  stockanalysis analyze --from-db --persist   # stored history in, results saved
  stockanalysis analyze --publish             # also announce the run on Kafka`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeFromDB, "from-db", false, "read prices and sectors from PostgreSQL")
	analyzeCmd.Flags().BoolVar(&analyzePersist, "persist", false, "save the report to PostgreSQL")
	analyzeCmd.Flags().BoolVar(&analyzePublish, "publish", false, "publish an analysis event to Kafka")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "export directory (default from DATA_EXPORT_DIR)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	out := analyzeOut
	if out == "" {
		out = cfg.Data.ExportDir
	}

	ctx := context.Background()
	c, err := build(ctx, wiring{
		fromDB:  analyzeFromDB,
		persist: analyzePersist,
		publish: analyzePublish,
		cache:   cfg.Redis.Enabled,
		export:  out,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	report, err := c.service.Refresh(ctx)
	if err != nil {
		return err
	}
	paths, err := c.service.Export()
	if err != nil {
		return err
	}

	s := report.Summary
	fmt.Printf("Run %s\n", report.RunID)
	fmt.Printf("  Symbols: %d (%d green, %d red)\n", s.TotalSymbols, s.Gainers, s.Losers)
	fmt.Printf("  Average yearly return: %.2f%%\n", s.AvgYearlyReturn)
	if len(report.TopGainers) > 0 {
		fmt.Printf("  Best: %s %.2f%%\n", report.TopGainers[0].Symbol, report.TopGainers[0].ReturnPct)
	}
	if len(report.TopLosers) > 0 {
		fmt.Printf("  Worst: %s %.2f%%\n", report.TopLosers[0].Symbol, report.TopLosers[0].ReturnPct)
	}
	fmt.Printf("  Sectors: %s\n", report.Sectors.Status)
	if report.Sectors.Message != "" {
		fmt.Printf("    %s\n", report.Sectors.Message)
	}
	fmt.Printf("Wrote %d files to %s\n", len(paths), out)
	return nil
}
