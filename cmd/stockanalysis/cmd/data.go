package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/ingest"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/service"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Convert YAML price dumps into per-symbol CSV files",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := ingest.ExtractYAML(cfg.Data.YAMLDir, cfg.Data.CSVDir)
		if err != nil {
			return err
		}
		fmt.Printf("Extracted %d records for %d symbols from %d files (%d skipped) into %s\n",
			res.Records, len(res.Symbols), res.Files, res.SkippedFiles, cfg.Data.CSVDir)
		if len(res.RejectedTickers) > 0 {
			fmt.Printf("  rejected tickers: %s\n", strings.Join(res.RejectedTickers, ", "))
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load CSV prices and the sector file into PostgreSQL",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return err
		}

		summary, err := service.Import(context.Background(), db, cfg.Data.CSVDir, cfg.Data.SectorFile, ingestOptions(), nil)
		if err != nil {
			return err
		}
		for _, s := range summary.Sources {
			if !s.Accepted {
				fmt.Printf("  skipped %s: %s\n", s.Name, s.Reason)
			}
		}
		fmt.Printf("Imported %d price records and %d sector assignments\n", summary.Records, summary.SectorsWritten)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Migrate()
	},
}
