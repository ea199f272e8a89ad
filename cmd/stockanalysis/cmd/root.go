// Package cmd holds the stockanalysis commands
package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/config"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/database"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/ingest"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/logger"
)

const (
	serviceName    = "stockanalysis"
	serviceVersion = "1.0.0"
)

var (
	cfg     *config.Config
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "stockanalysis",
	Short: "Daily equity price analytics",
	Long: `Daily equity price analytics

Commands:
    extract     convert YAML dumps into one CSV per symbol
    import      load CSV prices and sectors into PostgreSQL
    migrate     apply database migrations
    analyze     run every engine once and export the results
    serve       HTTP API with scheduled refresh and price bar consumer
    replay      publish the CSV history as price bar events
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
}

func initConfig() error {
	cfg = config.Load()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.LoggerConfig(serviceName)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.Debug().Str("version", serviceVersion).Msg("Configuration loaded")
	return nil
}

func ingestOptions() ingest.Options {
	opts := ingest.DefaultOptions()
	if cfg.Data.DefaultVolume > 0 {
		opts.DefaultVolume = cfg.Data.DefaultVolume
	}
	return opts
}

func openDatabase() (*database.DB, error) {
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("Database connected")
	return db, nil
}
