package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/api"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/kafka"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/logger"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/scheduler"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/service"
)

const refreshTimeout = 5 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API with scheduled refresh",
	Long: `Serve the dashboard API.

Prices come from PostgreSQL when DB_ENABLED is set, otherwise from the CSV directory.
KAFKA_ENABLED publishes run events; KAFKA_CONSUME_BARS also stores incoming price bars.
SCHEDULE_ENABLED refreshes the report on SCHEDULE_SPEC and RETENTION_ENABLED prunes
stored history on RETENTION_SPEC. Ctrl+C stops the server.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", serviceVersion).Msg("Starting stock analysis server")

	c, err := build(ctx, wiring{
		fromDB:     cfg.Database.Enabled,
		persist:    cfg.Database.Enabled,
		publish:    cfg.Kafka.Enabled,
		cache:      cfg.Redis.Enabled,
		export:     cfg.Data.ExportDir,
		runTimeout: refreshTimeout,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	if cfg.Kafka.Enabled && cfg.Kafka.ConsumeBars {
		if c.db == nil {
			log.Warn().Msg("Price bar consumer needs DB_ENABLED, not starting it")
		} else {
			consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.PriceTopic, cfg.Kafka.GroupID, c.db, cfg.Data.DefaultVolume)
			consumer.OnStored(func(models.PriceRecord) {
				c.metrics.PriceBars.WithLabelValues("stored").Inc()
				if err := c.service.Invalidate(ctx); err != nil {
					log.Warn().Err(err).Msg("Failed to invalidate report after new price bar")
				}
			})
			go func() {
				if err := consumer.Start(ctx); err != nil {
					log.Error().Err(err).Msg("Price bar consumer stopped")
				}
			}()
		}
	}

	if _, err := c.service.Refresh(ctx); err != nil {
		if !errors.Is(err, service.ErrNoData) {
			return err
		}
		log.Warn().Msg("No price data yet, serving without a report")
	}

	retention := cfg.Retention.Enabled && c.db != nil
	if cfg.Retention.Enabled && c.db == nil {
		log.Warn().Msg("Retention needs DB_ENABLED, not scheduling it")
	}
	if cfg.Schedule.Enabled || retention {
		sched := scheduler.NewScheduler(ctx, c.service, refreshTimeout)
		if cfg.Schedule.Enabled {
			if err := sched.Register(cfg.Schedule.Spec); err != nil {
				return err
			}
		}
		if retention {
			prune := service.Retention{Store: c.db, RunsAge: cfg.Retention.RunsAge, PricesAge: cfg.Retention.PricesAge}
			if err := sched.RegisterTask("retention", cfg.Retention.Spec, prune.Run); err != nil {
				return err
			}
		}
		sched.Start()
		defer sched.Stop()
		log.Info().Time("next", sched.Next()).Msg("Scheduler enabled")
	}

	router := api.SetupRoutes(api.NewHandler(c.service, cfg.Analytics.TopKYearly, handlerOptions(c)...), c.metrics.Handler())
	access := logger.NewAccessLogger(cfg.Logging.LoggerConfig(serviceName))
	handler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Accept", "Content-Type"}),
	)(gorillaHandlers.CombinedLoggingHandler(access, router))

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", server.Addr).Msg("API server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutdown signal received, stopping server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("Stock analysis server stopped")
	return nil
}

// handlerOptions serves stored history from the database when there is one, and
// prices from the table behind the latest run otherwise
func handlerOptions(c *components) []api.Option {
	if c.db == nil {
		return []api.Option{api.WithPrices(c.service)}
	}
	return []api.Option{
		api.WithRunHistory(c.db),
		api.WithPrices(c.db),
		api.WithStocks(c.db),
	}
}
