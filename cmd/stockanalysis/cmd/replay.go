package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/kafka"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/service"
)

var replaySource string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Publish the CSV price history to the price bar topic",
	Long: `Publish every bar in DATA_CSV_DIR to KAFKA_PRICE_TOPIC.

Instances running serve with KAFKA_CONSUME_BARS store the bars as they arrive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Kafka.PriceTopic == "" {
			return fmt.Errorf("KAFKA_PRICE_TOPIC is required for replay")
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.PriceTopic)
		defer func() {
			if err := producer.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close Kafka producer")
			}
		}()

		n, err := service.Replay(context.Background(), producer, cfg.Data.CSVDir, replaySource, ingestOptions(), nil)
		if err != nil {
			return err
		}
		fmt.Printf("Published %d price bars to %s\n", n, cfg.Kafka.PriceTopic)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replaySource, "source", "replay", "source name carried in each event")
}
