package cmd

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/cache"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/database"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/export"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/ingest"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/kafka"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/metrics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/service"
)

// components are the collaborators built for one command
type components struct {
	db       *database.DB
	cache    *cache.ReportCache
	producer *kafka.Producer
	metrics  *metrics.Metrics
	service  *service.AnalysisService
}

type wiring struct {
	fromDB     bool
	persist    bool
	publish    bool
	cache      bool
	export     string
	runTimeout time.Duration
}

// build wires the analysis service. Prices come from the database when fromDB is set,
// otherwise from the CSV directory.
func build(ctx context.Context, w wiring) (*components, error) {
	c := &components{metrics: metrics.New()}
	opts := service.Options{Metrics: c.metrics, RunTimeout: w.runTimeout}

	if w.fromDB || w.persist {
		db, err := openDatabase()
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
		c.db = db
	}

	if w.fromDB {
		opts.Tables = service.StoreTableLoader(c.db)
		opts.Sectors = c.db.LoadSectorMap
	} else {
		opts.Tables = service.DirTableLoader(cfg.Data.CSVDir, ingestOptions(), c.metrics)
		opts.Sectors = ingest.SectorFileLoader(cfg.Data.SectorFile)
	}
	if w.persist {
		opts.Store = c.db
	}

	if w.cache {
		rc := cache.NewReportCache(cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB), cfg.Redis.KeyPrefix, cfg.Redis.TTL)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, report cache disabled")
			rc.Close()
		} else {
			c.cache = rc
			opts.Cache = rc
		}
	}

	if w.publish {
		c.producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		opts.Publisher = c.producer
	}

	if w.export != "" {
		opts.Exporter = export.NewExporter(w.export)
	}

	c.service = service.NewAnalysisService(analytics.NewEngine(cfg.Analytics), opts)
	return c, nil
}

func (c *components) Close() {
	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Kafka producer")
		}
	}
	if c.cache != nil {
		c.cache.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
}
