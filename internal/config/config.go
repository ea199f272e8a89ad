package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/logger"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Logging   LoggingConfig
	Data      DataConfig
	Schedule  ScheduleConfig
	Retention RetentionConfig
	Analytics analytics.Config
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string `validate:"required,numeric"`
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string `validate:"required_if=Enabled true"`
	Port     string `validate:"required_if=Enabled true"`
	User     string
	Password string
	DBName   string `validate:"required_if=Enabled true"`
	SSLMode  string `validate:"oneof=disable require verify-ca verify-full"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string `validate:"required_if=Enabled true,dive,hostname_port"`
	Topic       string   `validate:"required_if=Enabled true"`
	PriceTopic  string
	GroupID     string
	ConsumeBars bool
}

// RedisConfig holds report cache configuration
type RedisConfig struct {
	Enabled   bool
	Addr      string `validate:"required_if=Enabled true"`
	Password  string
	DB        int `validate:"gte=0"`
	KeyPrefix string
	TTL       time.Duration `validate:"gte=0"`
}

// LoggingConfig holds log output configuration
type LoggingConfig struct {
	Level         string `validate:"oneof=trace debug info warn error"`
	Format        string `validate:"oneof=json pretty"`
	FileEnabled   bool
	FilePath      string
	RotationSize  int `validate:"gte=1"`
	RetentionDays int `validate:"gte=1"`
}

// DataConfig locates input and output files
type DataConfig struct {
	CSVDir        string `validate:"required"`
	YAMLDir       string
	SectorFile    string
	ExportDir     string `validate:"required"`
	DefaultVolume int64  `validate:"gte=0"`
}

// ScheduleConfig controls periodic refresh
type ScheduleConfig struct {
	Enabled bool
	Spec    string `validate:"required_if=Enabled true"`
}

// RetentionConfig controls pruning of stored history. A zero age disables pruning
// for that table.
type RetentionConfig struct {
	Enabled   bool
	Spec      string        `validate:"required_if=Enabled true"`
	RunsAge   time.Duration `validate:"gte=0"`
	PricesAge time.Duration `validate:"gte=0"`
}

// Load reads configuration from an optional .env file and the environment
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using environment variables")
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "stockanalysis"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Enabled:     getEnvBool("KAFKA_ENABLED", false),
			Brokers:     getEnvList("KAFKA_BROKERS", "localhost:9092"),
			Topic:       getEnv("KAFKA_TOPIC", "stock-analysis-events"),
			PriceTopic:  getEnv("KAFKA_PRICE_TOPIC", "stock-price-bars"),
			GroupID:     getEnv("KAFKA_GROUP_ID", "stock-analysis"),
			ConsumeBars: getEnvBool("KAFKA_CONSUME_BARS", false),
		},
		Redis: RedisConfig{
			Enabled:   getEnvBool("REDIS_ENABLED", false),
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "stockanalysis:"),
			TTL:       getEnvDuration("REDIS_TTL", time.Hour),
		},
		Logging: LoggingConfig{
			Level:         getEnv("LOG_LEVEL", "info"),
			Format:        getEnv("LOG_FORMAT", "json"),
			FileEnabled:   getEnvBool("LOG_FILE_ENABLED", false),
			FilePath:      getEnv("LOG_FILE_PATH", "logs"),
			RotationSize:  getEnvInt("LOG_ROTATION_SIZE_MB", 50),
			RetentionDays: getEnvInt("LOG_RETENTION_DAYS", 14),
		},
		Data: DataConfig{
			CSVDir:        getEnv("DATA_CSV_DIR", "data/csv"),
			YAMLDir:       getEnv("DATA_YAML_DIR", "data/yaml"),
			SectorFile:    getEnv("DATA_SECTOR_FILE", "data/sector_data.csv"),
			ExportDir:     getEnv("DATA_EXPORT_DIR", "powerbi"),
			DefaultVolume: int64(getEnvInt("DATA_DEFAULT_VOLUME", 1000000)),
		},
		Schedule: ScheduleConfig{
			Enabled: getEnvBool("SCHEDULE_ENABLED", false),
			Spec:    getEnv("SCHEDULE_SPEC", "0 30 18 * * 1-5"),
		},
		Retention: RetentionConfig{
			Enabled:   getEnvBool("RETENTION_ENABLED", false),
			Spec:      getEnv("RETENTION_SPEC", "0 0 3 * * *"),
			RunsAge:   getEnvDuration("RETENTION_RUNS_AGE", 90*24*time.Hour),
			PricesAge: getEnvDuration("RETENTION_PRICES_AGE", 0),
		},
		Analytics: analytics.Config{
			MaxSymbolsForCorrelation: getEnvInt("ANALYTICS_MAX_CORRELATION_SYMBOLS", analytics.DefaultMaxSymbolsForCorrelation),
			TopKYearly:               getEnvInt("ANALYTICS_TOP_K_YEARLY", analytics.DefaultTopKYearly),
			TopKMonthly:              getEnvInt("ANALYTICS_TOP_K_MONTHLY", analytics.DefaultTopKMonthly),
			TopNCumulative:           getEnvInt("ANALYTICS_TOP_N_CUMULATIVE", analytics.DefaultTopNCumulative),
			TradingDaysPerYear:       getEnvInt("ANALYTICS_TRADING_DAYS", analytics.DefaultTradingDaysPerYear),
		},
	}
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns host:port for the HTTP listener
func (s *ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

// LoggerConfig converts to the logger package settings
func (l *LoggingConfig) LoggerConfig(service string) logger.Config {
	return logger.Config{
		Level:         l.Level,
		Format:        l.Format,
		FileEnabled:   l.FileEnabled,
		FilePath:      l.FilePath,
		RotationSize:  l.RotationSize,
		RetentionDays: l.RetentionDays,
		ServiceName:   service,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer setting")
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-boolean setting")
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid duration setting")
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
