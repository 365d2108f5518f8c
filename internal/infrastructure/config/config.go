package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Storage     StorageConfig  `mapstructure:"storage"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Chains      ChainsConfig   `mapstructure:"chains"`
	Transfer    TransferConfig `mapstructure:"transfer"`
	Circle      CircleConfig   `mapstructure:"circle"`
	Wormhole    WormholeConfig `mapstructure:"wormhole"`
	Solana      SolanaConfig   `mapstructure:"solana"`
	Signer      SignerConfig   `mapstructure:"signer"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	Tracing     TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Host           string   `mapstructure:"host"`
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimit      int      `mapstructure:"rate_limit"` // requests per minute per client IP, 0 disables
}

// StorageConfig selects the transfer store: "postgres" or "memory".
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string `mapstructure:"migrations_path"`
}

type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
	// LockTTL is the lease of a per-transfer lock, in seconds.
	LockTTL int `mapstructure:"lock_ttl"`
}

// ChainsConfig points at an optional catalog file and the static fee schedule.
// An empty catalog file means the built-in catalog.
type ChainsConfig struct {
	CatalogFile string    `mapstructure:"catalog_file"`
	Fees        FeeConfig `mapstructure:"fees"`
}

// FeeConfig holds USDC decimal strings.
type FeeConfig struct {
	SourceChainFee       string            `mapstructure:"source_chain_fee"`
	DestinationChainFee  string            `mapstructure:"destination_chain_fee"`
	CCTPBridgeFee        string            `mapstructure:"cctp_bridge_fee"`
	WormholeBridgeFee    string            `mapstructure:"wormhole_bridge_fee"`
	SourceOverrides      map[string]string `mapstructure:"source_overrides"`
	DestinationOverrides map[string]string `mapstructure:"destination_overrides"`
}

type TransferConfig struct {
	// PollSchedule is a cron spec for the background poller.
	PollSchedule    string `mapstructure:"poll_schedule"`
	PollerEnabled   bool   `mapstructure:"poller_enabled"`
	PollConcurrency int    `mapstructure:"poll_concurrency"`
	MinPollInterval int    `mapstructure:"min_poll_interval"`
	ObserveTimeout  int    `mapstructure:"observe_timeout"`
	ListLimit       int    `mapstructure:"list_limit"`
	AutoRedeem      bool   `mapstructure:"auto_redeem"`
	// SubmissionTimeout is the age, in seconds, after which a transfer still
	// initiating is failed by the poller.
	SubmissionTimeout int `mapstructure:"submission_timeout"`
}

type CircleConfig struct {
	Environment string `mapstructure:"environment"`
	IrisURL     string `mapstructure:"iris_url"`
	LiveFees    bool   `mapstructure:"live_fees"`
}

type WormholeConfig struct {
	Environment string `mapstructure:"environment"`
	APIURL      string `mapstructure:"api_url"`
}

type SolanaConfig struct {
	RequireFinalized bool `mapstructure:"require_finalized"`
}

type SignerConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	CollectorURL string  `mapstructure:"collector_url"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// Load reads config.yaml from ./configs or the working directory, then applies
// environment overrides. A .env file is loaded first when present.
func Load() (*Config, error) {
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.allowed_origins", []string{"*"})
	viper.SetDefault("server.rate_limit", 600)

	viper.SetDefault("storage.driver", "postgres")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "usdc_bridge")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)
	viper.SetDefault("database.migrations_path", "file://migrations")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.lock_ttl", 30)

	viper.SetDefault("chains.catalog_file", "")
	viper.SetDefault("chains.fees.source_chain_fee", "0.001")
	viper.SetDefault("chains.fees.destination_chain_fee", "0.0005")
	viper.SetDefault("chains.fees.cctp_bridge_fee", "0.0001")
	viper.SetDefault("chains.fees.wormhole_bridge_fee", "0.0002")

	viper.SetDefault("transfer.poll_schedule", "@every 15s")
	viper.SetDefault("transfer.poller_enabled", true)
	viper.SetDefault("transfer.poll_concurrency", 8)
	viper.SetDefault("transfer.min_poll_interval", 5)
	viper.SetDefault("transfer.observe_timeout", 15)
	viper.SetDefault("transfer.list_limit", 500)
	viper.SetDefault("transfer.auto_redeem", false)
	viper.SetDefault("transfer.submission_timeout", 300)

	viper.SetDefault("circle.environment", "sandbox")
	viper.SetDefault("circle.live_fees", false)
	viper.SetDefault("wormhole.environment", "testnet")
	viper.SetDefault("solana.require_finalized", false)

	viper.SetDefault("signer.timeout", 30)

	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.topic", "usdc-bridge.transfer-events")
	viper.SetDefault("kafka.client_id", "usdc-bridge")

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.collector_url", "localhost:4317")
	viper.SetDefault("tracing.sample_rate", 0.1)
}

func overrideFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("server.port", p)
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
	}

	if redisURL := os.Getenv("REDIS_HOST"); redisURL != "" {
		viper.Set("redis.host", redisURL)
		viper.Set("redis.enabled", true)
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		viper.Set("redis.password", redisPassword)
	}

	if irisURL := os.Getenv("CIRCLE_IRIS_URL"); irisURL != "" {
		viper.Set("circle.iris_url", irisURL)
	}
	if circleEnv := os.Getenv("CIRCLE_ENVIRONMENT"); circleEnv != "" {
		viper.Set("circle.environment", circleEnv)
	}

	if wormholeURL := os.Getenv("WORMHOLE_API_URL"); wormholeURL != "" {
		viper.Set("wormhole.api_url", wormholeURL)
	}

	if signerURL := os.Getenv("SIGNER_BASE_URL"); signerURL != "" {
		viper.Set("signer.base_url", signerURL)
	}
	if signerKey := os.Getenv("SIGNER_API_KEY"); signerKey != "" {
		viper.Set("signer.api_key", signerKey)
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		var list []string
		for _, b := range strings.Split(brokers, ",") {
			if trimmed := strings.TrimSpace(b); trimmed != "" {
				list = append(list, trimmed)
			}
		}
		if len(list) > 0 {
			viper.Set("kafka.brokers", list)
			viper.Set("kafka.enabled", true)
		}
	}

	if otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); otelEndpoint != "" {
		viper.Set("tracing.collector_url", otelEndpoint)
		viper.Set("tracing.enabled", true)
	}
}

func validate(config *Config) error {
	switch config.Storage.Driver {
	case "postgres":
		if config.Database.URL == "" && (config.Database.Host == "" || config.Database.Name == "") {
			return fmt.Errorf("database configuration is incomplete")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	if config.Signer.BaseURL == "" {
		return fmt.Errorf("signer base URL is required")
	}

	if config.Kafka.Enabled && len(config.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}

	if config.Transfer.PollConcurrency < 1 {
		return fmt.Errorf("transfer poll concurrency must be at least 1")
	}
	if config.Transfer.MinPollInterval < 0 || config.Transfer.ObserveTimeout <= 0 {
		return fmt.Errorf("transfer poll timings must be positive")
	}
	if config.Transfer.SubmissionTimeout <= config.Signer.Timeout {
		return fmt.Errorf("transfer submission timeout must exceed the signer timeout")
	}

	return nil
}
