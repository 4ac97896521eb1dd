package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ASSETTRACK_SERVER_PORT
const EnvPrefix = "ASSETTRACK"

// Config holds the application configuration
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Workflow       WorkflowConfig
	Reconciliation ReconciliationConfig
	Sweep          SweepConfig
	RabbitMQ       RabbitMQConfig
	Seed           SeedConfig
	Logging        LoggingConfig
	Metrics        MetricsConfig
	RateLimit      RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	EnableH2C       bool
	TLSCertFile     string
	TLSKeyFile      string
}

// Addr is the host:port listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TLSEnabled reports whether both certificate and key are configured
func (s ServerConfig) TLSEnabled() bool {
	return s.TLSCertFile != "" && s.TLSKeyFile != ""
}

// DatabaseConfig selects and configures the storage backend
type DatabaseConfig struct {
	Type     string // "memory", "postgres", "mongodb"
	Postgres ports.PostgresConfig
	MongoDB  ports.MongoDBConfig
}

// AdapterConfig converts to the adapter factory's configuration
func (d DatabaseConfig) AdapterConfig() *ports.DatabaseConfig {
	cfg := &ports.DatabaseConfig{Type: ports.DatabaseType(strings.ToLower(d.Type))}
	switch cfg.Type {
	case ports.DatabaseTypePostgreSQL:
		pg := d.Postgres
		cfg.PostgresConfig = &pg
	case ports.DatabaseTypeMongoDB:
		mongo := d.MongoDB
		cfg.MongoDBConfig = &mongo
	}
	return cfg
}

// WorkflowConfig bounds retries of versioned transitions
type WorkflowConfig struct {
	RetryAttempts int
	RetryBackoff  time.Duration
}

// ReconciliationConfig holds lookup session settings
type ReconciliationConfig struct {
	SessionTTL time.Duration
}

// SweepConfig holds the overdue plan sweep settings
type SweepConfig struct {
	Enabled  bool
	Interval time.Duration
	ActorID  string
	Renotify time.Duration
	Notifier string // "log", "rabbitmq"
}

// RabbitMQConfig holds the overdue notice broker settings
type RabbitMQConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// SeedConfig controls loading of a fixture fleet at startup
type SeedConfig struct {
	Enabled bool
	File    string // empty loads the embedded dataset
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string // "debug", "info", "warn", "error"
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool
}

// RateLimitConfig holds per-client request limits. A zero RPS disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// LoadEnv loads a .env file into the process environment when one exists
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/assettrack")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the application cannot start with
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch ports.DatabaseType(strings.ToLower(c.Database.Type)) {
	case ports.DatabaseTypeMemory, ports.DatabaseTypePostgreSQL, ports.DatabaseTypeMongoDB:
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Workflow.RetryAttempts < 1 {
		return fmt.Errorf("workflow.retryAttempts must be at least 1")
	}
	if c.Reconciliation.SessionTTL <= 0 {
		return fmt.Errorf("reconciliation.sessionTTL must be positive")
	}
	if c.Sweep.Enabled {
		if c.Sweep.ActorID == "" {
			return fmt.Errorf("sweep.actorID is required when the sweep is enabled")
		}
		switch c.Sweep.Notifier {
		case "log":
		case "rabbitmq":
			if c.RabbitMQ.URL == "" {
				return fmt.Errorf("rabbitmq.url is required for the rabbitmq notifier")
			}
		default:
			return fmt.Errorf("unsupported sweep notifier: %s", c.Sweep.Notifier)
		}
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rateLimit.rps must not be negative")
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("server.idleTimeout", "120s")
	v.SetDefault("server.shutdownTimeout", "10s")
	v.SetDefault("server.enableH2C", true)
	v.SetDefault("server.tlsCertFile", "")
	v.SetDefault("server.tlsKeyFile", "")

	// Database defaults
	v.SetDefault("database.type", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "assettrack")
	v.SetDefault("database.postgres.password", "assettrack")
	v.SetDefault("database.postgres.database", "assettrack")
	v.SetDefault("database.postgres.sslMode", "disable")
	v.SetDefault("database.postgres.maxOpenConns", 25)
	v.SetDefault("database.postgres.maxIdleConns", 5)
	v.SetDefault("database.postgres.connMaxLifetime", 300)
	v.SetDefault("database.postgres.connMaxIdleTime", 600)
	v.SetDefault("database.postgres.autoMigrate", true)
	v.SetDefault("database.mongodb.uri", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("database.mongodb.database", "assettrack")
	v.SetDefault("database.mongodb.maxPoolSize", 100)
	v.SetDefault("database.mongodb.minPoolSize", 10)
	v.SetDefault("database.mongodb.maxConnIdleTime", 300)
	v.SetDefault("database.mongodb.serverTimeout", 30)
	v.SetDefault("database.mongodb.socketTimeout", 30)
	v.SetDefault("database.mongodb.readPreference", "primary")
	v.SetDefault("database.mongodb.writeConcern", "majority")

	// Workflow defaults
	v.SetDefault("workflow.retryAttempts", 3)
	v.SetDefault("workflow.retryBackoff", "25ms")
	v.SetDefault("reconciliation.sessionTTL", "15m")

	// Sweep defaults
	v.SetDefault("sweep.enabled", false)
	v.SetDefault("sweep.interval", "1h")
	v.SetDefault("sweep.actorID", "")
	v.SetDefault("sweep.renotify", "24h")
	v.SetDefault("sweep.notifier", "log")
	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", "assettrack.maintenance")
	v.SetDefault("rabbitmq.routingKey", "maintenance.plan.overdue")

	// Seed defaults
	v.SetDefault("seed.enabled", false)
	v.SetDefault("seed.file", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)

	// Rate limit defaults
	v.SetDefault("rateLimit.rps", 0)
	v.SetDefault("rateLimit.burst", 20)
}
