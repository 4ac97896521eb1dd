package factory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hsdfat8/assettrack/internal/adapters/memory"
	"github.com/hsdfat8/assettrack/internal/adapters/mongodb"
	"github.com/hsdfat8/assettrack/internal/adapters/postgres"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
)

// DatabaseAdapterFactory builds the store backend the workflows run on.
// Every backend it returns supports multi-entity transactions.
type DatabaseAdapterFactory struct{}

func NewDatabaseAdapterFactory() *DatabaseAdapterFactory {
	return &DatabaseAdapterFactory{}
}

func backendType(config *ports.DatabaseConfig) ports.DatabaseType {
	t := ports.DatabaseType(strings.ToLower(strings.TrimSpace(string(config.Type))))
	if t == "" {
		return ports.DatabaseTypeMemory
	}
	return t
}

// CreateAdapter returns an unconnected adapter for config
func (f *DatabaseAdapterFactory) CreateAdapter(config *ports.DatabaseConfig) (ports.DatabaseAdapter, error) {
	if config == nil {
		return nil, fmt.Errorf("database configuration is nil")
	}

	switch t := backendType(config); t {
	case ports.DatabaseTypeMemory:
		return memory.NewAdapter(), nil
	case ports.DatabaseTypePostgreSQL:
		if config.PostgresConfig == nil {
			return nil, fmt.Errorf("postgres section is required for the %s store", t)
		}
		return postgres.NewPostgresAdapter(config.PostgresConfig), nil
	case ports.DatabaseTypeMongoDB:
		if config.MongoDBConfig == nil {
			return nil, fmt.Errorf("mongodb section is required for the %s store", t)
		}
		return mongodb.NewMongoDBAdapter(config.MongoDBConfig), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}
}

// CreateAndConnectAdapter validates config, builds the adapter and connects it.
// A failed connect releases whatever the adapter opened.
func (f *DatabaseAdapterFactory) CreateAndConnectAdapter(ctx context.Context, config *ports.DatabaseConfig) (ports.DatabaseAdapter, error) {
	if err := f.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	adapter, err := f.CreateAdapter(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create adapter: %w", err)
	}

	if err := adapter.Connect(ctx); err != nil {
		_ = adapter.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to %s store: %w", adapter.GetType(), err)
	}
	return adapter, nil
}

// ValidateConfig reports every problem in config at once
func (f *DatabaseAdapterFactory) ValidateConfig(config *ports.DatabaseConfig) error {
	if config == nil {
		return fmt.Errorf("database configuration is nil")
	}

	switch backendType(config) {
	case ports.DatabaseTypeMemory:
		return nil
	case ports.DatabaseTypePostgreSQL:
		return validatePostgres(config.PostgresConfig)
	case ports.DatabaseTypeMongoDB:
		return validateMongoDB(config.MongoDBConfig)
	default:
		return fmt.Errorf("unsupported database type: %s", config.Type)
	}
}

func validatePostgres(c *ports.PostgresConfig) error {
	if c == nil {
		return fmt.Errorf("postgres configuration is nil")
	}
	var errs []error
	if c.Host == "" {
		errs = append(errs, fmt.Errorf("postgres host is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("postgres port must be between 1 and 65535"))
	}
	if c.User == "" {
		errs = append(errs, fmt.Errorf("postgres user is required"))
	}
	if c.Database == "" {
		errs = append(errs, fmt.Errorf("postgres database name is required"))
	}
	switch {
	case c.MaxOpenConns <= 0 || c.MaxIdleConns <= 0:
		errs = append(errs, fmt.Errorf("max_open_conns and max_idle_conns must be greater than 0"))
	case c.MaxIdleConns > c.MaxOpenConns:
		errs = append(errs, fmt.Errorf("max_idle_conns cannot be greater than max_open_conns"))
	}
	return errors.Join(errs...)
}

func validateMongoDB(c *ports.MongoDBConfig) error {
	if c == nil {
		return fmt.Errorf("mongodb configuration is nil")
	}
	var errs []error
	switch {
	case c.URI == "":
		errs = append(errs, fmt.Errorf("mongodb URI is required"))
	case !supportsTransactions(c.URI):
		// workflow writes span collections and need a replica set or a mongos
		errs = append(errs, fmt.Errorf("mongodb URI must name a replicaSet or use mongodb+srv"))
	}
	if c.Database == "" {
		errs = append(errs, fmt.Errorf("mongodb database name is required"))
	}
	if c.MaxPoolSize <= 0 {
		errs = append(errs, fmt.Errorf("max_pool_size must be greater than 0"))
	}
	if c.MinPoolSize < 0 || c.MinPoolSize > c.MaxPoolSize {
		errs = append(errs, fmt.Errorf("min_pool_size must be between 0 and max_pool_size"))
	}
	return errors.Join(errs...)
}

func supportsTransactions(uri string) bool {
	return strings.HasPrefix(uri, "mongodb+srv://") || strings.Contains(uri, "replicaSet=")
}

// GetDefaultPostgresConfig matches the docker-compose development database
func GetDefaultPostgresConfig() *ports.PostgresConfig {
	return &ports.PostgresConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "assettrack",
		Database:        "assettrack",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 300,
		ConnMaxIdleTime: 600,
		AutoMigrate:     true,
	}
}

// GetDefaultMongoDBConfig points at a single-node replica set
func GetDefaultMongoDBConfig() *ports.MongoDBConfig {
	return &ports.MongoDBConfig{
		URI:             "mongodb://localhost:27017/?replicaSet=rs0",
		Database:        "assettrack",
		MaxPoolSize:     100,
		MinPoolSize:     10,
		MaxConnIdleTime: 600,
		ServerTimeout:   30,
		SocketTimeout:   30,
		ReadPreference:  "primary",
		WriteConcern:    "majority",
	}
}

func CreateDefaultConfig(dbType ports.DatabaseType) *ports.DatabaseConfig {
	config := &ports.DatabaseConfig{Type: dbType}
	switch dbType {
	case ports.DatabaseTypePostgreSQL:
		config.PostgresConfig = GetDefaultPostgresConfig()
	case ports.DatabaseTypeMongoDB:
		config.MongoDBConfig = GetDefaultMongoDBConfig()
	}
	return config
}
