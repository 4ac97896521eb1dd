package ports

import (
	"context"
)

// DatabaseType represents the type of database backend
type DatabaseType string

const (
	DatabaseTypeMemory     DatabaseType = "memory"
	DatabaseTypePostgreSQL DatabaseType = "postgres"
	DatabaseTypeMongoDB    DatabaseType = "mongodb"
)

// DatabaseAdapter defines the unified interface over every storage backend
type DatabaseAdapter interface {
	TxStore

	// Connect establishes a connection to the database
	Connect(ctx context.Context) error

	// Disconnect closes the database connection
	Disconnect(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// GetType returns the database type
	GetType() DatabaseType

	// HealthCheck performs a round trip query against the backend
	HealthCheck(ctx context.Context) error

	GetConnectionStats() ConnectionStats
}

// ConnectionStats provides database connection statistics
type ConnectionStats struct {
	OpenConnections  int    `json:"open_connections"`
	IdleConnections  int    `json:"idle_connections"`
	MaxConnections   int    `json:"max_connections"`
	DatabaseType     string `json:"database_type"`
	ConnectionString string `json:"connection_string"` // Sanitized, without credentials
	Healthy          bool   `json:"healthy"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type           DatabaseType    `yaml:"type" json:"type" mapstructure:"type"`
	PostgresConfig *PostgresConfig `yaml:"postgres,omitempty" json:"postgres,omitempty" mapstructure:"postgres"`
	MongoDBConfig  *MongoDBConfig  `yaml:"mongodb,omitempty" json:"mongodb,omitempty" mapstructure:"mongodb"`
}

// PostgresConfig holds PostgreSQL-specific configuration
type PostgresConfig struct {
	Host            string `yaml:"host" json:"host" mapstructure:"host"`
	Port            int    `yaml:"port" json:"port" mapstructure:"port"`
	User            string `yaml:"user" json:"user" mapstructure:"user"`
	Password        string `yaml:"password" json:"password" mapstructure:"password"`
	Database        string `yaml:"database" json:"database" mapstructure:"database"`
	SSLMode         string `yaml:"ssl_mode" json:"ssl_mode" mapstructure:"sslMode"`
	MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" mapstructure:"maxOpenConns"`
	MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" mapstructure:"maxIdleConns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" mapstructure:"connMaxLifetime"`    // in seconds
	ConnMaxIdleTime int    `yaml:"conn_max_idle_time" json:"conn_max_idle_time" mapstructure:"connMaxIdleTime"` // in seconds
	AutoMigrate     bool   `yaml:"auto_migrate" json:"auto_migrate" mapstructure:"autoMigrate"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI             string `yaml:"uri" json:"uri" mapstructure:"uri"`
	Database        string `yaml:"database" json:"database" mapstructure:"database"`
	MaxPoolSize     int    `yaml:"max_pool_size" json:"max_pool_size" mapstructure:"maxPoolSize"`
	MinPoolSize     int    `yaml:"min_pool_size" json:"min_pool_size" mapstructure:"minPoolSize"`
	MaxConnIdleTime int    `yaml:"max_conn_idle_time" json:"max_conn_idle_time" mapstructure:"maxConnIdleTime"` // in seconds
	ServerTimeout   int    `yaml:"server_timeout" json:"server_timeout" mapstructure:"serverTimeout"`          // in seconds
	SocketTimeout   int    `yaml:"socket_timeout" json:"socket_timeout" mapstructure:"socketTimeout"`          // in seconds
	ReadPreference  string `yaml:"read_preference" json:"read_preference" mapstructure:"readPreference"`       // primary, secondary, etc.
	WriteConcern    string `yaml:"write_concern" json:"write_concern" mapstructure:"writeConcern"`             // majority, etc.
}
