package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// repositories binds one repository of each kind to an executor
type repositories struct {
	transformers ports.TransformerRepository
	plans        ports.PlanRepository
	records      ports.RecordRepository
	events       ports.EventRepository
	users        ports.UserRepository
	changes      ports.ChangeLogRepository
}

func newRepositories(db dbExecutor) repositories {
	return repositories{
		transformers: NewTransformerRepository(db),
		plans:        NewPlanRepository(db),
		records:      NewRecordRepository(db),
		events:       NewEventRepository(db),
		users:        NewUserRepository(db),
		changes:      NewChangeLogRepository(db),
	}
}

func (r repositories) Transformers() ports.TransformerRepository { return r.transformers }
func (r repositories) Plans() ports.PlanRepository               { return r.plans }
func (r repositories) Records() ports.RecordRepository           { return r.records }
func (r repositories) Events() ports.EventRepository             { return r.events }
func (r repositories) Users() ports.UserRepository               { return r.users }
func (r repositories) Changes() ports.ChangeLogRepository        { return r.changes }

// PostgresAdapter implements the DatabaseAdapter interface for PostgreSQL
type PostgresAdapter struct {
	repositories

	db     *sqlx.DB
	config *ports.PostgresConfig
}

// NewPostgresAdapter creates a new PostgreSQL database adapter
func NewPostgresAdapter(config *ports.PostgresConfig) *PostgresAdapter {
	return &PostgresAdapter{
		config: config,
	}
}

// NewPostgresAdapterWithDB wraps an already open connection pool
func NewPostgresAdapterWithDB(db *sqlx.DB, config *ports.PostgresConfig) *PostgresAdapter {
	a := &PostgresAdapter{config: config}
	a.attach(db)
	return a
}

func (a *PostgresAdapter) attach(db *sqlx.DB) {
	a.db = db
	a.repositories = newRepositories(db)
}

// Connect establishes a connection to the PostgreSQL database
func (a *PostgresAdapter) Connect(ctx context.Context) error {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		a.config.Host,
		a.config.Port,
		a.config.User,
		a.config.Password,
		a.config.Database,
		a.config.SSLMode,
	)

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(a.config.MaxOpenConns)
	db.SetMaxIdleConns(a.config.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(a.config.ConnMaxLifetime) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(a.config.ConnMaxIdleTime) * time.Second)

	a.attach(db)

	if a.config.AutoMigrate {
		if err := NewMigrator(db).Migrate(ctx); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
	}
	return nil
}

// Disconnect closes the database connection
func (a *PostgresAdapter) Disconnect(ctx context.Context) error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (a *PostgresAdapter) Ping(ctx context.Context) error {
	if a.db == nil {
		return fmt.Errorf("database not connected")
	}
	return a.db.PingContext(ctx)
}

// GetType returns the database type
func (a *PostgresAdapter) GetType() ports.DatabaseType {
	return ports.DatabaseTypePostgreSQL
}

// DB exposes the pool for maintenance tooling
func (a *PostgresAdapter) DB() *sqlx.DB {
	return a.db
}

// BeginTransaction starts a new database transaction
func (a *PostgresAdapter) BeginTransaction(ctx context.Context) (ports.Transaction, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &postgresTransaction{
		repositories: newRepositories(tx),
		tx:           tx,
	}, nil
}

// HealthCheck performs a health check on the database
func (a *PostgresAdapter) HealthCheck(ctx context.Context) error {
	if err := a.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	err := a.db.GetContext(ctx, &result, "SELECT 1")
	if err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}

	return nil
}

// GetConnectionStats returns database connection statistics
func (a *PostgresAdapter) GetConnectionStats() ports.ConnectionStats {
	stats := ports.ConnectionStats{
		MaxConnections:   a.config.MaxOpenConns,
		DatabaseType:     string(ports.DatabaseTypePostgreSQL),
		ConnectionString: fmt.Sprintf("%s:%d/%s", a.config.Host, a.config.Port, a.config.Database),
	}
	if a.db == nil {
		return stats
	}

	dbStats := a.db.Stats()
	stats.OpenConnections = dbStats.OpenConnections
	stats.IdleConnections = dbStats.Idle
	stats.Healthy = a.Ping(context.Background()) == nil
	return stats
}

// PurgeChangesBefore removes change records older than cutoff
func (a *PostgresAdapter) PurgeChangesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := a.db.ExecContext(ctx, `DELETE FROM change_log WHERE changed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge change log: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// OptimizeDatabase performs database optimization operations
func (a *PostgresAdapter) OptimizeDatabase(ctx context.Context) error {
	for _, table := range managedTables {
		_, err := a.db.ExecContext(ctx, fmt.Sprintf("VACUUM ANALYZE %s", table))
		if err != nil {
			return fmt.Errorf("failed to optimize table %s: %w", table, err)
		}
	}

	return nil
}

// postgresTransaction implements the Transaction interface
type postgresTransaction struct {
	repositories
	tx *sqlx.Tx
}

// Commit commits the transaction
func (t *postgresTransaction) Commit(ctx context.Context) error {
	return t.tx.Commit()
}

// Rollback rolls back the transaction
func (t *postgresTransaction) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
