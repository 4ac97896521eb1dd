package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hsdfat8/assettrack/internal/adapters/postgres"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	var (
		databaseURL = flag.String("database-url", "", "PostgreSQL connection string (overrides individual flags)")
		host        = flag.String("host", "localhost", "Database host")
		port        = flag.Int("port", 5432, "Database port")
		user        = flag.String("user", "assettrack", "Database user")
		password    = flag.String("password", "assettrack", "Database password")
		dbname      = flag.String("dbname", "assettrack", "Database name")
		sslmode     = flag.String("sslmode", "disable", "SSL mode (disable, require, verify-ca, verify-full)")
		verify      = flag.Bool("verify", false, "Verify schema after migration")
		status      = flag.Bool("status", false, "Show migration status")
		purgeDays   = flag.Int("purge-changes-older-than", 0, "Delete change log entries older than this many days")
		optimize    = flag.Bool("optimize", false, "Run VACUUM ANALYZE on the managed tables")
	)

	flag.Parse()

	// Build connection string
	var dsn string
	if *databaseURL != "" {
		dsn = *databaseURL
	} else {
		dsn = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			*host, *port, *user, *password, *dbname, *sslmode,
		)
	}

	fmt.Println("Connecting to database...")
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to ping database: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Successfully connected to database!")

	migrator := postgres.NewMigrator(db)
	adapter := postgres.NewPostgresAdapterWithDB(db, &ports.PostgresConfig{
		Host:     *host,
		Port:     *port,
		Database: *dbname,
	})

	switch {
	case *status:
		if err := showMigrationStatus(ctx, migrator); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to get migration status: %v\n", err)
			os.Exit(1)
		}

	case *purgeDays > 0:
		cutoff := time.Now().UTC().AddDate(0, 0, -*purgeDays)
		purged, err := adapter.PurgeChangesBefore(ctx, cutoff)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to purge change log: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Purged %d change log entries before %s\n", purged, cutoff.Format(time.RFC3339))

	case *optimize:
		if err := adapter.OptimizeDatabase(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Optimization failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✓ Tables vacuumed and analyzed")

	default:
		if err := migrator.Migrate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}

		if *verify {
			if err := migrator.VerifySchema(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Schema verification failed: %v\n", err)
				os.Exit(1)
			}
		}
	}

	fmt.Println("\n✓ All operations completed successfully!")
}

func showMigrationStatus(ctx context.Context, migrator *postgres.Migrator) error {
	fmt.Println("\nMigration Status:")
	fmt.Println("================")

	migrations, err := migrator.GetMigrationStatus(ctx)
	if err != nil {
		return err
	}

	if len(migrations) == 0 {
		fmt.Println("No migrations have been applied yet.")
		return nil
	}

	for _, m := range migrations {
		fmt.Printf("\n✓ %s\n", m.MigrationName)
		fmt.Printf("  Description: %s\n", m.Description)
		fmt.Printf("  Applied at:  %s\n", m.AppliedAt.Format(time.RFC3339))
	}

	return nil
}
