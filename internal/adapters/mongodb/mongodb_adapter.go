package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

type repositories struct {
	transformers ports.TransformerRepository
	plans        ports.PlanRepository
	records      ports.RecordRepository
	events       ports.EventRepository
	users        ports.UserRepository
	changes      ports.ChangeLogRepository
}

func newRepositories(db *mongo.Database, sess mongo.Session) repositories {
	return repositories{
		transformers: NewTransformerRepository(db, sess),
		plans:        NewPlanRepository(db, sess),
		records:      NewRecordRepository(db, sess),
		events:       NewEventRepository(db, sess),
		users:        NewUserRepository(db, sess),
		changes:      NewChangeLogRepository(db, sess),
	}
}

func (r repositories) Transformers() ports.TransformerRepository { return r.transformers }
func (r repositories) Plans() ports.PlanRepository               { return r.plans }
func (r repositories) Records() ports.RecordRepository           { return r.records }
func (r repositories) Events() ports.EventRepository             { return r.events }
func (r repositories) Users() ports.UserRepository               { return r.users }
func (r repositories) Changes() ports.ChangeLogRepository        { return r.changes }

// MongoDBAdapter implements the DatabaseAdapter interface for MongoDB.
// Transactions require a replica set deployment.
type MongoDBAdapter struct {
	repositories

	client *mongo.Client
	db     *mongo.Database
	config *ports.MongoDBConfig
}

// NewMongoDBAdapter creates a new MongoDB database adapter
func NewMongoDBAdapter(config *ports.MongoDBConfig) *MongoDBAdapter {
	return &MongoDBAdapter{
		config: config,
	}
}

// clientOptions translates the adapter configuration into driver options
func (a *MongoDBAdapter) clientOptions() *options.ClientOptions {
	clientOpts := options.Client().ApplyURI(a.config.URI)

	if a.config.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(uint64(a.config.MaxPoolSize))
	}
	if a.config.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(uint64(a.config.MinPoolSize))
	}
	if a.config.MaxConnIdleTime > 0 {
		clientOpts.SetMaxConnIdleTime(time.Duration(a.config.MaxConnIdleTime) * time.Second)
	}
	if a.config.ServerTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(time.Duration(a.config.ServerTimeout) * time.Second)
	}
	if a.config.SocketTimeout > 0 {
		clientOpts.SetSocketTimeout(time.Duration(a.config.SocketTimeout) * time.Second)
	}

	switch a.config.ReadPreference {
	case "primary":
		clientOpts.SetReadPreference(readpref.Primary())
	case "secondary":
		clientOpts.SetReadPreference(readpref.Secondary())
	case "primaryPreferred":
		clientOpts.SetReadPreference(readpref.PrimaryPreferred())
	case "secondaryPreferred":
		clientOpts.SetReadPreference(readpref.SecondaryPreferred())
	}

	if a.config.WriteConcern == "majority" {
		clientOpts.SetWriteConcern(writeconcern.Majority())
	}
	return clientOpts
}

// Connect establishes a connection to the MongoDB database
func (a *MongoDBAdapter) Connect(ctx context.Context) error {
	client, err := mongo.Connect(ctx, a.clientOptions())
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}

	a.client = client
	a.db = client.Database(a.config.Database)
	a.repositories = newRepositories(a.db, nil)

	if err = a.createIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// Disconnect closes the database connection
func (a *MongoDBAdapter) Disconnect(ctx context.Context) error {
	if a.client != nil {
		return a.client.Disconnect(ctx)
	}
	return nil
}

// Ping checks if the database connection is alive
func (a *MongoDBAdapter) Ping(ctx context.Context) error {
	if a.client == nil {
		return fmt.Errorf("database not connected")
	}
	return a.client.Ping(ctx, nil)
}

// GetType returns the database type
func (a *MongoDBAdapter) GetType() ports.DatabaseType {
	return ports.DatabaseTypeMongoDB
}

// BeginTransaction starts a new database transaction (session)
func (a *MongoDBAdapter) BeginTransaction(ctx context.Context) (ports.Transaction, error) {
	if a.client == nil {
		return nil, fmt.Errorf("database not connected")
	}
	session, err := a.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	err = session.StartTransaction()
	if err != nil {
		session.EndSession(ctx)
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	return &mongoTransaction{
		repositories: newRepositories(a.db, session),
		session:      session,
	}, nil
}

// HealthCheck performs a health check on the database
func (a *MongoDBAdapter) HealthCheck(ctx context.Context) error {
	if err := a.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	_, err := a.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}

	return nil
}

// GetConnectionStats returns database connection statistics
func (a *MongoDBAdapter) GetConnectionStats() ports.ConnectionStats {
	return ports.ConnectionStats{
		OpenConnections:  -1, // MongoDB driver doesn't expose this easily
		IdleConnections:  -1,
		MaxConnections:   a.config.MaxPoolSize,
		DatabaseType:     string(ports.DatabaseTypeMongoDB),
		ConnectionString: a.config.Database, // Don't expose full URI
		Healthy:          a.Ping(context.Background()) == nil,
	}
}

// PurgeChangesBefore removes change records older than cutoff
func (a *MongoDBAdapter) PurgeChangesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := a.db.Collection(changesCollection).DeleteMany(ctx, bson.M{
		"changed_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge change log: %w", err)
	}

	return result.DeletedCount, nil
}

// OptimizeDatabase performs database optimization operations
func (a *MongoDBAdapter) OptimizeDatabase(ctx context.Context) error {
	for _, collection := range allCollections {
		var result bson.M
		err := a.db.RunCommand(ctx, bson.D{
			{Key: "compact", Value: collection},
		}).Decode(&result)
		if err != nil {
			return fmt.Errorf("failed to compact collection %s: %w", collection, err)
		}
	}

	return nil
}

var allCollections = []string{
	transformersCollection, plansCollection, recordsCollection, eventsCollection, usersCollection, changesCollection,
}

// indexModels lists the indexes each collection needs
func indexModels() map[string][]mongo.IndexModel {
	nonEmpty := func(field string) *options.IndexOptions {
		return options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{field: bson.M{"$gt": ""}})
	}
	return map[string][]mongo.IndexModel{
		transformersCollection: {
			{Keys: bson.D{{Key: "qr_code", Value: 1}}, Options: nonEmpty("qr_code")},
			{Keys: bson.D{{Key: "gps_id", Value: 1}}, Options: nonEmpty("gps_id")},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "site", Value: 1}}},
		},
		plansCollection: {
			{Keys: bson.D{{Key: "transformer_id", Value: 1}, {Key: "archived", Value: 1}}},
			{Keys: bson.D{{Key: "next_due", Value: 1}}},
			{Keys: bson.D{{Key: "assigned_to", Value: 1}}},
		},
		recordsCollection: {
			{Keys: bson.D{{Key: "transformer_id", Value: 1}, {Key: "performed_at", Value: -1}}},
			{Keys: bson.D{{Key: "plan_id", Value: 1}}},
		},
		eventsCollection: {
			{Keys: bson.D{{Key: "transformer_id", Value: 1}, {Key: "reconciled_at", Value: -1}}},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}}},
		},
		changesCollection: {
			{Keys: bson.D{{Key: "entity", Value: 1}, {Key: "entity_id", Value: 1}, {Key: "changed_at", Value: -1}}},
			{Keys: bson.D{{Key: "changed_by", Value: 1}}},
		},
	}
}

// createIndexes creates necessary indexes for optimal performance
func (a *MongoDBAdapter) createIndexes(ctx context.Context) error {
	for name, models := range indexModels() {
		if _, err := a.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}

// mongoTransaction implements the Transaction interface
type mongoTransaction struct {
	repositories
	session mongo.Session
	done    bool
}

// Commit commits the transaction
func (t *mongoTransaction) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	err := t.session.CommitTransaction(ctx)
	t.session.EndSession(ctx)
	return err
}

// Rollback rolls back the transaction
func (t *mongoTransaction) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	err := t.session.AbortTransaction(ctx)
	t.session.EndSession(ctx)
	return err
}
