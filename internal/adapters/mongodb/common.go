package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	transformersCollection = "transformers"
	plansCollection        = "maintenance_plans"
	recordsCollection      = "maintenance_records"
	eventsCollection       = "reconciliation_events"
	usersCollection        = "users"
	changesCollection      = "change_log"
)

// caseInsensitive compares strings by base letters only
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// collection binds a collection to an optional transaction session
type collection struct {
	coll *mongo.Collection
	sess mongo.Session
}

func newCollection(db *mongo.Database, name string, sess mongo.Session) collection {
	return collection{coll: db.Collection(name), sess: sess}
}

// bind attaches the session, if any, so operations join its transaction
func (c collection) bind(ctx context.Context) context.Context {
	if c.sess == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, c.sess)
}

func observe(operation string) func() {
	start := time.Now()
	return func() {
		logger.DatabaseQueryDuration.WithLabelValues("mongodb", operation).Observe(time.Since(start).Seconds())
	}
}

// findOne decodes a single document or reports NotFound
func (c collection) findOne(ctx context.Context, entity models.EntityKind, key string, filter bson.M, dest interface{}, opts ...*options.FindOneOptions) error {
	err := c.coll.FindOne(c.bind(ctx), filter, opts...).Decode(dest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.NotFound(entity, key)
		}
		return fmt.Errorf("failed to get %s: %w", entity, err)
	}
	return nil
}

// insert stores a new document, mapping duplicate keys to validation errors
func (c collection) insert(ctx context.Context, entity models.EntityKind, id string, doc interface{}) error {
	if _, err := c.coll.InsertOne(c.bind(ctx), doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Validation("%s %q conflicts with an existing document", entity, id)
		}
		return fmt.Errorf("failed to create %s: %w", entity, err)
	}
	return nil
}

// replaceVersioned swaps the document stored at version for doc
func (c collection) replaceVersioned(ctx context.Context, entity models.EntityKind, id string, version int64, doc interface{}) error {
	ctx = c.bind(ctx)
	result, err := c.coll.ReplaceOne(ctx, bson.M{"_id": id, "version": version}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Validation("%s %q conflicts with an existing document", entity, id)
		}
		return fmt.Errorf("failed to update %s: %w", entity, err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	n, err := c.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to read %s version: %w", entity, err)
	}
	if n == 0 {
		return models.NotFound(entity, id)
	}
	return models.VersionConflict(entity, id, version)
}

// archive soft-deletes a document and bumps its version
func (c collection) archive(ctx context.Context, entity models.EntityKind, id string, stampArchivedAt bool) error {
	now := time.Now().UTC()
	set := bson.M{"archived": true, "updated_at": now}
	if stampArchivedAt {
		set["archived_at"] = now
	}
	result, err := c.coll.UpdateOne(c.bind(ctx), bson.M{"_id": id}, bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", entity, err)
	}
	if result.MatchedCount == 0 {
		return models.NotFound(entity, id)
	}
	return nil
}

// findAll decodes every document matching filter into results
func (c collection) findAll(ctx context.Context, entity models.EntityKind, filter bson.M, opts *options.FindOptions, results interface{}) error {
	ctx = c.bind(ctx)
	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", entity, err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, results); err != nil {
		return fmt.Errorf("failed to decode %s: %w", entity, err)
	}
	return nil
}

// findOptions applies the sort order and page window
func findOptions(page models.Page, sort bson.D) *options.FindOptions {
	opts := options.Find().SetSort(sort)
	if page.Offset > 0 {
		opts.SetSkip(int64(page.Offset))
	}
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}
	return opts
}

func containsFold(text string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(text), "$options": "i"}
}

func equalFold(text string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(text) + "$", "$options": "i"}
}

func timeRange(filter bson.M, field string, from, to *time.Time) {
	if from == nil && to == nil {
		return
	}
	cond := bson.M{}
	if from != nil {
		cond["$gte"] = *from
	}
	if to != nil {
		cond["$lte"] = *to
	}
	filter[field] = cond
}

func notArchived(filter bson.M, include bool) {
	if !include {
		filter["archived"] = bson.M{"$ne": true}
	}
}

func stampCreate(version *int64, createdAt, updatedAt *time.Time) {
	*version = 1
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		*updatedAt = *createdAt
	}
}
