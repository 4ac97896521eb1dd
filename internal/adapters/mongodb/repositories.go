package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// orderedID returns a time-ordered identifier so log entries sort by insertion
func orderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// transformerRepository implements the TransformerRepository interface using MongoDB
type transformerRepository struct {
	collection
}

// NewTransformerRepository creates a new MongoDB transformer repository
func NewTransformerRepository(db *mongo.Database, sess mongo.Session) ports.TransformerRepository {
	return &transformerRepository{newCollection(db, transformersCollection, sess)}
}

func (r *transformerRepository) Create(ctx context.Context, t *models.Transformer) error {
	defer observe("transformer_create")()
	stampCreate(&t.Version, &t.CreatedAt, &t.UpdatedAt)
	return r.insert(ctx, models.EntityTransformer, t.ID, t)
}

func (r *transformerRepository) GetByID(ctx context.Context, id string) (*models.Transformer, error) {
	return r.getBy(ctx, "transformer_get", "_id", id)
}

func (r *transformerRepository) GetByQRCode(ctx context.Context, code string) (*models.Transformer, error) {
	return r.getBy(ctx, "transformer_get_by_qr", "qr_code", code)
}

func (r *transformerRepository) GetByGPSID(ctx context.Context, gpsID string) (*models.Transformer, error) {
	return r.getBy(ctx, "transformer_get_by_gps", "gps_id", gpsID)
}

func (r *transformerRepository) getBy(ctx context.Context, operation, field, key string) (*models.Transformer, error) {
	defer observe(operation)()
	if key == "" {
		return nil, models.NotFound(models.EntityTransformer, key)
	}
	var t models.Transformer
	if err := r.findOne(ctx, models.EntityTransformer, key, bson.M{field: key}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transformerRepository) List(ctx context.Context, filter models.TransformerFilter, page models.Page) ([]*models.Transformer, error) {
	defer observe("transformer_list")()
	result := make([]*models.Transformer, 0)
	if err := r.findAll(ctx, models.EntityTransformer, transformerQuery(filter), findOptions(page, byID), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *transformerRepository) Update(ctx context.Context, t *models.Transformer) error {
	defer observe("transformer_update")()
	next := t.Clone()
	next.Version = t.Version + 1
	if err := r.replaceVersioned(ctx, models.EntityTransformer, t.ID, t.Version, next); err != nil {
		return err
	}
	t.Version++
	return nil
}

func (r *transformerRepository) Archive(ctx context.Context, id string) error {
	defer observe("transformer_archive")()
	return r.archive(ctx, models.EntityTransformer, id, true)
}

type planRepository struct {
	collection
}

// NewPlanRepository creates a new MongoDB maintenance plan repository
func NewPlanRepository(db *mongo.Database, sess mongo.Session) ports.PlanRepository {
	return &planRepository{newCollection(db, plansCollection, sess)}
}

func (r *planRepository) Create(ctx context.Context, p *models.MaintenancePlan) error {
	defer observe("plan_create")()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	stampCreate(&p.Version, &p.CreatedAt, &p.UpdatedAt)
	return r.insert(ctx, models.EntityMaintenancePlan, p.ID, p)
}

func (r *planRepository) GetByID(ctx context.Context, id string) (*models.MaintenancePlan, error) {
	defer observe("plan_get")()
	var p models.MaintenancePlan
	if err := r.findOne(ctx, models.EntityMaintenancePlan, id, bson.M{"_id": id}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *planRepository) List(ctx context.Context, filter models.PlanFilter, page models.Page) ([]*models.MaintenancePlan, error) {
	defer observe("plan_list")()
	result := make([]*models.MaintenancePlan, 0)
	if err := r.findAll(ctx, models.EntityMaintenancePlan, planQuery(filter), findOptions(page, byNextDue), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *planRepository) Update(ctx context.Context, p *models.MaintenancePlan) error {
	defer observe("plan_update")()
	next := p.Clone()
	next.Version = p.Version + 1
	if err := r.replaceVersioned(ctx, models.EntityMaintenancePlan, p.ID, p.Version, next); err != nil {
		return err
	}
	p.Version++
	return nil
}

func (r *planRepository) Archive(ctx context.Context, id string) error {
	defer observe("plan_archive")()
	return r.archive(ctx, models.EntityMaintenancePlan, id, true)
}

func (r *planRepository) CountActiveByTransformer(ctx context.Context, transformerID string) (int, error) {
	defer observe("plan_count_active")()
	n, err := r.coll.CountDocuments(r.bind(ctx), planQuery(models.PlanFilter{TransformerID: transformerID}))
	if err != nil {
		return 0, fmt.Errorf("failed to count maintenance plans: %w", err)
	}
	return int(n), nil
}

type recordRepository struct {
	collection
}

// NewRecordRepository creates a new MongoDB maintenance record repository
func NewRecordRepository(db *mongo.Database, sess mongo.Session) ports.RecordRepository {
	return &recordRepository{newCollection(db, recordsCollection, sess)}
}

func (r *recordRepository) Create(ctx context.Context, rec *models.MaintenanceRecord) error {
	defer observe("record_create")()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	stampCreate(&rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	return r.insert(ctx, models.EntityMaintenanceRecord, rec.ID, rec)
}

func (r *recordRepository) GetByID(ctx context.Context, id string) (*models.MaintenanceRecord, error) {
	defer observe("record_get")()
	var rec models.MaintenanceRecord
	if err := r.findOne(ctx, models.EntityMaintenanceRecord, id, bson.M{"_id": id}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recordRepository) List(ctx context.Context, filter models.RecordFilter, page models.Page) ([]*models.MaintenanceRecord, error) {
	defer observe("record_list")()
	result := make([]*models.MaintenanceRecord, 0)
	if err := r.findAll(ctx, models.EntityMaintenanceRecord, recordQuery(filter), findOptions(page, byPerformedAt), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *recordRepository) Update(ctx context.Context, rec *models.MaintenanceRecord) error {
	defer observe("record_update")()
	next := rec.Clone()
	next.Version = rec.Version + 1
	if err := r.replaceVersioned(ctx, models.EntityMaintenanceRecord, rec.ID, rec.Version, next); err != nil {
		return err
	}
	rec.Version++
	return nil
}

func (r *recordRepository) Archive(ctx context.Context, id string) error {
	defer observe("record_archive")()
	return r.archive(ctx, models.EntityMaintenanceRecord, id, false)
}

type eventRepository struct {
	collection
}

// NewEventRepository creates a new MongoDB reconciliation event log
func NewEventRepository(db *mongo.Database, sess mongo.Session) ports.EventRepository {
	return &eventRepository{newCollection(db, eventsCollection, sess)}
}

func (r *eventRepository) Append(ctx context.Context, e *models.ReconciliationEvent) error {
	defer observe("event_append")()
	if e.ID == "" {
		e.ID = orderedID()
	}
	return r.insert(ctx, models.EntityReconciliationEvent, e.ID, e)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*models.ReconciliationEvent, error) {
	defer observe("event_get")()
	var e models.ReconciliationEvent
	if err := r.findOne(ctx, models.EntityReconciliationEvent, id, bson.M{"_id": id}, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *eventRepository) List(ctx context.Context, filter models.EventFilter, page models.Page) ([]*models.ReconciliationEvent, error) {
	defer observe("event_list")()
	result := make([]*models.ReconciliationEvent, 0)
	if err := r.findAll(ctx, models.EntityReconciliationEvent, eventQuery(filter), findOptions(page, byReconciled), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *eventRepository) Latest(ctx context.Context, transformerID string) (*models.ReconciliationEvent, error) {
	defer observe("event_latest")()
	var e models.ReconciliationEvent
	opts := options.FindOne().SetSort(byReconciled)
	if err := r.findOne(ctx, models.EntityReconciliationEvent, transformerID, bson.M{"transformer_id": transformerID}, &e, opts); err != nil {
		return nil, err
	}
	return &e, nil
}

type userRepository struct {
	collection
}

// NewUserRepository creates a new MongoDB user repository
func NewUserRepository(db *mongo.Database, sess mongo.Session) ports.UserRepository {
	return &userRepository{newCollection(db, usersCollection, sess)}
}

func (r *userRepository) Create(ctx context.Context, u *models.User) error {
	defer observe("user_create")()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	stampCreate(&u.Version, &u.CreatedAt, &u.UpdatedAt)
	return r.insert(ctx, models.EntityUser, u.ID, u)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	defer observe("user_get")()
	var u models.User
	if err := r.findOne(ctx, models.EntityUser, id, bson.M{"_id": id}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	defer observe("user_get_by_email")()
	var u models.User
	email = strings.TrimSpace(email)
	opts := options.FindOne().SetCollation(caseInsensitive)
	if err := r.findOne(ctx, models.EntityUser, email, bson.M{"email": email}, &u, opts); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) List(ctx context.Context, filter models.UserFilter, page models.Page) ([]*models.User, error) {
	defer observe("user_list")()
	result := make([]*models.User, 0)
	if err := r.findAll(ctx, models.EntityUser, userQuery(filter), findOptions(page, byName), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *userRepository) Update(ctx context.Context, u *models.User) error {
	defer observe("user_update")()
	next := u.Clone()
	next.Version = u.Version + 1
	if err := r.replaceVersioned(ctx, models.EntityUser, u.ID, u.Version, next); err != nil {
		return err
	}
	u.Version++
	return nil
}

type changeLogRepository struct {
	collection
}

// NewChangeLogRepository creates a new MongoDB change log
func NewChangeLogRepository(db *mongo.Database, sess mongo.Session) ports.ChangeLogRepository {
	return &changeLogRepository{newCollection(db, changesCollection, sess)}
}

func (r *changeLogRepository) Append(ctx context.Context, c *models.ChangeRecord) error {
	defer observe("change_append")()
	if c.ID == "" {
		c.ID = orderedID()
	}
	if c.ChangedAt.IsZero() {
		c.ChangedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(r.bind(ctx), c); err != nil {
		return fmt.Errorf("failed to append change record: %w", err)
	}
	return nil
}

func (r *changeLogRepository) List(ctx context.Context, filter models.ChangeFilter, page models.Page) ([]*models.ChangeRecord, error) {
	defer observe("change_list")()
	result := make([]*models.ChangeRecord, 0)
	if err := r.findAll(ctx, "change record", changeQuery(filter), findOptions(page, byChangedAt), &result); err != nil {
		return nil, err
	}
	return result, nil
}
