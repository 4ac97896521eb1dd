package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hsdfat8/assettrack/internal/domain/models"
)

// RecordRepository is an in-memory maintenance record store
type RecordRepository struct {
	mu   sync.RWMutex
	rows map[string]*models.MaintenanceRecord
}

// NewRecordRepository creates a new in-memory record repository
func NewRecordRepository() *RecordRepository {
	return &RecordRepository{rows: make(map[string]*models.MaintenanceRecord)}
}

func (r *RecordRepository) Create(ctx context.Context, rec *models.MaintenanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, exists := r.rows[rec.ID]; exists {
		return models.Validation("maintenance record %q already exists", rec.ID)
	}
	stampCreate(&rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	r.rows[rec.ID] = rec.Clone()
	return nil
}

func (r *RecordRepository) GetByID(ctx context.Context, id string) (*models.MaintenanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.rows[id]
	if !ok {
		return nil, models.NotFound(models.EntityMaintenanceRecord, id)
	}
	return rec.Clone(), nil
}

func (r *RecordRepository) List(ctx context.Context, filter models.RecordFilter, page models.Page) ([]*models.MaintenanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.MaintenanceRecord, 0)
	for _, rec := range r.rows {
		if filter.Matches(rec) {
			result = append(result, rec.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].PerformedAt.Equal(result[j].PerformedAt) {
			return result[i].PerformedAt.After(result[j].PerformedAt)
		}
		return result[i].ID > result[j].ID
	})
	return models.Paginate(result, page), nil
}

func (r *RecordRepository) Update(ctx context.Context, rec *models.MaintenanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.rows[rec.ID]
	if !ok {
		return models.NotFound(models.EntityMaintenanceRecord, rec.ID)
	}
	if current.Version != rec.Version {
		return models.VersionConflict(models.EntityMaintenanceRecord, rec.ID, rec.Version)
	}

	rec.Version++
	r.rows[rec.ID] = rec.Clone()
	return nil
}

func (r *RecordRepository) Archive(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rows[id]
	if !ok {
		return models.NotFound(models.EntityMaintenanceRecord, id)
	}
	rec.Archived = true
	rec.UpdatedAt = time.Now().UTC()
	rec.Version++
	return nil
}

func (r *RecordRepository) snapshot(id string) *models.MaintenanceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.rows[id]; ok {
		return rec.Clone()
	}
	return nil
}

func (r *RecordRepository) restore(id string, prev *models.MaintenanceRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev == nil {
		delete(r.rows, id)
		return
	}
	r.rows[id] = prev
}
