package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/models"
)

// TransformerRepository is an in-memory transformer store
type TransformerRepository struct {
	mu   sync.RWMutex
	rows map[string]*models.Transformer
}

// NewTransformerRepository creates a new in-memory transformer repository
func NewTransformerRepository() *TransformerRepository {
	return &TransformerRepository{rows: make(map[string]*models.Transformer)}
}

func (r *TransformerRepository) Create(ctx context.Context, t *models.Transformer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rows[t.ID]; exists {
		return models.Validation("transformer %q already exists", t.ID)
	}
	for _, existing := range r.rows {
		if t.QRCode != "" && existing.QRCode == t.QRCode {
			return models.Validation("QR code %q is already assigned to %s", t.QRCode, existing.ID)
		}
		if t.GPSID != "" && existing.GPSID == t.GPSID {
			return models.Validation("GPS id %q is already assigned to %s", t.GPSID, existing.ID)
		}
	}

	stampCreate(&t.Version, &t.CreatedAt, &t.UpdatedAt)
	r.rows[t.ID] = t.Clone()
	return nil
}

func (r *TransformerRepository) GetByID(ctx context.Context, id string) (*models.Transformer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.rows[id]
	if !ok {
		return nil, models.NotFound(models.EntityTransformer, id)
	}
	return t.Clone(), nil
}

func (r *TransformerRepository) GetByQRCode(ctx context.Context, code string) (*models.Transformer, error) {
	return r.findOne(code, func(t *models.Transformer) bool { return t.QRCode == code })
}

func (r *TransformerRepository) GetByGPSID(ctx context.Context, gpsID string) (*models.Transformer, error) {
	return r.findOne(gpsID, func(t *models.Transformer) bool { return t.GPSID == gpsID })
}

func (r *TransformerRepository) findOne(key string, match func(*models.Transformer) bool) (*models.Transformer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if key == "" {
		return nil, models.NotFound(models.EntityTransformer, key)
	}
	for _, t := range r.rows {
		if match(t) {
			return t.Clone(), nil
		}
	}
	return nil, models.NotFound(models.EntityTransformer, key)
}

func (r *TransformerRepository) List(ctx context.Context, filter models.TransformerFilter, page models.Page) ([]*models.Transformer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Transformer, 0)
	for _, t := range r.rows {
		if filter.Matches(t) {
			result = append(result, t.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return models.Paginate(result, page), nil
}

func (r *TransformerRepository) Update(ctx context.Context, t *models.Transformer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.rows[t.ID]
	if !ok {
		return models.NotFound(models.EntityTransformer, t.ID)
	}
	if current.Version != t.Version {
		return models.VersionConflict(models.EntityTransformer, t.ID, t.Version)
	}

	t.Version++
	r.rows[t.ID] = t.Clone()
	return nil
}

func (r *TransformerRepository) Archive(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.rows[id]
	if !ok {
		return models.NotFound(models.EntityTransformer, id)
	}
	now := time.Now().UTC()
	t.Archived = true
	t.ArchivedAt = &now
	t.UpdatedAt = now
	t.Version++
	return nil
}

func (r *TransformerRepository) snapshot(id string) *models.Transformer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.rows[id]; ok {
		return t.Clone()
	}
	return nil
}

func (r *TransformerRepository) restore(id string, prev *models.Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev == nil {
		delete(r.rows, id)
		return
	}
	r.rows[id] = prev
}

// stampCreate initializes the version and timestamps of a new entity
func stampCreate(version *int64, createdAt, updatedAt *time.Time) {
	*version = 1
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		*updatedAt = *createdAt
	}
}
