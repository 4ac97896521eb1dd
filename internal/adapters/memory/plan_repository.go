package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hsdfat8/assettrack/internal/domain/models"
)

// PlanRepository is an in-memory maintenance plan store
type PlanRepository struct {
	mu   sync.RWMutex
	rows map[string]*models.MaintenancePlan
}

// NewPlanRepository creates a new in-memory plan repository
func NewPlanRepository() *PlanRepository {
	return &PlanRepository{rows: make(map[string]*models.MaintenancePlan)}
}

func (r *PlanRepository) Create(ctx context.Context, p *models.MaintenancePlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := r.rows[p.ID]; exists {
		return models.Validation("maintenance plan %q already exists", p.ID)
	}
	stampCreate(&p.Version, &p.CreatedAt, &p.UpdatedAt)
	r.rows[p.ID] = p.Clone()
	return nil
}

func (r *PlanRepository) GetByID(ctx context.Context, id string) (*models.MaintenancePlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.rows[id]
	if !ok {
		return nil, models.NotFound(models.EntityMaintenancePlan, id)
	}
	return p.Clone(), nil
}

func (r *PlanRepository) List(ctx context.Context, filter models.PlanFilter, page models.Page) ([]*models.MaintenancePlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.MaintenancePlan, 0)
	for _, p := range r.rows {
		if filter.Matches(p) {
			result = append(result, p.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].NextDue.Equal(result[j].NextDue) {
			return result[i].NextDue.Before(result[j].NextDue)
		}
		return result[i].ID < result[j].ID
	})
	return models.Paginate(result, page), nil
}

func (r *PlanRepository) Update(ctx context.Context, p *models.MaintenancePlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.rows[p.ID]
	if !ok {
		return models.NotFound(models.EntityMaintenancePlan, p.ID)
	}
	if current.Version != p.Version {
		return models.VersionConflict(models.EntityMaintenancePlan, p.ID, p.Version)
	}

	p.Version++
	r.rows[p.ID] = p.Clone()
	return nil
}

func (r *PlanRepository) Archive(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.rows[id]
	if !ok {
		return models.NotFound(models.EntityMaintenancePlan, id)
	}
	now := time.Now().UTC()
	p.Archived = true
	p.ArchivedAt = &now
	p.UpdatedAt = now
	p.Version++
	return nil
}

func (r *PlanRepository) CountActiveByTransformer(ctx context.Context, transformerID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, p := range r.rows {
		if p.TransformerID == transformerID && p.Active() {
			count++
		}
	}
	return count, nil
}

func (r *PlanRepository) snapshot(id string) *models.MaintenancePlan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.rows[id]; ok {
		return p.Clone()
	}
	return nil
}

func (r *PlanRepository) restore(id string, prev *models.MaintenancePlan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev == nil {
		delete(r.rows, id)
		return
	}
	r.rows[id] = prev
}
