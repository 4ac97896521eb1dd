package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/hsdfat8/assettrack/internal/domain/models"
)

// ChangeLogRepository is an in-memory append-only change log
type ChangeLogRepository struct {
	mu      sync.RWMutex
	changes []*models.ChangeRecord
}

// NewChangeLogRepository creates a new in-memory change log
func NewChangeLogRepository() *ChangeLogRepository {
	return &ChangeLogRepository{changes: make([]*models.ChangeRecord, 0)}
}

func (r *ChangeLogRepository) Append(ctx context.Context, c *models.ChangeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	cp := *c
	r.changes = append(r.changes, &cp)
	return nil
}

func (r *ChangeLogRepository) List(ctx context.Context, filter models.ChangeFilter, page models.Page) ([]*models.ChangeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.ChangeRecord, 0)
	count := 0
	for i := len(r.changes) - 1; i >= 0; i-- {
		c := r.changes[i]
		if !filter.Matches(c) {
			continue
		}
		if count >= page.Offset {
			cp := *c
			result = append(result, &cp)
			if page.Limit > 0 && len(result) >= page.Limit {
				break
			}
		}
		count++
	}
	return result, nil
}

func (r *ChangeLogRepository) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.changes) - 1; i >= 0; i-- {
		if r.changes[i].ID == id {
			r.changes = append(r.changes[:i], r.changes[i+1:]...)
			return
		}
	}
}
