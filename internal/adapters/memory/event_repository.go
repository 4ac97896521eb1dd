package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hsdfat8/assettrack/internal/domain/models"
)

// EventRepository is an in-memory append-only reconciliation log
type EventRepository struct {
	mu     sync.RWMutex
	events []*models.ReconciliationEvent
}

// NewEventRepository creates a new in-memory event repository
func NewEventRepository() *EventRepository {
	return &EventRepository{events: make([]*models.ReconciliationEvent, 0)}
}

func (r *EventRepository) Append(ctx context.Context, e *models.ReconciliationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	for _, existing := range r.events {
		if existing.ID == e.ID {
			return models.Validation("reconciliation event %q already exists", e.ID)
		}
	}
	c := *e
	r.events = append(r.events, &c)
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.ReconciliationEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.events {
		if e.ID == id {
			c := *e
			return &c, nil
		}
	}
	return nil, models.NotFound(models.EntityReconciliationEvent, id)
}

func (r *EventRepository) List(ctx context.Context, filter models.EventFilter, page models.Page) ([]*models.ReconciliationEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.ReconciliationEvent, 0)
	// Walk backwards so equal timestamps keep most-recently-appended first
	for i := len(r.events) - 1; i >= 0; i-- {
		if filter.Matches(r.events[i]) {
			c := *r.events[i]
			result = append(result, &c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].ReconciledAt.After(result[j].ReconciledAt) })
	return models.Paginate(result, page), nil
}

func (r *EventRepository) Latest(ctx context.Context, transformerID string) (*models.ReconciliationEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *models.ReconciliationEvent
	for _, e := range r.events {
		if e.TransformerID != transformerID {
			continue
		}
		if latest == nil || !e.ReconciledAt.Before(latest.ReconciledAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, models.NotFound(models.EntityReconciliationEvent, transformerID)
	}
	c := *latest
	return &c, nil
}

func (r *EventRepository) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.events {
		if e.ID == id {
			r.events = append(r.events[:i], r.events[i+1:]...)
			return
		}
	}
}
