package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
)

const eventColumns = `id, transformer_id, reconciled_by, reconciled_at, gps_verified, photo_count, method, notes`

type eventRepository struct {
	db dbExecutor
}

// NewEventRepository creates a new PostgreSQL reconciliation event log
func NewEventRepository(db dbExecutor) ports.EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Append(ctx context.Context, e *models.ReconciliationEvent) error {
	defer observe("event_append")()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	query := `
		INSERT INTO reconciliation_events (` + eventColumns + `)
		VALUES (:id, :transformer_id, :reconciled_by, :reconciled_at, :gps_verified, :photo_count, :method, :notes)
	`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return translateError(err, "append reconciliation event")
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*models.ReconciliationEvent, error) {
	defer observe("event_get")()

	var e models.ReconciliationEvent
	query := r.db.Rebind(`SELECT ` + eventColumns + ` FROM reconciliation_events WHERE id = ?`)
	if err := r.db.GetContext(ctx, &e, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NotFound(models.EntityReconciliationEvent, id)
		}
		return nil, fmt.Errorf("failed to get reconciliation event: %w", err)
	}
	return &e, nil
}

func (r *eventRepository) List(ctx context.Context, filter models.EventFilter, page models.Page) ([]*models.ReconciliationEvent, error) {
	defer observe("event_list")()

	var w whereClause
	w.when(filter.TransformerID != "", "transformer_id = ?", filter.TransformerID)
	w.when(filter.ReconciledBy != "", "reconciled_by = ?", filter.ReconciledBy)
	w.timeRange("reconciled_at", filter.From, filter.To)

	query, args := w.query(r.db, `SELECT `+eventColumns+` FROM reconciliation_events`, "reconciled_at DESC, seq DESC", page)
	result := make([]*models.ReconciliationEvent, 0)
	if err := r.db.SelectContext(ctx, &result, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list reconciliation events: %w", err)
	}
	return result, nil
}

func (r *eventRepository) Latest(ctx context.Context, transformerID string) (*models.ReconciliationEvent, error) {
	defer observe("event_latest")()

	var e models.ReconciliationEvent
	query := r.db.Rebind(`
		SELECT ` + eventColumns + ` FROM reconciliation_events
		WHERE transformer_id = ?
		ORDER BY reconciled_at DESC, seq DESC
		LIMIT 1
	`)
	if err := r.db.GetContext(ctx, &e, query, transformerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NotFound(models.EntityReconciliationEvent, transformerID)
		}
		return nil, fmt.Errorf("failed to get latest reconciliation event: %w", err)
	}
	return &e, nil
}
