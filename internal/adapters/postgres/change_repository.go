package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
)

const changeColumns = `id, entity, entity_id, change_type, changed_by, changed_at, version, summary`

type changeLogRepository struct {
	db dbExecutor
}

// NewChangeLogRepository creates a new PostgreSQL change log
func NewChangeLogRepository(db dbExecutor) ports.ChangeLogRepository {
	return &changeLogRepository{db: db}
}

func (r *changeLogRepository) Append(ctx context.Context, c *models.ChangeRecord) error {
	defer observe("change_append")()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ChangedAt.IsZero() {
		c.ChangedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO change_log (` + changeColumns + `)
		VALUES (:id, :entity, :entity_id, :change_type, :changed_by, :changed_at, :version, :summary)
	`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("failed to append change record: %w", err)
	}
	return nil
}

func (r *changeLogRepository) List(ctx context.Context, filter models.ChangeFilter, page models.Page) ([]*models.ChangeRecord, error) {
	defer observe("change_list")()

	var w whereClause
	w.when(filter.Entity != "", "entity = ?", filter.Entity)
	w.when(filter.EntityID != "", "entity_id = ?", filter.EntityID)
	w.when(filter.ChangedBy != "", "changed_by = ?", filter.ChangedBy)
	w.timeRange("changed_at", filter.From, filter.To)

	query, args := w.query(r.db, `SELECT `+changeColumns+` FROM change_log`, "seq DESC", page)
	result := make([]*models.ChangeRecord, 0)
	if err := r.db.SelectContext(ctx, &result, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list change records: %w", err)
	}
	return result, nil
}
