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

const recordColumns = `id, transformer_id, plan_id, performed_by, category, performed_at, notes, photo_count,
	status, archived, version, created_at, updated_at`

type recordRepository struct {
	db dbExecutor
}

// NewRecordRepository creates a new PostgreSQL maintenance record repository
func NewRecordRepository(db dbExecutor) ports.RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) Create(ctx context.Context, rec *models.MaintenanceRecord) error {
	defer observe("record_create")()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	stampCreate(&rec.Version, &rec.CreatedAt, &rec.UpdatedAt)

	query := `
		INSERT INTO maintenance_records (` + recordColumns + `)
		VALUES (:id, :transformer_id, :plan_id, :performed_by, :category, :performed_at, :notes, :photo_count,
			:status, :archived, :version, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return translateError(err, "create maintenance record")
	}
	return nil
}

func (r *recordRepository) GetByID(ctx context.Context, id string) (*models.MaintenanceRecord, error) {
	defer observe("record_get")()

	var rec models.MaintenanceRecord
	query := r.db.Rebind(`SELECT ` + recordColumns + ` FROM maintenance_records WHERE id = ?`)
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NotFound(models.EntityMaintenanceRecord, id)
		}
		return nil, fmt.Errorf("failed to get maintenance record: %w", err)
	}
	return &rec, nil
}

func (r *recordRepository) List(ctx context.Context, filter models.RecordFilter, page models.Page) ([]*models.MaintenanceRecord, error) {
	defer observe("record_list")()

	var w whereClause
	w.when(!filter.IncludeArchived, "archived = FALSE")
	w.when(filter.TransformerID != "", "transformer_id = ?", filter.TransformerID)
	w.when(filter.PlanID != "", "plan_id = ?", filter.PlanID)
	w.when(filter.PerformedBy != "", "performed_by = ?", filter.PerformedBy)
	w.when(filter.Status != "", "status = ?", filter.Status)
	w.timeRange("performed_at", filter.From, filter.To)

	query, args := w.query(r.db, `SELECT `+recordColumns+` FROM maintenance_records`, "performed_at DESC, id", page)
	result := make([]*models.MaintenanceRecord, 0)
	if err := r.db.SelectContext(ctx, &result, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list maintenance records: %w", err)
	}
	return result, nil
}

func (r *recordRepository) Update(ctx context.Context, rec *models.MaintenanceRecord) error {
	defer observe("record_update")()

	query := `
		UPDATE maintenance_records SET
			plan_id = :plan_id, performed_by = :performed_by, category = :category, performed_at = :performed_at,
			notes = :notes, photo_count = :photo_count, status = :status, archived = :archived,
			updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version
	`
	if err := guardedUpdate(ctx, r.db, query, "maintenance_records", models.EntityMaintenanceRecord, rec.ID, rec.Version, rec); err != nil {
		return err
	}
	rec.Version++
	return nil
}

func (r *recordRepository) Archive(ctx context.Context, id string) error {
	defer observe("record_archive")()
	return archiveRow(ctx, r.db, "maintenance_records", models.EntityMaintenanceRecord, id, false)
}
