package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/lib/pq"
)

const planColumns = `id, transformer_id, name, category, recurrence, next_due, assigned_to, checklist,
	status, started_at, started_by, last_completed_at, completion_count, created_by, archived, archived_at,
	version, created_at, updated_at`

// planRow carries the checklist as a TEXT[] column
type planRow struct {
	models.MaintenancePlan
	Checklist pq.StringArray `db:"checklist"`
}

func toPlanRow(p *models.MaintenancePlan) *planRow {
	return &planRow{MaintenancePlan: *p, Checklist: pq.StringArray(p.Checklist)}
}

func (row *planRow) model() *models.MaintenancePlan {
	p := row.MaintenancePlan
	p.Checklist = []string(row.Checklist)
	if p.Checklist == nil {
		p.Checklist = []string{}
	}
	return &p
}

type planRepository struct {
	db dbExecutor
}

// NewPlanRepository creates a new PostgreSQL maintenance plan repository
func NewPlanRepository(db dbExecutor) ports.PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(ctx context.Context, p *models.MaintenancePlan) error {
	defer observe("plan_create")()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	stampCreate(&p.Version, &p.CreatedAt, &p.UpdatedAt)

	query := `
		INSERT INTO maintenance_plans (` + planColumns + `)
		VALUES (:id, :transformer_id, :name, :category, :recurrence, :next_due, :assigned_to, :checklist,
			:status, :started_at, :started_by, :last_completed_at, :completion_count, :created_by, :archived, :archived_at,
			:version, :created_at, :updated_at)
		RETURNING version
	`
	stmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	if err := stmt.GetContext(ctx, &p.Version, toPlanRow(p)); err != nil {
		return translateError(err, "create maintenance plan")
	}
	return nil
}

func (r *planRepository) GetByID(ctx context.Context, id string) (*models.MaintenancePlan, error) {
	defer observe("plan_get")()

	var row planRow
	query := r.db.Rebind(`SELECT ` + planColumns + ` FROM maintenance_plans WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NotFound(models.EntityMaintenancePlan, id)
		}
		return nil, fmt.Errorf("failed to get maintenance plan: %w", err)
	}
	return row.model(), nil
}

func (r *planRepository) List(ctx context.Context, filter models.PlanFilter, page models.Page) ([]*models.MaintenancePlan, error) {
	defer observe("plan_list")()

	var w whereClause
	w.when(!filter.IncludeArchived, "archived = FALSE")
	w.when(filter.TransformerID != "", "transformer_id = ?", filter.TransformerID)
	w.when(filter.AssignedTo != "", "assigned_to = ?", filter.AssignedTo)
	w.when(filter.Category != "", "category = ?", filter.Category)

	query, args := w.query(r.db, `SELECT `+planColumns+` FROM maintenance_plans`, "next_due, id", page)
	var rows []planRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list maintenance plans: %w", err)
	}

	result := make([]*models.MaintenancePlan, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].model())
	}
	return result, nil
}

func (r *planRepository) Update(ctx context.Context, p *models.MaintenancePlan) error {
	defer observe("plan_update")()

	query := `
		UPDATE maintenance_plans SET
			transformer_id = :transformer_id, name = :name, category = :category, recurrence = :recurrence,
			next_due = :next_due, assigned_to = :assigned_to, checklist = :checklist, status = :status,
			started_at = :started_at, started_by = :started_by, last_completed_at = :last_completed_at,
			completion_count = :completion_count, archived = :archived, archived_at = :archived_at,
			updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version
	`
	if err := guardedUpdate(ctx, r.db, query, "maintenance_plans", models.EntityMaintenancePlan, p.ID, p.Version, toPlanRow(p)); err != nil {
		return err
	}
	p.Version++
	return nil
}

func (r *planRepository) Archive(ctx context.Context, id string) error {
	defer observe("plan_archive")()
	return archiveRow(ctx, r.db, "maintenance_plans", models.EntityMaintenancePlan, id, true)
}

func (r *planRepository) CountActiveByTransformer(ctx context.Context, transformerID string) (int, error) {
	defer observe("plan_count_active")()

	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM maintenance_plans WHERE transformer_id = ? AND archived = FALSE`)
	if err := r.db.GetContext(ctx, &count, query, transformerID); err != nil {
		return 0, fmt.Errorf("failed to count maintenance plans: %w", err)
	}
	return count, nil
}
