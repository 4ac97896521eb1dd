package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
)

const transformerColumns = `id, name, site, latitude, longitude, type, status, battery_percent, signal_strength,
	install_date, last_maintenance, last_reconciled_at, qr_code, gps_id, archived, archived_at,
	version, created_at, updated_at`

type transformerRepository struct {
	db dbExecutor
}

// NewTransformerRepository creates a new PostgreSQL transformer repository
func NewTransformerRepository(db dbExecutor) ports.TransformerRepository {
	return &transformerRepository{db: db}
}

func (r *transformerRepository) Create(ctx context.Context, t *models.Transformer) error {
	defer observe("transformer_create")()

	stampCreate(&t.Version, &t.CreatedAt, &t.UpdatedAt)
	query := `
		INSERT INTO transformers (` + transformerColumns + `)
		VALUES (:id, :name, :site, :latitude, :longitude, :type, :status, :battery_percent, :signal_strength,
			:install_date, :last_maintenance, :last_reconciled_at, :qr_code, :gps_id, :archived, :archived_at,
			:version, :created_at, :updated_at)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return translateError(err, "create transformer")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.Validation("transformer %q already exists", t.ID)
	}
	return nil
}

func (r *transformerRepository) GetByID(ctx context.Context, id string) (*models.Transformer, error) {
	return r.getBy(ctx, "transformer_get", "id", id)
}

func (r *transformerRepository) GetByQRCode(ctx context.Context, code string) (*models.Transformer, error) {
	return r.getBy(ctx, "transformer_get_by_qr", "qr_code", code)
}

func (r *transformerRepository) GetByGPSID(ctx context.Context, gpsID string) (*models.Transformer, error) {
	return r.getBy(ctx, "transformer_get_by_gps", "gps_id", gpsID)
}

func (r *transformerRepository) getBy(ctx context.Context, operation, column, key string) (*models.Transformer, error) {
	defer observe(operation)()

	if key == "" {
		return nil, models.NotFound(models.EntityTransformer, key)
	}
	var t models.Transformer
	query := r.db.Rebind(`SELECT ` + transformerColumns + ` FROM transformers WHERE ` + column + ` = ?`)
	err := r.db.GetContext(ctx, &t, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NotFound(models.EntityTransformer, key)
		}
		return nil, fmt.Errorf("failed to get transformer by %s: %w", column, err)
	}
	return &t, nil
}

func (r *transformerRepository) List(ctx context.Context, filter models.TransformerFilter, page models.Page) ([]*models.Transformer, error) {
	defer observe("transformer_list")()

	var w whereClause
	w.when(!filter.IncludeArchived, "archived = FALSE")
	w.when(filter.Status != "", "status = ?", filter.Status)
	w.when(filter.Site != "", "LOWER(site) = LOWER(?)", filter.Site)
	if filter.SearchText != "" {
		like := likePattern(filter.SearchText)
		w.add("(name ILIKE ? OR site ILIKE ? OR id ILIKE ?)", like, like, like)
	}

	query, args := w.query(r.db, `SELECT `+transformerColumns+` FROM transformers`, "id", page)
	result := make([]*models.Transformer, 0)
	if err := r.db.SelectContext(ctx, &result, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list transformers: %w", err)
	}
	return result, nil
}

func (r *transformerRepository) Update(ctx context.Context, t *models.Transformer) error {
	defer observe("transformer_update")()

	query := `
		UPDATE transformers SET
			name = :name, site = :site, latitude = :latitude, longitude = :longitude, type = :type,
			status = :status, battery_percent = :battery_percent, signal_strength = :signal_strength,
			install_date = :install_date, last_maintenance = :last_maintenance,
			last_reconciled_at = :last_reconciled_at, qr_code = :qr_code, gps_id = :gps_id,
			archived = :archived, archived_at = :archived_at, updated_at = :updated_at,
			version = version + 1
		WHERE id = :id AND version = :version
	`
	if err := guardedUpdate(ctx, r.db, query, "transformers", models.EntityTransformer, t.ID, t.Version, t); err != nil {
		return err
	}
	t.Version++
	return nil
}

func (r *transformerRepository) Archive(ctx context.Context, id string) error {
	defer observe("transformer_archive")()
	return archiveRow(ctx, r.db, "transformers", models.EntityTransformer, id, true)
}
