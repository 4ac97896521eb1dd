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

const userColumns = `id, name, email, phone, role, department, status, last_login, version, created_at, updated_at`

type userRepository struct {
	db dbExecutor
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db dbExecutor) ports.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *models.User) error {
	defer observe("user_create")()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	stampCreate(&u.Version, &u.CreatedAt, &u.UpdatedAt)

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (:id, :name, :email, :phone, :role, :department, :status, :last_login, :version, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, u); err != nil {
		return translateError(err, "create user")
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, "user_get", "id = ?", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "user_get_by_email", "LOWER(email) = LOWER(?)", email)
}

func (r *userRepository) getBy(ctx context.Context, operation, cond, key string) (*models.User, error) {
	defer observe(operation)()

	var u models.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + cond)
	if err := r.db.GetContext(ctx, &u, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NotFound(models.EntityUser, key)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) List(ctx context.Context, filter models.UserFilter, page models.Page) ([]*models.User, error) {
	defer observe("user_list")()

	var w whereClause
	w.when(filter.Role != "", "role = ?", filter.Role)
	w.when(filter.Status != "", "status = ?", filter.Status)
	if filter.SearchText != "" {
		like := likePattern(filter.SearchText)
		w.add("(name ILIKE ? OR email ILIKE ?)", like, like)
	}

	query, args := w.query(r.db, `SELECT `+userColumns+` FROM users`, "name, id", page)
	result := make([]*models.User, 0)
	if err := r.db.SelectContext(ctx, &result, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return result, nil
}

func (r *userRepository) Update(ctx context.Context, u *models.User) error {
	defer observe("user_update")()

	query := `
		UPDATE users SET
			name = :name, email = :email, phone = :phone, role = :role, department = :department,
			status = :status, last_login = :last_login, updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version
	`
	if err := guardedUpdate(ctx, r.db, query, "users", models.EntityUser, u.ID, u.Version, u); err != nil {
		return err
	}
	u.Version++
	return nil
}
