package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/logger"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// dbExecutor is an interface that both *sqlx.DB and *sqlx.Tx implement
// This allows repositories to work with either a database connection or a transaction
type dbExecutor interface {
	sqlx.Queryer
	sqlx.Execer
	sqlx.Preparer
	Rebind(query string) string
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareNamedContext(ctx context.Context, query string) (*sqlx.NamedStmt, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

const uniqueViolation = pq.ErrorCode("23505")

// observe records the latency of one repository call
func observe(operation string) func() {
	start := time.Now()
	return func() {
		logger.DatabaseQueryDuration.WithLabelValues("postgres", operation).Observe(time.Since(start).Seconds())
	}
}

// translateError maps driver failures onto domain errors
func translateError(err error, action string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return models.Validation("%s: duplicate value violates %s", action, pqErr.Constraint)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// whereClause accumulates AND-ed conditions written with ? placeholders
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *whereClause) when(ok bool, cond string, args ...interface{}) {
	if ok {
		w.add(cond, args...)
	}
}

func (w *whereClause) timeRange(column string, from, to *time.Time) {
	if from != nil {
		w.add(column+" >= ?", *from)
	}
	if to != nil {
		w.add(column+" <= ?", *to)
	}
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// query assembles a complete statement and its arguments, rebound for db
func (w *whereClause) query(db dbExecutor, base, orderBy string, page models.Page) (string, []interface{}) {
	q := base + w.String() + " ORDER BY " + orderBy
	args := append([]interface{}(nil), w.args...)
	if page.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, page.Limit)
	}
	if page.Offset > 0 {
		q += " OFFSET ?"
		args = append(args, page.Offset)
	}
	return db.Rebind(q), args
}

func likePattern(s string) string {
	return "%" + strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s) + "%"
}

// versionMismatch explains why a guarded UPDATE touched no rows
func versionMismatch(ctx context.Context, db dbExecutor, table string, entity models.EntityKind, id string, expected int64) error {
	var stored int64
	err := db.GetContext(ctx, &stored, db.Rebind("SELECT version FROM "+table+" WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotFound(entity, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s version: %w", entity, err)
	}
	return models.VersionConflict(entity, id, expected)
}

// guardedUpdate runs a named UPDATE that matches on id and version
func guardedUpdate(ctx context.Context, db dbExecutor, query, table string, entity models.EntityKind, id string, version int64, arg interface{}) error {
	result, err := db.NamedExecContext(ctx, query, arg)
	if err != nil {
		return translateError(err, "update "+string(entity))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return versionMismatch(ctx, db, table, entity, id, version)
	}
	return nil
}

// archiveRow soft-deletes a row and bumps its version
func archiveRow(ctx context.Context, db dbExecutor, table string, entity models.EntityKind, id string, stampArchivedAt bool) error {
	set := "archived = TRUE, updated_at = NOW(), version = version + 1"
	if stampArchivedAt {
		set += ", archived_at = NOW()"
	}
	result, err := db.ExecContext(ctx, db.Rebind("UPDATE "+table+" SET "+set+" WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", entity, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.NotFound(entity, id)
	}
	return nil
}

func stampCreate(version *int64, createdAt, updatedAt *time.Time) {
	*version = 1
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		*updatedAt = *createdAt
	}
}
