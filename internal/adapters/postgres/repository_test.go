package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(mockDB, "postgres")
	return sqlxDB, mock
}

func TestTransformerGetByID_Success(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	repo := NewTransformerRepository(db)
	reconciled := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "name", "site", "type", "status", "battery_percent", "signal_strength",
		"last_reconciled_at", "qr_code", "archived", "version",
	}).AddRow("TR-001", "Andheri East", "Mumbai North", "Distribution", "online", 85, 4, reconciled, "QR-TR-001", false, 2)

	mock.ExpectQuery(`SELECT (.+) FROM transformers WHERE id = \$1`).
		WithArgs("TR-001").
		WillReturnRows(rows)

	tr, err := repo.GetByID(context.Background(), "TR-001")

	require.NoError(t, err)
	assert.Equal(t, "Andheri East", tr.Name)
	assert.Equal(t, models.TransformerStatusOnline, tr.Status)
	assert.Equal(t, models.TransformerTypeDistribution, tr.Type)
	require.NotNil(t, tr.LastReconciledAt)
	assert.Equal(t, reconciled, *tr.LastReconciledAt)
	assert.Equal(t, int64(2), tr.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransformerGetByID_NotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	repo := NewTransformerRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM transformers WHERE id = \$1`).
		WithArgs("TR-404").
		WillReturnError(sql.ErrNoRows)

	tr, err := repo.GetByID(context.Background(), "TR-404")

	assert.Nil(t, tr)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransformerGetByQRCode_DatabaseError(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	repo := NewTransformerRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM transformers WHERE qr_code = \$1`).
		WithArgs("QR-TR-001").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByQRCode(context.Background(), "QR-TR-001")

	assert.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())

	// a blank key never reaches the database
	_, err = repo.GetByGPSID(context.Background(), "")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestTransformerCreate(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	repo := NewTransformerRepository(db)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO transformers`).WillReturnResult(sqlmock.NewResult(0, 1))
	tr := &models.Transformer{ID: "TR-001", Name: "Andheri East", Type: models.TransformerTypeDistribution, Status: models.TransformerStatusOnline}
	require.NoError(t, repo.Create(ctx, tr))
	assert.Equal(t, int64(1), tr.Version)
	assert.False(t, tr.CreatedAt.IsZero())

	mock.ExpectExec(`INSERT INTO transformers`).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Create(ctx, &models.Transformer{ID: "TR-001", Name: "Twin"})
	assert.True(t, errors.Is(err, models.ErrValidation))

	mock.ExpectExec(`INSERT INTO transformers`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "idx_transformers_qr_code"})
	err = repo.Create(ctx, &models.Transformer{ID: "TR-002", Name: "Same tag", QRCode: "QR-TR-001"})
	assert.True(t, errors.Is(err, models.ErrValidation))
	assert.Contains(t, err.Error(), "idx_transformers_qr_code")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransformerUpdate_GuardsVersion(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
		version int64
	}{
		{
			name: "success bumps version",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE transformers SET (.+) WHERE id = \$\d+ AND version = \$\d+`).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			version: 4,
		},
		{
			name: "stale version",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE transformers SET`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`SELECT version FROM transformers WHERE id = \$1`).
					WithArgs("TR-001").
					WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(5))
			},
			wantErr: models.ErrVersionConflict,
			version: 3,
		},
		{
			name: "missing row",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE transformers SET`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`SELECT version FROM transformers WHERE id = \$1`).
					WithArgs("TR-001").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: models.ErrNotFound,
			version: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupTestDB(t)
			defer db.Close()
			tt.setup(mock)

			tr := &models.Transformer{ID: "TR-001", Name: "Andheri East", Version: 3}
			err := NewTransformerRepository(db).Update(context.Background(), tr)

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.version, tr.Version)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTransformerList_BuildsFilter(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	repo := NewTransformerRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM transformers WHERE archived = FALSE AND status = \$1 AND LOWER\(site\) = LOWER\(\$2\) ` +
		`AND \(name ILIKE \$3 OR site ILIKE \$4 OR id ILIKE \$5\) ORDER BY id LIMIT \$6 OFFSET \$7`).
		WithArgs("alert", "Mumbai North", "%and%", "%and%", "%and%", 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("TR-002", "Andheri West"))

	result, err := repo.List(context.Background(), models.TransformerFilter{
		Status: models.TransformerStatusAlert, Site: "Mumbai North", SearchText: "and",
	}, models.Page{Offset: 20, Limit: 10})

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "TR-002", result[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransformerArchive(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	repo := NewTransformerRepository(db)

	mock.ExpectExec(`UPDATE transformers SET archived = TRUE, (.+) WHERE id = \$1`).
		WithArgs("TR-001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE transformers SET archived = TRUE`).
		WithArgs("TR-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Archive(context.Background(), "TR-001"))
	assert.True(t, errors.Is(repo.Archive(context.Background(), "TR-404"), models.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepository_ChecklistArray(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	repo := NewPlanRepository(db)
	ctx := context.Background()

	mock.ExpectPrepare(`INSERT INTO maintenance_plans`).
		ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))

	plan := &models.MaintenancePlan{
		TransformerID: "TR-001", Name: "Quarterly inspection", Category: models.PlanCategoryPreventive,
		Recurrence: "every 3 months", NextDue: time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC),
		AssignedTo: "3", Checklist: []string{"Check oil level", "Inspect bushings"}, Status: models.PlanStatusScheduled,
	}
	require.NoError(t, repo.Create(ctx, plan))
	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, int64(1), plan.Version)

	mock.ExpectQuery(`SELECT (.+) FROM maintenance_plans WHERE id = \$1`).
		WithArgs(plan.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "transformer_id", "recurrence", "checklist", "status", "version"}).
			AddRow(plan.ID, "TR-001", "every 3 months", `{"Check oil level","Inspect bushings"}`, "scheduled", 1))

	got, err := repo.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Check oil level", "Inspect bushings"}, got.Checklist)
	assert.Equal(t, models.Recurrence("every 3 months"), got.Recurrence)
	assert.Equal(t, models.PlanStatusScheduled, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepository_ListAndCount(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	repo := NewPlanRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT (.+) FROM maintenance_plans WHERE transformer_id = \$1 AND assigned_to = \$2 ORDER BY next_due, id`).
		WithArgs("TR-001", "3").
		WillReturnRows(sqlmock.NewRows([]string{"id", "checklist"}).AddRow("1", "{}").AddRow("2", nil))

	plans, err := repo.List(ctx, models.PlanFilter{TransformerID: "TR-001", AssignedTo: "3", IncludeArchived: true}, models.All)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Empty(t, plans[0].Checklist)
	assert.NotNil(t, plans[1].Checklist)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM maintenance_plans WHERE transformer_id = \$1 AND archived = FALSE`).
		WithArgs("TR-001").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountActiveByTransformer(ctx, "TR-001")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_ListByRange(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM maintenance_records WHERE archived = FALSE AND plan_id = \$1 ` +
		`AND performed_at >= \$2 AND performed_at <= \$3 ORDER BY performed_at DESC, id`).
		WithArgs("2", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_id", "status"}).AddRow("r-1", "2", "completed"))

	records, err := NewRecordRepository(db).List(context.Background(), models.RecordFilter{PlanID: "2", From: &from, To: &to}, models.All)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].PlanID)
	assert.Equal(t, "2", *records[0].PlanID)
	assert.Equal(t, models.RecordStatusCompleted, records[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_Latest(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	repo := NewEventRepository(db)
	ctx := context.Background()
	when := time.Date(2024, time.January, 3, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM reconciliation_events WHERE transformer_id = \$1 ORDER BY reconciled_at DESC, seq DESC LIMIT 1`).
		WithArgs("TR-001").
		WillReturnRows(sqlmock.NewRows([]string{"id", "transformer_id", "reconciled_at", "gps_verified", "method"}).
			AddRow("e-2", "TR-001", when, false, "qr"))
	mock.ExpectQuery(`FROM reconciliation_events WHERE transformer_id = \$1`).
		WithArgs("TR-003").
		WillReturnError(sql.ErrNoRows)

	e, err := repo.Latest(ctx, "TR-001")
	require.NoError(t, err)
	assert.Equal(t, "e-2", e.ID)
	assert.True(t, e.Unverified())
	assert.Equal(t, when, e.ReconciledAt)

	_, err = repo.Latest(ctx, "TR-003")
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_AppendAssignsID(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO reconciliation_events`).WillReturnResult(sqlmock.NewResult(1, 1))

	e := &models.ReconciliationEvent{TransformerID: "TR-001", ReconciledBy: "3", ReconciledAt: time.Now(), Method: models.ReconciliationMethodQR}
	require.NoError(t, NewEventRepository(db).Append(context.Background(), e))
	assert.NotEmpty(t, e.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmailIgnoresCase(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("Priya.Sharma@Company.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role", "status"}).
			AddRow("2", "priya.sharma@company.com", "supervisor", "active"))

	u, err := NewUserRepository(db).GetByEmail(context.Background(), "Priya.Sharma@Company.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSupervisor, u.Role)
	assert.True(t, u.Active())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SearchEscapesWildcards(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE role = \$1 AND \(name ILIKE \$2 OR email ILIKE \$3\) ORDER BY name, id`).
		WithArgs("technician", `%100\%%`, `%100\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	users, err := NewUserRepository(db).List(context.Background(), models.UserFilter{Role: models.RoleTechnician, SearchText: "100%"}, models.All)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeLogRepository(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	repo := NewChangeLogRepository(db)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO change_log`).WillReturnResult(sqlmock.NewResult(1, 1))
	c := &models.ChangeRecord{Entity: models.EntityTransformer, EntityID: "TR-001", ChangeType: models.ChangeTypeCreate, ChangedBy: "1", Version: 1}
	require.NoError(t, repo.Append(ctx, c))
	assert.NotEmpty(t, c.ID)
	assert.False(t, c.ChangedAt.IsZero())

	mock.ExpectQuery(`SELECT (.+) FROM change_log WHERE entity = \$1 AND entity_id = \$2 ORDER BY seq DESC LIMIT \$3`).
		WithArgs("transformer", "TR-001", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "change_type", "version"}).
			AddRow("c-3", "ARCHIVE", 3).
			AddRow("c-2", "UPDATE", 2))

	changes, err := repo.List(ctx, models.ChangeFilter{Entity: models.EntityTransformer, EntityID: "TR-001"}, models.Page{Limit: 2})
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, models.ChangeTypeArchive, changes[0].ChangeType)
	assert.Equal(t, int64(2), changes[1].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAdapter_Transaction(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	adapter := NewPostgresAdapterWithDB(db, &ports.PostgresConfig{Host: "localhost", Port: 5432, Database: "assettrack"})
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO change_log`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := adapter.BeginTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Changes().Append(ctx, &models.ChangeRecord{Entity: models.EntityUser, EntityID: "1", ChangeType: models.ChangeTypeUpdate}))
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, tx.Rollback(ctx), "rollback after commit is a no-op")

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err = adapter.BeginTransaction(ctx)
	require.NoError(t, err)
	assert.NoError(t, tx.Rollback(ctx))

	assert.Equal(t, ports.DatabaseTypePostgreSQL, adapter.GetType())
	assert.Equal(t, "localhost:5432/assettrack", adapter.GetConnectionStats().ConnectionString)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAdapter_NotConnected(t *testing.T) {
	adapter := NewPostgresAdapter(&ports.PostgresConfig{Host: "localhost", Port: 5432})

	_, err := adapter.BeginTransaction(context.Background())
	assert.Error(t, err)
	assert.Error(t, adapter.Ping(context.Background()))
	assert.False(t, adapter.GetConnectionStats().Healthy)
	assert.NoError(t, adapter.Disconnect(context.Background()))
}

func TestPostgresAdapter_HealthCheck(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	db := sqlx.NewDb(mockDB, "postgres")
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	adapter := NewPostgresAdapterWithDB(db, &ports.PostgresConfig{})
	assert.NoError(t, adapter.HealthCheck(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
