package ports

import (
	"context"

	"github.com/hsdfat8/assettrack/internal/domain/models"
)

// TransformerRepository defines data access for transformers
// This is a port owned by the domain layer
type TransformerRepository interface {
	// Create adds a transformer; the ID is supplied by the caller
	Create(ctx context.Context, t *models.Transformer) error

	// GetByID retrieves a transformer, archived or not
	GetByID(ctx context.Context, id string) (*models.Transformer, error)

	// GetByQRCode resolves the payload of a scanned QR tag
	GetByQRCode(ctx context.Context, code string) (*models.Transformer, error)

	// GetByGPSID resolves a GPS tracker identifier
	GetByGPSID(ctx context.Context, gpsID string) (*models.Transformer, error)

	// List retrieves transformers matching the filter, ordered by ID
	List(ctx context.Context, filter models.TransformerFilter, page models.Page) ([]*models.Transformer, error)

	// Update stores t if t.Version matches the stored version, then bumps t.Version
	Update(ctx context.Context, t *models.Transformer) error

	// Archive soft-deletes a transformer
	Archive(ctx context.Context, id string) error
}

// PlanRepository defines data access for maintenance plans
type PlanRepository interface {
	Create(ctx context.Context, p *models.MaintenancePlan) error
	GetByID(ctx context.Context, id string) (*models.MaintenancePlan, error)

	// List retrieves plans matching the stored fields of the filter, ordered by next due date
	List(ctx context.Context, filter models.PlanFilter, page models.Page) ([]*models.MaintenancePlan, error)

	Update(ctx context.Context, p *models.MaintenancePlan) error
	Archive(ctx context.Context, id string) error

	// CountActiveByTransformer counts non-archived plans referencing a transformer
	CountActiveByTransformer(ctx context.Context, transformerID string) (int, error)
}

// RecordRepository defines data access for maintenance records
type RecordRepository interface {
	Create(ctx context.Context, r *models.MaintenanceRecord) error
	GetByID(ctx context.Context, id string) (*models.MaintenanceRecord, error)

	// List retrieves records matching the filter, most recent first
	List(ctx context.Context, filter models.RecordFilter, page models.Page) ([]*models.MaintenanceRecord, error)

	Update(ctx context.Context, r *models.MaintenanceRecord) error
	Archive(ctx context.Context, id string) error
}

// EventRepository is the append-only reconciliation log
type EventRepository interface {
	Append(ctx context.Context, e *models.ReconciliationEvent) error
	GetByID(ctx context.Context, id string) (*models.ReconciliationEvent, error)

	// List retrieves events matching the filter, most recent first
	List(ctx context.Context, filter models.EventFilter, page models.Page) ([]*models.ReconciliationEvent, error)

	// Latest returns the most recent event for a transformer, or NotFound when none exists
	Latest(ctx context.Context, transformerID string) (*models.ReconciliationEvent, error)
}

// UserRepository defines data access for users. Users are deactivated through Update, never removed.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves users matching the filter, ordered by name
	List(ctx context.Context, filter models.UserFilter, page models.Page) ([]*models.User, error)

	Update(ctx context.Context, u *models.User) error
}

// ChangeLogRepository is the audit hook every mutation appends to
type ChangeLogRepository interface {
	Append(ctx context.Context, c *models.ChangeRecord) error

	// List retrieves change records matching the filter, most recent first
	List(ctx context.Context, filter models.ChangeFilter, page models.Page) ([]*models.ChangeRecord, error)
}

// Store groups the repositories of one backend or one transaction
type Store interface {
	Transformers() TransformerRepository
	Plans() PlanRepository
	Records() RecordRepository
	Events() EventRepository
	Users() UserRepository
	Changes() ChangeLogRepository
}

// Transaction represents a unit of work over a Store
type Transaction interface {
	Store

	// Commit commits the transaction
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction. Calling it after Commit is a no-op.
	Rollback(ctx context.Context) error
}

// TxStore is a Store that can open transactions
type TxStore interface {
	Store

	// BeginTransaction starts a new transaction
	BeginTransaction(ctx context.Context) (Transaction, error)
}
