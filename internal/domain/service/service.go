package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/logic"
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/hsdfat8/assettrack/internal/logger"
	"github.com/patrickmn/go-cache"
)

// Options tunes the workflow services
type Options struct {
	// RetryAttempts bounds how often a transition is run after version conflicts
	RetryAttempts int
	RetryBackoff  time.Duration

	// SessionTTL is how long a reconciliation lookup stays open
	SessionTTL time.Duration

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time

	Logger logger.Logger
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		RetryAttempts: 3,
		RetryBackoff:  25 * time.Millisecond,
		SessionTTL:    15 * time.Minute,
		Now:           time.Now,
	}
}

// core holds what every service shares: the store, the gate, the
// per-transformer lock table and the pending reconciliation sessions.
type core struct {
	store    ports.TxStore
	gate     ports.AccessGate
	locks    *KeyedLock
	sessions *cache.Cache
	opts     Options
}

func newCore(store ports.TxStore, opts Options) *core {
	def := DefaultOptions()
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = def.RetryAttempts
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = def.RetryBackoff
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = def.SessionTTL
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return &core{
		store:    store,
		gate:     NewAccessGate(store.Users()),
		locks:    NewKeyedLock(),
		sessions: cache.New(opts.SessionTTL, 2*opts.SessionTTL),
		opts:     opts,
	}
}

// NewServices wires every domain service over one store
func NewServices(store ports.TxStore, opts Options) *ports.Services {
	c := newCore(store, opts)
	return &ports.Services{
		Gate:           c.gate,
		Assets:         &assetService{core: c},
		Maintenance:    &maintenanceService{core: c},
		Reconciliation: &reconciliationService{core: c},
		Users:          &userService{core: c},
		Reports:        &reportService{core: c},
	}
}

func (c *core) now() time.Time {
	return c.opts.Now().UTC()
}

// getLogger returns the custom logger if set, otherwise returns the global logger
func (c *core) getLogger() logger.Logger {
	if c.opts.Logger != nil {
		return c.opts.Logger
	}
	return logger.Log
}

// inTx runs fn in one store transaction, rolling back on any error
func (c *core) inTx(ctx context.Context, fn func(tx ports.Transaction) error) error {
	tx, err := c.store.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			c.getLogger().Errorw("Transaction rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// transition runs one workflow step: it takes the transformer lock, runs fn in
// a transaction and retries the whole step on version conflicts. fn must
// re-read everything it writes.
func (c *core) transition(ctx context.Context, op ports.Operation, transformerID string, fn func(tx ports.Transaction) error) error {
	start := time.Now()
	err := withRetry(ctx, string(op), c.opts.RetryAttempts, c.opts.RetryBackoff, func() error {
		if transformerID != "" {
			unlock, err := c.locks.Lock(ctx, transformerID)
			if err != nil {
				return err
			}
			defer unlock()
		}
		return c.inTx(ctx, fn)
	})

	logger.WorkflowTransitionDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
	logger.WorkflowTransitionTotal.WithLabelValues(string(op), resultLabel(err)).Inc()
	return err
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	switch models.KindOf(err) {
	case models.ErrNotFound:
		return "not_found"
	case models.ErrValidation:
		return "validation"
	case models.ErrInvalidState:
		return "invalid_state"
	case models.ErrForbidden:
		return "forbidden"
	case models.ErrVersionConflict:
		return "conflict"
	}
	return "error"
}

// appendChange writes the audit entry for one mutation inside tx
func (c *core) appendChange(ctx context.Context, tx ports.Store, entity models.EntityKind, id string, ct models.ChangeType, by string, version int64, summary string) error {
	err := tx.Changes().Append(ctx, &models.ChangeRecord{
		Entity:     entity,
		EntityID:   id,
		ChangeType: ct,
		ChangedBy:  by,
		ChangedAt:  c.now(),
		Version:    version,
		Summary:    summary,
	})
	if err != nil {
		return fmt.Errorf("failed to append change record: %w", err)
	}
	return nil
}

// staleInput marks a caller-supplied version mismatch. Retrying cannot fix it.
type staleInput struct {
	err error
}

func (s staleInput) Error() string { return s.err.Error() }
func (s staleInput) Unwrap() error { return s.err }

// checkVersion rejects a caller version that no longer matches the stored one; zero skips the check
func checkVersion(entity models.EntityKind, id string, callerVersion, stored int64) error {
	if callerVersion != 0 && callerVersion != stored {
		return staleInput{err: models.VersionConflict(entity, id, callerVersion)}
	}
	return nil
}

func sessionKey(transformerID, callerID string) string {
	return transformerID + "|" + callerID
}

// sessionOpened returns when the caller's live lookup session on the transformer started
func (c *core) sessionOpened(transformerID, callerID string) *time.Time {
	v, ok := c.sessions.Get(sessionKey(transformerID, callerID))
	if !ok {
		return nil
	}
	opened, ok := v.(time.Time)
	if !ok {
		return nil
	}
	return &opened
}

func (c *core) transformerView(t *models.Transformer, callerID string, now time.Time) *ports.TransformerView {
	return &ports.TransformerView{
		Transformer:          t,
		ReconciliationStatus: logic.ReconciliationStatus(t.LastReconciledAt, now),
		ReconciliationState:  logic.ReconciliationState(t.LastReconciledAt, c.sessionOpened(t.ID, callerID), now),
		DaysSinceReconciled:  logic.DaysSinceReconciled(t.LastReconciledAt, now),
	}
}

func planView(p *models.MaintenancePlan, now time.Time) *ports.PlanView {
	return &ports.PlanView{
		MaintenancePlan: p,
		Status:          logic.PlanStatus(p, now),
		DaysOverdue:     logic.DaysOverdue(p, now),
	}
}

// activeUser resolves a referenced account; unknown or inactive users are a validation failure
func activeUser(ctx context.Context, users ports.UserRepository, id, role string) (*models.User, error) {
	u, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.Validation("%s %q does not exist", role, id)
		}
		return nil, err
	}
	if !u.Active() {
		return nil, models.Validation("%s %q is inactive", role, id)
	}
	return u, nil
}

// liveTransformer loads a transformer that may still receive work
func liveTransformer(ctx context.Context, repo ports.TransformerRepository, id string) (*models.Transformer, error) {
	t, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Archived {
		return nil, models.InvalidState(models.EntityTransformer, id, "transformer is archived")
	}
	return t, nil
}
