package memory

import (
	"context"
	"sync"

	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
)

// Adapter implements the DatabaseAdapter interface over process memory.
// Transactions are serialized and undone from a journal on rollback.
type Adapter struct {
	transformers *TransformerRepository
	plans        *PlanRepository
	records      *RecordRepository
	events       *EventRepository
	users        *UserRepository
	changes      *ChangeLogRepository

	txMu sync.Mutex
}

// NewAdapter creates an empty in-memory store
func NewAdapter() *Adapter {
	return &Adapter{
		transformers: NewTransformerRepository(),
		plans:        NewPlanRepository(),
		records:      NewRecordRepository(),
		events:       NewEventRepository(),
		users:        NewUserRepository(),
		changes:      NewChangeLogRepository(),
	}
}

func (a *Adapter) Connect(ctx context.Context) error    { return nil }
func (a *Adapter) Disconnect(ctx context.Context) error { return nil }
func (a *Adapter) Ping(ctx context.Context) error       { return nil }
func (a *Adapter) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// GetType returns the database type
func (a *Adapter) GetType() ports.DatabaseType {
	return ports.DatabaseTypeMemory
}

// GetConnectionStats returns fixed statistics; there is no pool
func (a *Adapter) GetConnectionStats() ports.ConnectionStats {
	return ports.ConnectionStats{
		DatabaseType:     string(ports.DatabaseTypeMemory),
		ConnectionString: "memory",
		Healthy:          true,
	}
}

func (a *Adapter) Transformers() ports.TransformerRepository { return a.transformers }
func (a *Adapter) Plans() ports.PlanRepository               { return a.plans }
func (a *Adapter) Records() ports.RecordRepository           { return a.records }
func (a *Adapter) Events() ports.EventRepository             { return a.events }
func (a *Adapter) Users() ports.UserRepository               { return a.users }
func (a *Adapter) Changes() ports.ChangeLogRepository        { return a.changes }

// BeginTransaction blocks until no other transaction is open
func (a *Adapter) BeginTransaction(ctx context.Context) (ports.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.txMu.Lock()

	j := &journal{}
	return &transaction{
		adapter:      a,
		journal:      j,
		transformers: &txTransformers{TransformerRepository: a.transformers, j: j},
		plans:        &txPlans{PlanRepository: a.plans, j: j},
		records:      &txRecords{RecordRepository: a.records, j: j},
		events:       &txEvents{EventRepository: a.events, j: j},
		users:        &txUsers{UserRepository: a.users, j: j},
		changes:      &txChanges{ChangeLogRepository: a.changes, j: j},
	}, nil
}

type journal struct {
	undo []func()
}

func (j *journal) push(f func()) {
	j.undo = append(j.undo, f)
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

type transaction struct {
	adapter *Adapter
	journal *journal
	once    sync.Once

	transformers *txTransformers
	plans        *txPlans
	records      *txRecords
	events       *txEvents
	users        *txUsers
	changes      *txChanges
}

func (t *transaction) Commit(ctx context.Context) error {
	t.once.Do(func() {
		t.journal.undo = nil
		t.adapter.txMu.Unlock()
	})
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	t.once.Do(func() {
		t.journal.rollback()
		t.adapter.txMu.Unlock()
	})
	return nil
}

func (t *transaction) Transformers() ports.TransformerRepository { return t.transformers }
func (t *transaction) Plans() ports.PlanRepository               { return t.plans }
func (t *transaction) Records() ports.RecordRepository           { return t.records }
func (t *transaction) Events() ports.EventRepository             { return t.events }
func (t *transaction) Users() ports.UserRepository               { return t.users }
func (t *transaction) Changes() ports.ChangeLogRepository        { return t.changes }

type txTransformers struct {
	*TransformerRepository
	j *journal
}

func (r *txTransformers) Create(ctx context.Context, t *models.Transformer) error {
	if err := r.TransformerRepository.Create(ctx, t); err != nil {
		return err
	}
	id := t.ID
	r.j.push(func() { r.restore(id, nil) })
	return nil
}

func (r *txTransformers) Update(ctx context.Context, t *models.Transformer) error {
	prev := r.snapshot(t.ID)
	if err := r.TransformerRepository.Update(ctx, t); err != nil {
		return err
	}
	id := t.ID
	r.j.push(func() { r.restore(id, prev) })
	return nil
}

func (r *txTransformers) Archive(ctx context.Context, id string) error {
	prev := r.snapshot(id)
	if err := r.TransformerRepository.Archive(ctx, id); err != nil {
		return err
	}
	r.j.push(func() { r.restore(id, prev) })
	return nil
}

type txPlans struct {
	*PlanRepository
	j *journal
}

func (r *txPlans) Create(ctx context.Context, p *models.MaintenancePlan) error {
	if err := r.PlanRepository.Create(ctx, p); err != nil {
		return err
	}
	id := p.ID
	r.j.push(func() { r.restore(id, nil) })
	return nil
}

func (r *txPlans) Update(ctx context.Context, p *models.MaintenancePlan) error {
	prev := r.snapshot(p.ID)
	if err := r.PlanRepository.Update(ctx, p); err != nil {
		return err
	}
	id := p.ID
	r.j.push(func() { r.restore(id, prev) })
	return nil
}

func (r *txPlans) Archive(ctx context.Context, id string) error {
	prev := r.snapshot(id)
	if err := r.PlanRepository.Archive(ctx, id); err != nil {
		return err
	}
	r.j.push(func() { r.restore(id, prev) })
	return nil
}

type txRecords struct {
	*RecordRepository
	j *journal
}

func (r *txRecords) Create(ctx context.Context, rec *models.MaintenanceRecord) error {
	if err := r.RecordRepository.Create(ctx, rec); err != nil {
		return err
	}
	id := rec.ID
	r.j.push(func() { r.restore(id, nil) })
	return nil
}

func (r *txRecords) Update(ctx context.Context, rec *models.MaintenanceRecord) error {
	prev := r.snapshot(rec.ID)
	if err := r.RecordRepository.Update(ctx, rec); err != nil {
		return err
	}
	id := rec.ID
	r.j.push(func() { r.restore(id, prev) })
	return nil
}

func (r *txRecords) Archive(ctx context.Context, id string) error {
	prev := r.snapshot(id)
	if err := r.RecordRepository.Archive(ctx, id); err != nil {
		return err
	}
	r.j.push(func() { r.restore(id, prev) })
	return nil
}

type txEvents struct {
	*EventRepository
	j *journal
}

func (r *txEvents) Append(ctx context.Context, e *models.ReconciliationEvent) error {
	if err := r.EventRepository.Append(ctx, e); err != nil {
		return err
	}
	id := e.ID
	r.j.push(func() { r.remove(id) })
	return nil
}

type txUsers struct {
	*UserRepository
	j *journal
}

func (r *txUsers) Create(ctx context.Context, u *models.User) error {
	if err := r.UserRepository.Create(ctx, u); err != nil {
		return err
	}
	id := u.ID
	r.j.push(func() { r.restore(id, nil) })
	return nil
}

func (r *txUsers) Update(ctx context.Context, u *models.User) error {
	prev := r.snapshot(u.ID)
	if err := r.UserRepository.Update(ctx, u); err != nil {
		return err
	}
	id := u.ID
	r.j.push(func() { r.restore(id, prev) })
	return nil
}

type txChanges struct {
	*ChangeLogRepository
	j *journal
}

func (r *txChanges) Append(ctx context.Context, c *models.ChangeRecord) error {
	if err := r.ChangeLogRepository.Append(ctx, c); err != nil {
		return err
	}
	id := c.ID
	r.j.push(func() { r.remove(id) })
	return nil
}
