package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hsdfat8/assettrack/internal/adapters/memory"
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/stretchr/testify/require"
)

const (
	adminID      = "1"
	supervisorID = "2"
	techID       = "3"
	inactiveID   = "4"
	otherTechID  = "5"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	ctx   context.Context
	store *memory.Adapter
	svc   *ports.Services
	clock *fakeClock
}

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 9, 0, 0, 0, time.UTC)
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithStore(t, memory.NewAdapter(), nil)
}

// newFixtureWithStore seeds the users on store and builds services over wrap(store), if given
func newFixtureWithStore(t *testing.T, store *memory.Adapter, wrap func(*memory.Adapter) ports.TxStore) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := &fakeClock{now: at(2024, time.January, 10)}

	users := []*models.User{
		{ID: adminID, Name: "Rajesh Patil", Email: "rajesh.patil@company.com", Role: models.RoleAdmin, Department: "Operations", Status: models.AccountActive},
		{ID: supervisorID, Name: "Priya Sharma", Email: "priya.sharma@company.com", Role: models.RoleSupervisor, Department: "Maintenance", Status: models.AccountActive},
		{ID: techID, Name: "Amit Kumar", Email: "amit.kumar@company.com", Role: models.RoleTechnician, Department: "Field Operations", Status: models.AccountActive},
		{ID: inactiveID, Name: "Sneha Desai", Email: "sneha.desai@company.com", Role: models.RoleTechnician, Department: "Field Operations", Status: models.AccountInactive},
		{ID: otherTechID, Name: "Vikram Rao", Email: "vikram.rao@company.com", Role: models.RoleTechnician, Department: "Field Operations", Status: models.AccountActive},
	}
	for _, u := range users {
		require.NoError(t, store.Users().Create(ctx, u))
	}

	var txStore ports.TxStore = store
	if wrap != nil {
		txStore = wrap(store)
	}
	opts := Options{
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
		SessionTTL:    15 * time.Minute,
		Now:           clock.Now,
	}
	return &fixture{ctx: ctx, store: store, svc: NewServices(txStore, opts), clock: clock}
}

func (f *fixture) addTransformer(t *testing.T, id string, battery, signal int) *models.Transformer {
	t.Helper()
	tr := &models.Transformer{
		ID:             id,
		Name:           id + " Andheri East",
		Site:           "Mumbai North",
		Latitude:       19.1136,
		Longitude:      72.8697,
		Type:           models.TransformerTypeDistribution,
		Status:         models.TransformerStatusOnline,
		BatteryPercent: battery,
		SignalStrength: signal,
		QRCode:         "QR-" + id,
		GPSID:          "GPS-" + id,
		CreatedAt:      f.clock.Now(),
	}
	require.NoError(t, f.store.Transformers().Create(f.ctx, tr))
	return tr
}

// addPlan stores a plan directly so tests control its id
func (f *fixture) addPlan(t *testing.T, id, transformerID string, category models.PlanCategory, rec models.Recurrence, nextDue time.Time, assignee string) *models.MaintenancePlan {
	t.Helper()
	rule, err := models.ParseRecurrence(string(rec))
	require.NoError(t, err)
	p := &models.MaintenancePlan{
		ID:            id,
		TransformerID: transformerID,
		Name:          "Plan " + id,
		Category:      category,
		Recurrence:    rule,
		NextDue:       nextDue,
		AssignedTo:    assignee,
		Checklist:     []string{"Check oil level", "Inspect bushings"},
		Status:        models.PlanStatusScheduled,
		CreatedBy:     adminID,
	}
	require.NoError(t, f.store.Plans().Create(f.ctx, p))
	return p
}

// reconciledAt appends a historical event and keeps the denormalized timestamp in step
func (f *fixture) reconciledAt(t *testing.T, transformerID string, when time.Time) {
	t.Helper()
	require.NoError(t, f.store.Events().Append(f.ctx, &models.ReconciliationEvent{
		TransformerID: transformerID, ReconciledBy: techID, ReconciledAt: when, GPSVerified: true, Method: models.ReconciliationMethodQR,
	}))
	tr, err := f.store.Transformers().GetByID(f.ctx, transformerID)
	require.NoError(t, err)
	tr.LastReconciledAt = &when
	require.NoError(t, f.store.Transformers().Update(f.ctx, tr))
}

func (f *fixture) transformer(t *testing.T, id string) *models.Transformer {
	t.Helper()
	tr, err := f.store.Transformers().GetByID(f.ctx, id)
	require.NoError(t, err)
	return tr
}

func (f *fixture) plan(t *testing.T, id string) *models.MaintenancePlan {
	t.Helper()
	p, err := f.store.Plans().GetByID(f.ctx, id)
	require.NoError(t, err)
	return p
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

var errInjected = errors.New("injected store failure")

// faultyStore wraps the memory adapter to inject failures into transactions
type faultyStore struct {
	*memory.Adapter

	mu sync.Mutex
	// changeFailAt fails the n-th change log append (1-based); zero disables it
	changeFailAt int
	changeCalls  int
	// transformerConflicts is how many transformer updates fail with a version conflict
	transformerConflicts int
}

func (s *faultyStore) BeginTransaction(ctx context.Context) (ports.Transaction, error) {
	tx, err := s.Adapter.BeginTransaction(ctx)
	if err != nil {
		return nil, err
	}
	return &faultyTx{Transaction: tx, store: s}, nil
}

type faultyTx struct {
	ports.Transaction
	store *faultyStore
}

func (tx *faultyTx) Changes() ports.ChangeLogRepository {
	return &faultyChanges{ChangeLogRepository: tx.Transaction.Changes(), store: tx.store}
}

func (tx *faultyTx) Transformers() ports.TransformerRepository {
	return &conflictingTransformers{TransformerRepository: tx.Transaction.Transformers(), store: tx.store}
}

type faultyChanges struct {
	ports.ChangeLogRepository
	store *faultyStore
}

func (r *faultyChanges) Append(ctx context.Context, c *models.ChangeRecord) error {
	r.store.mu.Lock()
	r.store.changeCalls++
	fail := r.store.changeFailAt != 0 && r.store.changeCalls == r.store.changeFailAt
	r.store.mu.Unlock()
	if fail {
		return errInjected
	}
	return r.ChangeLogRepository.Append(ctx, c)
}

type conflictingTransformers struct {
	ports.TransformerRepository
	store *faultyStore
}

func (r *conflictingTransformers) Update(ctx context.Context, t *models.Transformer) error {
	r.store.mu.Lock()
	conflict := r.store.transformerConflicts > 0
	if conflict {
		r.store.transformerConflicts--
	}
	r.store.mu.Unlock()
	if conflict {
		return models.VersionConflict(models.EntityTransformer, t.ID, t.Version)
	}
	return r.TransformerRepository.Update(ctx, t)
}
