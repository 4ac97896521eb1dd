package service

import (
	"errors"
	"testing"
	"time"

	"github.com/hsdfat8/assettrack/internal/adapters/memory"
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_ResolutionOrder(t *testing.T) {
	f := newFixture(t)
	f.addTransformer(t, "TR-001", 85, 4)
	f.addTransformer(t, "TR-002", 85, 4)
	f.addTransformer(t, "TR-003", 85, 4)
	require.NoError(t, f.store.Transformers().Archive(f.ctx, "TR-003"))

	tests := []struct {
		code string
		want string
	}{
		{"TR-001", "TR-001"},
		{"  QR-TR-002 ", "TR-002"},
		{"GPS-TR-001", "TR-001"},
	}
	for _, tt := range tests {
		res, err := f.svc.Reconciliation.Lookup(f.ctx, techID, tt.code)
		require.NoError(t, err, tt.code)
		assert.Equal(t, tt.want, res.Transformer.ID)
		assert.Equal(t, models.ReconciliationStatePending, res.Transformer.ReconciliationState)
		assert.Equal(t, f.clock.Now().Add(15*time.Minute), res.SessionExpiresAt)
	}

	for _, code := range []string{"TR-404", "TR-003", "QR-TR-003"} {
		_, err := f.svc.Reconciliation.Lookup(f.ctx, techID, code)
		assert.True(t, errors.Is(err, models.ErrNotFound), "%s: %v", code, err)
	}
	_, err := f.svc.Reconciliation.Lookup(f.ctx, techID, " ")
	assert.True(t, errors.Is(err, models.ErrValidation))
	_, err = f.svc.Reconciliation.Lookup(f.ctx, supervisorID, "TR-001")
	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestConfirm_RequiresOpenSession(t *testing.T) {
	f := newFixture(t)
	f.addTransformer(t, "TR-001", 85, 4)

	_, err := f.svc.Reconciliation.Confirm(f.ctx, techID, ports.ConfirmInput{TransformerID: "TR-001", GPSVerified: true})
	assert.True(t, errors.Is(err, models.ErrInvalidState))

	// sessions belong to the caller that opened them
	_, err = f.svc.Reconciliation.Lookup(f.ctx, otherTechID, "TR-001")
	require.NoError(t, err)
	_, err = f.svc.Reconciliation.Confirm(f.ctx, techID, ports.ConfirmInput{TransformerID: "TR-001", GPSVerified: true})
	assert.True(t, errors.Is(err, models.ErrInvalidState))

	events, err := f.store.Events().List(f.ctx, models.EventFilter{}, models.All)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestConfirm_SessionExpires(t *testing.T) {
	a := memory.NewAdapter()
	f := newFixtureWithStore(t, a, nil)
	f.svc = NewServices(a, Options{SessionTTL: 30 * time.Millisecond, Now: f.clock.Now})
	f.addTransformer(t, "TR-001", 85, 4)

	_, err := f.svc.Reconciliation.Lookup(f.ctx, techID, "TR-001")
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)

	_, err = f.svc.Reconciliation.Confirm(f.ctx, techID, ports.ConfirmInput{TransformerID: "TR-001", GPSVerified: true})
	assert.True(t, errors.Is(err, models.ErrInvalidState))
}

func TestConfirm_Validation(t *testing.T) {
	f := newFixture(t)
	f.addTransformer(t, "TR-001", 85, 4)
	_, err := f.svc.Reconciliation.Lookup(f.ctx, techID, "TR-001")
	require.NoError(t, err)

	_, err = f.svc.Reconciliation.Confirm(f.ctx, techID, ports.ConfirmInput{TransformerID: "TR-001", PhotoCount: -1})
	assert.True(t, errors.Is(err, models.ErrValidation))
	_, err = f.svc.Reconciliation.Confirm(f.ctx, techID, ports.ConfirmInput{TransformerID: "TR-001", Method: "telepathy"})
	assert.True(t, errors.Is(err, models.ErrValidation))
	_, err = f.svc.Reconciliation.Confirm(f.ctx, techID, ports.ConfirmInput{TransformerID: "TR-001", ReconcilerID: otherTechID})
	assert.True(t, errors.Is(err, models.ErrForbidden))
}

// Scenario D: no GPS fix still records the verification
func TestConfirm_WithoutGPSSucceeds(t *testing.T) {
	f := newFixture(t)
	f.addTransformer(t, "TR-004", 92, 5)

	_, err := f.svc.Reconciliation.Lookup(f.ctx, techID, "TR-004")
	require.NoError(t, err)

	event, err := f.svc.Reconciliation.Confirm(f.ctx, techID, ports.ConfirmInput{
		TransformerID: "TR-004", GPSVerified: false, PhotoCount: 1,
	})
	require.NoError(t, err)
	assert.True(t, event.Unverified())
	assert.Equal(t, techID, event.ReconciledBy)
	assert.Equal(t, models.ReconciliationMethodQR, event.Method)
	assert.Equal(t, 1, event.PhotoCount)

	tr := f.transformer(t, "TR-004")
	require.NotNil(t, tr.LastReconciledAt)
	assert.Equal(t, f.clock.Now(), *tr.LastReconciledAt)
}

func TestConfirm_TwiceAppendsTwoEvents(t *testing.T) {
	f := newFixture(t)
	f.addTransformer(t, "TR-001", 85, 4)
	_, err := f.svc.Reconciliation.Lookup(f.ctx, techID, "TR-001")
	require.NoError(t, err)

	in := ports.ConfirmInput{TransformerID: "TR-001", GPSVerified: true, PhotoCount: 2, Notes: "Nameplate matches"}
	first, err := f.svc.Reconciliation.Confirm(f.ctx, techID, in)
	require.NoError(t, err)
	f.clock.Advance(5 * time.Minute)
	second, err := f.svc.Reconciliation.Confirm(f.ctx, techID, in)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	events, err := f.svc.Reconciliation.ListEvents(f.ctx, supervisorID, models.EventFilter{TransformerID: "TR-001"}, models.All)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, second.ID, events[0].ID)

	view, err := f.svc.Reconciliation.Status(f.ctx, supervisorID, "TR-001")
	require.NoError(t, err)
	assert.Equal(t, second.ID, view.LatestEvent.ID)
	assert.Equal(t, second.ReconciledAt, *view.LastReconciledAt)
	assert.Equal(t, models.ReconciliationUpToDate, view.Status)
	assert.Equal(t, models.ReconciliationStateVerified, view.State)
	assert.Equal(t, 0, view.DaysSince)
}

func TestConfirm_ReconcilerSeesVerified(t *testing.T) {
	f := newFixture(t)
	f.addTransformer(t, "TR-004", 78, 4)
	f.reconciledAt(t, "TR-004", at(2023, time.November, 15))

	res, err := f.svc.Reconciliation.Lookup(f.ctx, techID, "TR-004")
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationStatePending, res.Transformer.ReconciliationState)

	f.clock.Advance(time.Minute)
	_, err = f.svc.Reconciliation.Confirm(f.ctx, techID, ports.ConfirmInput{TransformerID: "TR-004", GPSVerified: true, PhotoCount: 1})
	require.NoError(t, err)

	view, err := f.svc.Reconciliation.Status(f.ctx, techID, "TR-004")
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationStateVerified, view.State)
	assert.Equal(t, models.ReconciliationUpToDate, view.Status)

	tv, err := f.svc.Assets.GetTransformer(f.ctx, techID, "TR-004")
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationStateVerified, tv.ReconciliationState)

	// the session stays open, so a second confirm inside the window still lands
	f.clock.Advance(time.Minute)
	_, err = f.svc.Reconciliation.Confirm(f.ctx, techID, ports.ConfirmInput{TransformerID: "TR-004", GPSVerified: true})
	require.NoError(t, err)
	view, err = f.svc.Reconciliation.Status(f.ctx, techID, "TR-004")
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationStateVerified, view.State)
}

func TestReconciliationStatus_MissingIffNoEvent(t *testing.T) {
	f := newFixture(t)
	f.addTransformer(t, "TR-001", 85, 4)
	f.addTransformer(t, "TR-002", 85, 4)
	f.reconciledAt(t, "TR-002", at(2023, time.December, 1))

	none, err := f.svc.Reconciliation.Status(f.ctx, techID, "TR-001")
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationMissing, none.Status)
	assert.Equal(t, models.ReconciliationStateMissing, none.State)
	assert.Equal(t, -1, none.DaysSince)
	assert.Nil(t, none.LatestEvent)

	// even a stale event means the transformer is not missing
	old, err := f.svc.Reconciliation.Status(f.ctx, techID, "TR-002")
	require.NoError(t, err)
	assert.NotEqual(t, models.ReconciliationMissing, old.Status)

	_, err = f.svc.Reconciliation.Status(f.ctx, techID, "TR-404")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

// Scenario A: last reconciled 36 days ago
func TestReconciliationStatus_Overdue(t *testing.T) {
	f := newFixture(t)
	f.addTransformer(t, "TR-002", 15, 2)
	f.reconciledAt(t, "TR-002", f.clock.Now().AddDate(0, 0, -36))

	view, err := f.svc.Reconciliation.Status(f.ctx, supervisorID, "TR-002")
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationOverdue, view.Status)
	assert.Equal(t, models.ReconciliationStateStale, view.State)
	assert.Equal(t, 36, view.DaysSince)

	tv, err := f.svc.Assets.GetTransformer(f.ctx, supervisorID, "TR-002")
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationOverdue, tv.ReconciliationStatus)
}

func TestReconciliationSummary(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()
	f.addTransformer(t, "TR-001", 85, 4)
	f.addTransformer(t, "TR-002", 15, 2)
	f.addTransformer(t, "TR-003", 45, 3)
	f.addTransformer(t, "TR-004", 92, 5)
	f.reconciledAt(t, "TR-001", now.AddDate(0, 0, -10))
	f.reconciledAt(t, "TR-002", now.AddDate(0, 0, -36))
	f.reconciledAt(t, "TR-003", now.AddDate(0, 0, -71))

	summary, err := f.svc.Reconciliation.Summary(f.ctx, supervisorID, "")
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 1, summary.UpToDate)
	assert.Equal(t, 2, summary.Overdue)
	assert.Equal(t, 1, summary.Missing)

	require.Len(t, summary.NotReconciled, 3)
	assert.Equal(t, "TR-004", summary.NotReconciled[0].ID)
	assert.Equal(t, "TR-003", summary.NotReconciled[1].ID)
	assert.Equal(t, "TR-002", summary.NotReconciled[2].ID)

	other, err := f.svc.Reconciliation.Summary(f.ctx, supervisorID, "Pune")
	require.NoError(t, err)
	assert.Equal(t, 0, other.Total)

	_, err = f.svc.Reconciliation.Summary(f.ctx, techID, "")
	assert.True(t, errors.Is(err, models.ErrForbidden))
}
