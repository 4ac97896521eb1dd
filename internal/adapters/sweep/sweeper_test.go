package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubMaintenance serves a fixed overdue list; other methods are unused
type stubMaintenance struct {
	ports.MaintenanceService

	mu      sync.Mutex
	overdue []*ports.PlanView
	err     error
	calls   int
	caller  string
}

func (s *stubMaintenance) ListOverdue(ctx context.Context, callerID string) ([]*ports.PlanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.caller = callerID
	return s.overdue, s.err
}

func (s *stubMaintenance) set(plans ...*ports.PlanView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overdue = plans
}

func (s *stubMaintenance) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
	fail    map[string]bool
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Notify(ctx context.Context, notice Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[notice.PlanID] {
		return errors.New("broker unavailable")
	}
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) sent() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.notices...)
}

func overduePlan(id string, due time.Time, days int) *ports.PlanView {
	return &ports.PlanView{
		MaintenancePlan: &models.MaintenancePlan{
			ID: id, TransformerID: "TR-00" + id, Name: "Plan " + id, AssignedTo: "3", NextDue: due,
		},
		Status:      models.PlanStatusOverdue,
		DaysOverdue: days,
	}
}

func TestRunOnce_NotifiesOncePerDueDate(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	svc := &stubMaintenance{}
	svc.set(overduePlan("1", due, 5), overduePlan("2", due, 5))
	notifier := &recordingNotifier{}

	s := NewSweeper(svc, notifier, Config{ActorID: "1"})

	n, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "1", svc.caller)

	n, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "already notified plans are skipped")

	// rescheduled and overdue again
	svc.set(overduePlan("1", due.AddDate(0, 3, 0), 1))
	n, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sent := notifier.sent()
	require.Len(t, sent, 3)
	assert.Equal(t, "TR-001", sent[0].TransformerID)
	assert.Equal(t, 5, sent[0].DaysOverdue)
}

func TestRunOnce_PlanBackOnTrackIsForgotten(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	svc := &stubMaintenance{}
	notifier := &recordingNotifier{}
	s := NewSweeper(svc, notifier, Config{ActorID: "1"})

	svc.set(overduePlan("1", due, 2))
	_, err := s.RunOnce(ctx)
	require.NoError(t, err)

	svc.set()
	_, err = s.RunOnce(ctx)
	require.NoError(t, err)

	svc.set(overduePlan("1", due, 2))
	n, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunOnce_DedupeHoldsOnlyCurrentlyOverdue(t *testing.T) {
	ctx := context.Background()
	svc := &stubMaintenance{}
	s := NewSweeper(svc, &recordingNotifier{}, Config{ActorID: "1"})

	// a recurring plan falls behind, is completed and rescheduled, and falls behind again
	due := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		svc.set(overduePlan("1", due.AddDate(0, i*3, 0), 2), overduePlan("2", due, 2))
		_, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, s.sent.ItemCount())
	}

	svc.set()
	_, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, s.sent.ItemCount())
}

func TestRunOnce_FailedNoticeIsRetried(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	svc := &stubMaintenance{}
	svc.set(overduePlan("1", due, 5), overduePlan("2", due, 5))
	notifier := &recordingNotifier{fail: map[string]bool{"2": true}}
	s := NewSweeper(svc, notifier, Config{ActorID: "1"})

	n, err := s.RunOnce(ctx)
	assert.Error(t, err)
	assert.Equal(t, 1, n)

	notifier.mu.Lock()
	notifier.fail = nil
	notifier.mu.Unlock()

	n, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, notifier.sent(), 2)
}

func TestRunOnce_ListError(t *testing.T) {
	svc := &stubMaintenance{err: models.Forbidden("user %q is inactive", "4")}
	s := NewSweeper(svc, &recordingNotifier{}, Config{ActorID: "4"})

	_, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestSweeper_StartStop(t *testing.T) {
	svc := &stubMaintenance{}
	svc.set(overduePlan("1", time.Now().AddDate(0, 0, -3), 3))
	notifier := &recordingNotifier{}
	s := NewSweeper(svc, notifier, Config{ActorID: "1", Interval: 10 * time.Millisecond})

	s.Start(context.Background())
	s.Start(context.Background())
	assert.Eventually(t, func() bool { return svc.callCount() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()

	calls := svc.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, svc.callCount(), "no sweeps after stop")
	assert.Len(t, notifier.sent(), 1)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier()
	assert.Equal(t, "log", n.Name())
	assert.NoError(t, n.Notify(context.Background(), Notice{PlanID: "1"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Notify(ctx, Notice{PlanID: "1"}), context.Canceled)
}
