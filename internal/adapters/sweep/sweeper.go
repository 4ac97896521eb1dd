package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/hsdfat8/assettrack/internal/logger"
	"github.com/patrickmn/go-cache"
)

// Notice announces that a maintenance plan has passed its due date
type Notice struct {
	PlanID        string    `json:"plan_id"`
	PlanName      string    `json:"plan_name"`
	TransformerID string    `json:"transformer_id"`
	AssignedTo    string    `json:"assigned_to"`
	NextDue       time.Time `json:"next_due"`
	DaysOverdue   int       `json:"days_overdue"`
	DetectedAt    time.Time `json:"detected_at"`
}

// Notifier delivers overdue notices
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n Notice) error
}

// Config tunes the sweep
type Config struct {
	// Interval between sweeps
	Interval time.Duration

	// ActorID is the account the sweep reads plans as. It needs plan:read.
	ActorID string

	// Renotify re-publishes a notice for a plan still overdue after this long. Zero notifies once per due date.
	Renotify time.Duration
}

// Sweeper periodically pulls overdue plans and hands one notice per plan and due date to a notifier
type Sweeper struct {
	maintenance ports.MaintenanceService
	notifier    Notifier
	config      Config
	now         func() time.Time
	logger      logger.Logger

	// sent holds the plan/due-date keys already notified
	sent *cache.Cache

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a sweeper over the maintenance workflow
func NewSweeper(maintenance ports.MaintenanceService, notifier Notifier, config Config) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	ttl := config.Renotify
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Sweeper{
		maintenance: maintenance,
		notifier:    notifier,
		config:      config,
		now:         time.Now,
		logger:      logger.New("overdue-sweep", ""),
		sent:        cache.New(ttl, 10*time.Minute),
	}
}

func noticeKey(planID string, due time.Time) string {
	return fmt.Sprintf("%s/%s", planID, due.UTC().Format(time.DateOnly))
}

// RunOnce performs a single sweep and returns the number of notices delivered
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	plans, err := s.maintenance.ListOverdue(ctx, s.config.ActorID)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue plans: %w", err)
	}
	logger.OverduePlans.Set(float64(len(plans)))

	now := s.now()
	current := make(map[string]struct{}, len(plans))
	published := 0
	var firstErr error

	for _, p := range plans {
		key := noticeKey(p.ID, p.NextDue)
		current[key] = struct{}{}
		if _, seen := s.sent.Get(key); seen {
			logger.SweepNoticeTotal.WithLabelValues(s.notifier.Name(), "skipped").Inc()
			continue
		}

		notice := Notice{
			PlanID:        p.ID,
			PlanName:      p.Name,
			TransformerID: p.TransformerID,
			AssignedTo:    p.AssignedTo,
			NextDue:       p.NextDue,
			DaysOverdue:   p.DaysOverdue,
			DetectedAt:    now,
		}
		if err := s.notifier.Notify(ctx, notice); err != nil {
			logger.SweepNoticeTotal.WithLabelValues(s.notifier.Name(), "failed").Inc()
			s.logger.Errorw("Failed to deliver overdue notice", "plan_id", p.ID, "notifier", s.notifier.Name(), "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to notify plan %s: %w", p.ID, err)
			}
			continue
		}
		s.sent.SetDefault(key, now)
		logger.SweepNoticeTotal.WithLabelValues(s.notifier.Name(), "published").Inc()
		published++
	}

	// plans that are no longer overdue notify again if they fall behind later
	for key := range s.sent.Items() {
		if _, ok := current[key]; !ok {
			s.sent.Delete(key)
		}
	}

	s.logger.Infow("Overdue sweep completed", "overdue", len(plans), "published", published)
	return published, firstErr
}

// Start runs the sweep every interval until Stop is called or ctx ends
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()

		s.logger.Infow("Overdue sweep started", "interval", s.config.Interval.String(), "notifier", s.notifier.Name())
		for {
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warnw("Overdue sweep failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}(s.done)
}

// Stop cancels the sweep loop and waits for it to exit
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("Overdue sweep stopped")
}
