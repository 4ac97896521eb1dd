package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/logic"
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
)

// reconciliationService implements ports.ReconciliationService
type reconciliationService struct {
	*core
}

func (s *reconciliationService) Lookup(ctx context.Context, callerID, qrOrID string) (*ports.LookupResult, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpReconcile)
	if err != nil {
		return nil, err
	}
	code := strings.TrimSpace(qrOrID)
	if code == "" {
		return nil, models.Validation("scan code or transformer id is required")
	}

	t, err := s.resolve(ctx, code)
	if err != nil {
		s.getLogger().Warnw("Lookup found no transformer", "code", code, "caller", caller.ID)
		return nil, err
	}

	now := s.now()
	expires := now.Add(s.opts.SessionTTL)
	// document stores keep millisecond precision; events confirmed in the same millisecond still count
	s.sessions.Set(sessionKey(t.ID, caller.ID), now.Truncate(time.Millisecond), s.opts.SessionTTL)

	s.getLogger().Infow("Reconciliation session opened", "transformer_id", t.ID, "caller", caller.ID, "expires_at", expires)
	return &ports.LookupResult{
		Transformer:      s.transformerView(t, caller.ID, now),
		SessionExpiresAt: expires,
	}, nil
}

// resolve tries the transformer id, then the QR code, then the GPS tracker id
func (s *reconciliationService) resolve(ctx context.Context, code string) (*models.Transformer, error) {
	repo := s.store.Transformers()
	lookups := []func(context.Context, string) (*models.Transformer, error){
		repo.GetByID, repo.GetByQRCode, repo.GetByGPSID,
	}
	for _, lookup := range lookups {
		t, err := lookup(ctx, code)
		if err == nil {
			if t.Archived {
				break
			}
			return t, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to resolve transformer: %w", err)
		}
	}
	return nil, models.NotFound(models.EntityTransformer, code)
}

func (s *reconciliationService) Confirm(ctx context.Context, callerID string, in ports.ConfirmInput) (*models.ReconciliationEvent, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpReconcile)
	if err != nil {
		return nil, err
	}
	if in.ReconcilerID == "" {
		in.ReconcilerID = caller.ID
	}
	if err := actingAs(caller, in.ReconcilerID); err != nil {
		return nil, err
	}
	if in.PhotoCount < 0 {
		return nil, models.Validation("photo count must not be negative")
	}
	switch in.Method {
	case "":
		in.Method = models.ReconciliationMethodQR
	case models.ReconciliationMethodQR, models.ReconciliationMethodManual:
	default:
		return nil, models.Validation("unknown reconciliation method %q", in.Method)
	}
	if s.sessionOpened(in.TransformerID, caller.ID) == nil {
		return nil, models.InvalidState(models.EntityTransformer, in.TransformerID, "no open lookup session for %s", caller.ID)
	}
	s.getLogger().Infow("Confirm started", "transformer_id", in.TransformerID, "reconciler", in.ReconcilerID, "gps_verified", in.GPSVerified)

	var event *models.ReconciliationEvent
	err = s.transition(ctx, ports.OpReconcile, in.TransformerID, func(tx ports.Transaction) error {
		t, err := liveTransformer(ctx, tx.Transformers(), in.TransformerID)
		if err != nil {
			return err
		}
		if _, err := activeUser(ctx, tx.Users(), in.ReconcilerID, "reconciler"); err != nil {
			return err
		}

		now := s.now()
		e := &models.ReconciliationEvent{
			TransformerID: t.ID,
			ReconciledBy:  in.ReconcilerID,
			ReconciledAt:  now,
			GPSVerified:   in.GPSVerified,
			PhotoCount:    in.PhotoCount,
			Method:        in.Method,
			Notes:         strings.TrimSpace(in.Notes),
		}
		if err := tx.Events().Append(ctx, e); err != nil {
			return err
		}
		summary := "verified"
		if e.Unverified() {
			summary = "verified without GPS"
		}
		if err := s.appendChange(ctx, tx, models.EntityReconciliationEvent, e.ID, models.ChangeTypeCreate, caller.ID, 1, summary); err != nil {
			return err
		}

		if t.LastReconciledAt == nil || now.After(*t.LastReconciledAt) {
			t.LastReconciledAt = &now
		}
		t.UpdatedAt = now
		if err := tx.Transformers().Update(ctx, t); err != nil {
			return err
		}
		event = e
		return s.appendChange(ctx, tx, models.EntityTransformer, t.ID, models.ChangeTypeUpdate, caller.ID, t.Version, "reconciled")
	})
	if err != nil {
		s.getLogger().Warnw("Confirm failed", "transformer_id", in.TransformerID, "error", err)
		return nil, err
	}

	if event.Unverified() {
		s.getLogger().Warnw("Reconciliation recorded without GPS verification", "transformer_id", event.TransformerID, "event_id", event.ID)
	}
	s.getLogger().Infow("Confirm completed", "transformer_id", event.TransformerID, "event_id", event.ID)
	return event, nil
}

func (s *reconciliationService) Status(ctx context.Context, callerID, transformerID string) (*ports.ReconciliationView, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpReconciliationRead)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Transformers().GetByID(ctx, transformerID); err != nil {
		return nil, err
	}

	latest, err := s.store.Events().Latest(ctx, transformerID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to load latest reconciliation: %w", err)
	}

	view := &ports.ReconciliationView{TransformerID: transformerID}
	if latest != nil {
		at := latest.ReconciledAt
		view.LastReconciledAt = &at
		view.LatestEvent = latest
	}
	now := s.now()
	view.Status = logic.ReconciliationStatus(view.LastReconciledAt, now)
	view.State = logic.ReconciliationState(view.LastReconciledAt, s.sessionOpened(transformerID, caller.ID), now)
	view.DaysSince = logic.DaysSinceReconciled(view.LastReconciledAt, now)
	return view, nil
}

func (s *reconciliationService) ListEvents(ctx context.Context, callerID string, filter models.EventFilter, page models.Page) ([]*models.ReconciliationEvent, error) {
	if _, err := s.gate.Authorize(ctx, callerID, ports.OpReconciliationRead); err != nil {
		return nil, err
	}
	events, err := s.store.Events().List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliation events: %w", err)
	}
	return events, nil
}

func (s *reconciliationService) Summary(ctx context.Context, callerID, site string) (*ports.ReconciliationSummary, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpReportGenerate)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, caller.ID, site)
}

// summarize builds the reconciliation report without an authorization check
func (c *core) summarize(ctx context.Context, callerID, site string) (*ports.ReconciliationSummary, error) {
	transformers, err := c.store.Transformers().List(ctx, models.TransformerFilter{Site: site}, models.All)
	if err != nil {
		return nil, fmt.Errorf("failed to list transformers: %w", err)
	}

	now := c.now()
	summary := &ports.ReconciliationSummary{
		GeneratedAt:   now,
		Site:          site,
		Total:         len(transformers),
		NotReconciled: make([]*ports.TransformerView, 0),
	}
	for _, t := range transformers {
		v := c.transformerView(t, callerID, now)
		switch v.ReconciliationStatus {
		case models.ReconciliationUpToDate:
			summary.UpToDate++
		case models.ReconciliationOverdue:
			summary.Overdue++
			summary.NotReconciled = append(summary.NotReconciled, v)
		case models.ReconciliationMissing:
			summary.Missing++
			summary.NotReconciled = append(summary.NotReconciled, v)
		}
	}

	// never reconciled first, then the stalest
	sort.SliceStable(summary.NotReconciled, func(i, j int) bool {
		a, b := summary.NotReconciled[i].DaysSinceReconciled, summary.NotReconciled[j].DaysSinceReconciled
		if (a < 0) != (b < 0) {
			return a < 0
		}
		return a > b
	})
	return summary, nil
}
