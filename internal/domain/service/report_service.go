package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/logic"
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
)

// reportService implements ports.ReportService
type reportService struct {
	*core
}

// historyColumns is the header row of the maintenance history export
var historyColumns = []string{
	"record_id", "transformer_id", "plan_id", "category", "status",
	"performed_by", "performed_at", "photo_count", "notes",
}

func (s *reportService) Dashboard(ctx context.Context, callerID string) (*ports.Dashboard, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpTransformerRead)
	if err != nil {
		return nil, err
	}
	s.getLogger().Debugw("Dashboard started", "caller", caller.ID)

	transformers, err := s.store.Transformers().List(ctx, models.TransformerFilter{}, models.All)
	if err != nil {
		return nil, fmt.Errorf("failed to list transformers: %w", err)
	}
	plans, err := s.store.Plans().List(ctx, models.PlanFilter{IncludeArchived: true}, models.All)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	recon, err := s.summarize(ctx, caller.ID, "")
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &ports.Dashboard{
		GeneratedAt:       now,
		TotalTransformers: len(transformers),
		ByStatus:          make(map[models.TransformerStatus]int),
		Maintenance:       maintenanceOverview(plans, now),
		Reconciliation:    *recon,
	}
	for _, t := range transformers {
		d.ByStatus[t.Status]++
	}
	d.Online = d.ByStatus[models.TransformerStatusOnline]
	d.OnlinePercent = percent(d.Online, d.TotalTransformers)
	d.ActiveAlerts = len(s.deriveAlerts(transformers, plans, now))
	return d, nil
}

// maintenanceOverview counts plan states. Superseded plans are left out; completed one-time plans stay.
func maintenanceOverview(plans []*models.MaintenancePlan, now time.Time) ports.MaintenanceOverview {
	var o ports.MaintenanceOverview
	for _, p := range plans {
		if p.Archived && p.Status != models.PlanStatusCompleted {
			continue
		}
		o.TotalPlans++
		switch logic.PlanStatus(p, now) {
		case models.PlanStatusScheduled:
			o.Scheduled++
		case models.PlanStatusInProgress:
			o.InProgress++
		case models.PlanStatusOverdue:
			o.Overdue++
		case models.PlanStatusCompleted:
			o.Completed++
		}
	}
	o.CompletionRate = percent(o.Completed, o.TotalPlans)
	return o
}

// percent rounds to one decimal place; zero of zero is zero
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(total)) / 10
}

func (s *reportService) Alerts(ctx context.Context, callerID string) ([]models.Alert, error) {
	if _, err := s.gate.Authorize(ctx, callerID, ports.OpTransformerRead); err != nil {
		return nil, err
	}
	transformers, err := s.store.Transformers().List(ctx, models.TransformerFilter{}, models.All)
	if err != nil {
		return nil, fmt.Errorf("failed to list transformers: %w", err)
	}
	plans, err := s.store.Plans().List(ctx, models.PlanFilter{}, models.All)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return s.deriveAlerts(transformers, plans, s.now()), nil
}

func (s *reportService) deriveAlerts(transformers []*models.Transformer, plans []*models.MaintenancePlan, now time.Time) []models.Alert {
	alerts := make([]models.Alert, 0)
	live := make(map[string]bool, len(transformers))
	for _, t := range transformers {
		live[t.ID] = !t.Archived
		alerts = append(alerts, logic.TransformerAlerts(t, now)...)
	}
	for _, p := range plans {
		if !live[p.TransformerID] {
			continue
		}
		if a, ok := logic.PlanAlert(p, now); ok {
			alerts = append(alerts, a)
		}
	}
	logic.SortAlerts(alerts)
	return alerts
}

func (s *reportService) ExportHistoryCSV(ctx context.Context, callerID string, filter models.RecordFilter, w io.Writer) error {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpReportGenerate)
	if err != nil {
		return err
	}
	records, err := s.store.Records().List(ctx, filter, models.All)
	if err != nil {
		return fmt.Errorf("failed to list maintenance history: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(historyColumns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		planID := ""
		if r.PlanID != nil {
			planID = *r.PlanID
		}
		row := []string{
			r.ID, r.TransformerID, planID, string(r.Category), string(r.Status),
			r.PerformedBy, r.PerformedAt.UTC().Format(time.RFC3339), strconv.Itoa(r.PhotoCount), r.Notes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	s.getLogger().Infow("Maintenance history exported", "rows", len(records), "caller", caller.ID)
	return nil
}

func (s *reportService) ListChanges(ctx context.Context, callerID string, filter models.ChangeFilter, page models.Page) ([]*models.ChangeRecord, error) {
	if _, err := s.gate.Authorize(ctx, callerID, ports.OpAuditRead); err != nil {
		return nil, err
	}
	changes, err := s.store.Changes().List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	return changes, nil
}
