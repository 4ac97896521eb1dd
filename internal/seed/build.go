package seed

import (
	"fmt"
	"strings"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/logic"
	"github.com/hsdfat8/assettrack/internal/domain/models"
)

// entities is a validated dataset in store form
type entities struct {
	users        []*models.User
	transformers []*models.Transformer
	plans        []*models.MaintenancePlan
	records      []*models.MaintenanceRecord
	events       []*models.ReconciliationEvent
}

// build validates references and derives the stored state the workflows
// would have produced: transformer status, last maintenance and last reconciliation.
func (d *Dataset) build(now time.Time) (*entities, error) {
	out := &entities{}
	users := make(map[string]*models.User)
	transformers := make(map[string]*models.Transformer)

	for _, f := range d.Users {
		role, err := models.ParseRole(f.Role)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", f.ID, err)
		}
		status := models.AccountStatus(strings.ToLower(f.Status))
		if status == "" {
			status = models.AccountActive
		}
		u := &models.User{
			ID:         f.ID,
			Name:       f.Name,
			Email:      f.Email,
			Phone:      f.Phone,
			Role:       role,
			Department: f.Department,
			Status:     status,
			LastLogin:  f.LastLogin,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := models.ValidateUser(u); err != nil {
			return nil, fmt.Errorf("user %s: %w", f.ID, err)
		}
		users[u.ID] = u
		out.users = append(out.users, u)
	}

	for _, f := range d.Transformers {
		t := &models.Transformer{
			ID:             f.ID,
			Name:           f.Name,
			Site:           f.Site,
			Latitude:       f.Latitude,
			Longitude:      f.Longitude,
			Type:           models.TransformerType(f.Type),
			BatteryPercent: f.BatteryPercent,
			SignalStrength: f.SignalStrength,
			InstallDate:    f.InstallDate,
			QRCode:         f.QRCode,
			GPSID:          f.GPSID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		t.Status = logic.TelemetryStatus(t.BatteryPercent, t.SignalStrength)
		if err := models.ValidateTransformer(t); err != nil {
			return nil, fmt.Errorf("transformer %s: %w", f.ID, err)
		}
		transformers[t.ID] = t
		out.transformers = append(out.transformers, t)
	}

	for _, f := range d.Plans {
		t, ok := transformers[f.TransformerID]
		if !ok {
			return nil, fmt.Errorf("plan %s: unknown transformer %q", f.ID, f.TransformerID)
		}
		if _, ok := users[f.AssignedTo]; !ok {
			return nil, fmt.Errorf("plan %s: unknown assignee %q", f.ID, f.AssignedTo)
		}
		category, err := models.ParsePlanCategory(f.Category)
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", f.ID, err)
		}
		rule, err := models.ParseRecurrence(f.Recurrence)
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", f.ID, err)
		}
		if category.OneTimeOnly() && rule != models.RecurrenceOneTime {
			return nil, fmt.Errorf("plan %s: %s plans cannot recur", f.ID, category)
		}
		p := &models.MaintenancePlan{
			ID:            f.ID,
			TransformerID: f.TransformerID,
			Name:          f.Name,
			Category:      category,
			Recurrence:    rule,
			NextDue:       f.NextDue,
			AssignedTo:    f.AssignedTo,
			Checklist:     f.Checklist,
			Status:        models.PlanStatusScheduled,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if f.StartedAt != nil {
			p.Status = models.PlanStatusInProgress
			p.StartedAt = f.StartedAt
			p.StartedBy = f.StartedBy
			t.Status = models.TransformerStatusMaintenance
		}
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("plan %s: name is required", f.ID)
		}
		if err := models.ValidateChecklist(p.Checklist); err != nil {
			return nil, fmt.Errorf("plan %s: %w", f.ID, err)
		}
		out.plans = append(out.plans, p)
	}

	for _, f := range d.Records {
		t, ok := transformers[f.TransformerID]
		if !ok {
			return nil, fmt.Errorf("record %s: unknown transformer %q", f.ID, f.TransformerID)
		}
		if _, ok := users[f.PerformedBy]; !ok {
			return nil, fmt.Errorf("record %s: unknown performer %q", f.ID, f.PerformedBy)
		}
		category, err := models.ParsePlanCategory(f.Category)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", f.ID, err)
		}
		r := &models.MaintenanceRecord{
			ID:            f.ID,
			TransformerID: f.TransformerID,
			PerformedBy:   f.PerformedBy,
			Category:      category,
			PerformedAt:   f.PerformedAt,
			Notes:         f.Notes,
			PhotoCount:    f.PhotoCount,
			Status:        models.RecordStatusCompleted,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if f.PlanID != "" {
			planID := f.PlanID
			r.PlanID = &planID
		}
		if t.LastMaintenance == nil || r.PerformedAt.After(*t.LastMaintenance) {
			performed := r.PerformedAt
			t.LastMaintenance = &performed
		}
		out.records = append(out.records, r)
	}

	for _, f := range d.Events {
		t, ok := transformers[f.TransformerID]
		if !ok {
			return nil, fmt.Errorf("event %s: unknown transformer %q", f.ID, f.TransformerID)
		}
		if _, ok := users[f.ReconciledBy]; !ok {
			return nil, fmt.Errorf("event %s: unknown reconciler %q", f.ID, f.ReconciledBy)
		}
		method := models.ReconciliationMethod(strings.ToLower(f.Method))
		if method == "" {
			method = models.ReconciliationMethodQR
		}
		e := &models.ReconciliationEvent{
			ID:            f.ID,
			TransformerID: f.TransformerID,
			ReconciledBy:  f.ReconciledBy,
			ReconciledAt:  f.ReconciledAt,
			GPSVerified:   f.GPSVerified,
			PhotoCount:    f.PhotoCount,
			Method:        method,
			Notes:         f.Notes,
		}
		if t.LastReconciledAt == nil || e.ReconciledAt.After(*t.LastReconciledAt) {
			at := e.ReconciledAt
			t.LastReconciledAt = &at
		}
		out.events = append(out.events, e)
	}

	return out, nil
}
