package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/logic"
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
)

// maintenanceService implements ports.MaintenanceService
type maintenanceService struct {
	*core
}

func (s *maintenanceService) CreatePlan(ctx context.Context, callerID string, in ports.CreatePlanInput) (*ports.PlanView, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpPlanCreate)
	if err != nil {
		return nil, err
	}
	s.getLogger().Infow("CreatePlan started", "transformer_id", in.TransformerID, "name", in.Name, "caller", caller.ID)

	plan, err := newPlan(in)
	if err != nil {
		return nil, err
	}
	now := s.now()
	plan.CreatedBy = caller.ID
	plan.CreatedAt = now
	plan.UpdatedAt = now

	err = s.transition(ctx, ports.OpPlanCreate, plan.TransformerID, func(tx ports.Transaction) error {
		t, err := tx.Transformers().GetByID(ctx, plan.TransformerID)
		if err != nil {
			if models.KindOf(err) == models.ErrNotFound {
				return models.Validation("transformer %q does not exist", plan.TransformerID)
			}
			return err
		}
		if t.Archived {
			return models.Validation("transformer %q is archived", plan.TransformerID)
		}
		if plan.AssignedTo != "" {
			if _, err := activeUser(ctx, tx.Users(), plan.AssignedTo, "assignee"); err != nil {
				return err
			}
		}

		row := plan.Clone()
		if err := tx.Plans().Create(ctx, row); err != nil {
			return err
		}
		plan = row
		return s.appendChange(ctx, tx, models.EntityMaintenancePlan, row.ID, models.ChangeTypeCreate, caller.ID, row.Version,
			fmt.Sprintf("created %s plan %q", row.Category, row.Name))
	})
	if err != nil {
		s.getLogger().Warnw("CreatePlan failed", "transformer_id", in.TransformerID, "error", err)
		return nil, err
	}

	s.getLogger().Infow("CreatePlan completed", "plan_id", plan.ID, "recurrence", plan.Recurrence, "next_due", plan.NextDue)
	return planView(plan, now), nil
}

// newPlan validates the input-only attributes of a plan
func newPlan(in ports.CreatePlanInput) (*models.MaintenancePlan, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.Validation("plan name is required")
	}
	if strings.TrimSpace(in.TransformerID) == "" {
		return nil, models.Validation("transformer id is required")
	}
	category, err := models.ParsePlanCategory(in.Category)
	if err != nil {
		return nil, err
	}
	recurrence := models.RecurrenceOneTime
	if strings.TrimSpace(in.Recurrence) != "" {
		if recurrence, err = models.ParseRecurrence(in.Recurrence); err != nil {
			return nil, err
		}
	}
	if category.OneTimeOnly() && !recurrence.IsOneTime() {
		return nil, models.Validation("%s plans must be one-time, got %q", category, recurrence)
	}
	if err := models.ValidateChecklist(in.Checklist); err != nil {
		return nil, err
	}
	if in.NextDue.IsZero() {
		return nil, models.Validation("next due date is required")
	}

	checklist := make([]string, len(in.Checklist))
	for i, item := range in.Checklist {
		checklist[i] = strings.TrimSpace(item)
	}
	return &models.MaintenancePlan{
		TransformerID: strings.TrimSpace(in.TransformerID),
		Name:          name,
		Category:      category,
		Recurrence:    recurrence,
		NextDue:       logic.Date(in.NextDue),
		AssignedTo:    strings.TrimSpace(in.AssignedTo),
		Checklist:     checklist,
		Status:        models.PlanStatusScheduled,
	}, nil
}

func (s *maintenanceService) GetPlan(ctx context.Context, callerID, planID string) (*ports.PlanView, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpPlanRead)
	if err != nil {
		return nil, err
	}
	p, err := s.store.Plans().GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if err := assignedTo(caller, p); err != nil {
		return nil, err
	}
	return planView(p, s.now()), nil
}

func (s *maintenanceService) ListPlans(ctx context.Context, callerID string, filter models.PlanFilter, page models.Page) ([]*ports.PlanView, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpPlanRead)
	if err != nil {
		return nil, err
	}
	if caller.Role == models.RoleTechnician {
		filter.AssignedTo = caller.ID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, models.Validation("unknown plan status %q", filter.Status)
	}

	// status is derived, so it can only be filtered after loading
	storePage := page
	if filter.Status != "" {
		storePage = models.All
	}
	plans, err := s.store.Plans().List(ctx, filter, storePage)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	now := s.now()
	views := make([]*ports.PlanView, 0, len(plans))
	for _, p := range plans {
		v := planView(p, now)
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		views = append(views, v)
	}
	if filter.Status != "" {
		views = models.Paginate(views, page)
	}
	return views, nil
}

func (s *maintenanceService) ListOverdue(ctx context.Context, callerID string) ([]*ports.PlanView, error) {
	views, err := s.ListPlans(ctx, callerID, models.PlanFilter{Status: models.PlanStatusOverdue}, models.All)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].DaysOverdue > views[j].DaysOverdue })
	return views, nil
}

func (s *maintenanceService) AssignPlan(ctx context.Context, callerID, planID, assigneeID string) (*ports.PlanView, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpPlanAssign)
	if err != nil {
		return nil, err
	}
	assigneeID = strings.TrimSpace(assigneeID)
	if assigneeID == "" {
		return nil, models.Validation("assignee is required")
	}
	transformerID, err := s.planTransformer(ctx, planID)
	if err != nil {
		return nil, err
	}

	var updated *models.MaintenancePlan
	err = s.transition(ctx, ports.OpPlanAssign, transformerID, func(tx ports.Transaction) error {
		p, err := openPlan(ctx, tx.Plans(), planID)
		if err != nil {
			return err
		}
		if _, err := activeUser(ctx, tx.Users(), assigneeID, "assignee"); err != nil {
			return err
		}
		previous := p.AssignedTo
		p.AssignedTo = assigneeID
		p.UpdatedAt = s.now()
		if err := tx.Plans().Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return s.appendChange(ctx, tx, models.EntityMaintenancePlan, p.ID, models.ChangeTypeUpdate, caller.ID, p.Version,
			fmt.Sprintf("assigned %q -> %q", previous, assigneeID))
	})
	if err != nil {
		return nil, err
	}
	return planView(updated, s.now()), nil
}

func (s *maintenanceService) ArchivePlan(ctx context.Context, callerID, planID string) error {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpPlanArchive)
	if err != nil {
		return err
	}
	transformerID, err := s.planTransformer(ctx, planID)
	if err != nil {
		return err
	}
	s.getLogger().Infow("ArchivePlan started", "plan_id", planID, "caller", caller.ID)

	err = s.transition(ctx, ports.OpPlanArchive, transformerID, func(tx ports.Transaction) error {
		p, err := tx.Plans().GetByID(ctx, planID)
		if err != nil {
			return err
		}
		if p.Archived {
			return models.InvalidState(models.EntityMaintenancePlan, planID, "plan is already archived")
		}
		if err := tx.Plans().Archive(ctx, planID); err != nil {
			return err
		}
		if err := s.appendChange(ctx, tx, models.EntityMaintenancePlan, planID, models.ChangeTypeArchive, caller.ID, p.Version+1, "superseded"); err != nil {
			return err
		}
		if p.Status != models.PlanStatusInProgress {
			return nil
		}
		// an abandoned execution no longer holds the transformer in maintenance
		t, err := tx.Transformers().GetByID(ctx, p.TransformerID)
		if err != nil {
			return err
		}
		return s.releaseTransformer(ctx, tx, t, planID, caller.ID, "execution abandoned")
	})
	if err != nil {
		return err
	}

	s.getLogger().Infow("ArchivePlan completed", "plan_id", planID)
	return nil
}

func (s *maintenanceService) StartExecution(ctx context.Context, callerID, planID, performerID string) (*ports.PlanView, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpExecutionStart)
	if err != nil {
		return nil, err
	}
	if performerID == "" {
		performerID = caller.ID
	}
	if err := actingAs(caller, performerID); err != nil {
		return nil, err
	}
	transformerID, err := s.planTransformer(ctx, planID)
	if err != nil {
		return nil, err
	}
	s.getLogger().Infow("StartExecution started", "plan_id", planID, "performer", performerID)

	var plan *models.MaintenancePlan
	err = s.transition(ctx, ports.OpExecutionStart, transformerID, func(tx ports.Transaction) error {
		p, err := openPlan(ctx, tx.Plans(), planID)
		if err != nil {
			return err
		}
		if err := assignedTo(caller, p); err != nil {
			return err
		}
		if p.Status == models.PlanStatusInProgress {
			plan = p
			return nil
		}
		if _, err := activeUser(ctx, tx.Users(), performerID, "performer"); err != nil {
			return err
		}
		t, err := liveTransformer(ctx, tx.Transformers(), p.TransformerID)
		if err != nil {
			return err
		}
		if err := s.startPlan(ctx, tx, p, t, performerID, caller.ID); err != nil {
			return err
		}
		plan = p
		return nil
	})
	if err != nil {
		s.getLogger().Warnw("StartExecution failed", "plan_id", planID, "error", err)
		return nil, err
	}

	s.getLogger().Infow("StartExecution completed", "plan_id", planID, "transformer_id", transformerID)
	return planView(plan, s.now()), nil
}

func (s *maintenanceService) SubmitRecord(ctx context.Context, callerID string, in ports.SubmitRecordInput) (*ports.SubmitRecordResult, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpRecordSubmit)
	if err != nil {
		return nil, err
	}
	if in.PerformerID == "" {
		in.PerformerID = caller.ID
	}
	if err := actingAs(caller, in.PerformerID); err != nil {
		return nil, err
	}
	if in.PhotoCount < 0 {
		return nil, models.Validation("photo count must not be negative")
	}

	now := s.now()
	performedAt := now
	if in.PerformedAt != nil {
		performedAt = in.PerformedAt.UTC()
		if performedAt.After(now) {
			return nil, models.Validation("performed-at %s is in the future", performedAt.Format(time.RFC3339))
		}
	}

	transformerID := strings.TrimSpace(in.TransformerID)
	if in.PlanID != nil {
		planTransformer, err := s.planTransformer(ctx, *in.PlanID)
		if err != nil {
			return nil, err
		}
		if transformerID != "" && transformerID != planTransformer {
			return nil, models.Validation("plan %q belongs to transformer %q, not %q", *in.PlanID, planTransformer, transformerID)
		}
		transformerID = planTransformer
	}
	if transformerID == "" {
		return nil, models.Validation("transformer id is required for plan-less work")
	}
	s.getLogger().Infow("SubmitRecord started", "transformer_id", transformerID, "performer", in.PerformerID, "draft", in.Draft)

	var result *ports.SubmitRecordResult
	err = s.transition(ctx, ports.OpRecordSubmit, transformerID, func(tx ports.Transaction) error {
		if _, err := activeUser(ctx, tx.Users(), in.PerformerID, "performer"); err != nil {
			return err
		}
		t, err := tx.Transformers().GetByID(ctx, transformerID)
		if err != nil {
			if models.KindOf(err) == models.ErrNotFound {
				return models.Validation("transformer %q does not exist", transformerID)
			}
			return err
		}
		if t.Archived {
			return models.InvalidState(models.EntityTransformer, transformerID, "transformer is archived")
		}

		var plan *models.MaintenancePlan
		category := models.PlanCategoryEmergency
		if in.PlanID != nil {
			plan, err = openPlan(ctx, tx.Plans(), *in.PlanID)
			if err != nil {
				return err
			}
			if err := assignedTo(caller, plan); err != nil {
				return err
			}
			category = plan.Category
		}

		rec := &models.MaintenanceRecord{
			TransformerID: transformerID,
			PlanID:        in.PlanID,
			PerformedBy:   in.PerformerID,
			Category:      category,
			PerformedAt:   performedAt,
			Notes:         strings.TrimSpace(in.Notes),
			PhotoCount:    in.PhotoCount,
			Status:        models.RecordStatusCompleted,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if in.Draft {
			rec.Status = models.RecordStatusDraft
		}
		if err := tx.Records().Create(ctx, rec); err != nil {
			return err
		}
		if err := s.appendChange(ctx, tx, models.EntityMaintenanceRecord, rec.ID, models.ChangeTypeCreate, caller.ID, rec.Version,
			fmt.Sprintf("%s %s record", rec.Status, rec.Category)); err != nil {
			return err
		}

		if in.Draft {
			// a draft against a scheduled plan is the start of its execution
			if plan != nil && plan.Status == models.PlanStatusScheduled {
				if err := s.startPlan(ctx, tx, plan, t, in.PerformerID, caller.ID); err != nil {
					return err
				}
			}
		} else if err := s.complete(ctx, tx, plan, t, performedAt, caller.ID); err != nil {
			return err
		}

		result = &ports.SubmitRecordResult{Record: rec}
		if plan != nil {
			result.Plan = planView(plan, now)
		}
		return nil
	})
	if err != nil {
		s.getLogger().Warnw("SubmitRecord failed", "transformer_id", transformerID, "error", err)
		return nil, err
	}

	s.getLogger().Infow("SubmitRecord completed", "record_id", result.Record.ID, "status", result.Record.Status)
	return result, nil
}

func (s *maintenanceService) UpdateDraft(ctx context.Context, callerID, recordID string, notes *string, photoCount *int) (*models.MaintenanceRecord, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpRecordSubmit)
	if err != nil {
		return nil, err
	}
	if photoCount != nil && *photoCount < 0 {
		return nil, models.Validation("photo count must not be negative")
	}
	current, err := s.store.Records().GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	var updated *models.MaintenanceRecord
	err = s.transition(ctx, ports.OpRecordSubmit, current.TransformerID, func(tx ports.Transaction) error {
		rec, err := draftRecord(ctx, tx.Records(), recordID)
		if err != nil {
			return err
		}
		if err := actingAs(caller, rec.PerformedBy); err != nil {
			return err
		}
		if notes != nil {
			rec.Notes = strings.TrimSpace(*notes)
		}
		if photoCount != nil {
			rec.PhotoCount = *photoCount
		}
		rec.UpdatedAt = s.now()
		if err := tx.Records().Update(ctx, rec); err != nil {
			return err
		}
		updated = rec
		return s.appendChange(ctx, tx, models.EntityMaintenanceRecord, rec.ID, models.ChangeTypeUpdate, caller.ID, rec.Version, "draft updated")
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *maintenanceService) FinalizeDraft(ctx context.Context, callerID, recordID string) (*ports.SubmitRecordResult, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpRecordSubmit)
	if err != nil {
		return nil, err
	}
	current, err := s.store.Records().GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	s.getLogger().Infow("FinalizeDraft started", "record_id", recordID, "caller", caller.ID)

	var result *ports.SubmitRecordResult
	err = s.transition(ctx, ports.OpRecordSubmit, current.TransformerID, func(tx ports.Transaction) error {
		rec, err := draftRecord(ctx, tx.Records(), recordID)
		if err != nil {
			return err
		}
		if err := actingAs(caller, rec.PerformedBy); err != nil {
			return err
		}
		t, err := liveTransformer(ctx, tx.Transformers(), rec.TransformerID)
		if err != nil {
			return err
		}
		var plan *models.MaintenancePlan
		if rec.PlanID != nil {
			if plan, err = openPlan(ctx, tx.Plans(), *rec.PlanID); err != nil {
				return err
			}
		}

		now := s.now()
		rec.Status = models.RecordStatusCompleted
		rec.PerformedAt = now
		rec.UpdatedAt = now
		if err := tx.Records().Update(ctx, rec); err != nil {
			return err
		}
		if err := s.appendChange(ctx, tx, models.EntityMaintenanceRecord, rec.ID, models.ChangeTypeUpdate, caller.ID, rec.Version, "draft finalized"); err != nil {
			return err
		}
		if err := s.complete(ctx, tx, plan, t, now, caller.ID); err != nil {
			return err
		}

		result = &ports.SubmitRecordResult{Record: rec}
		if plan != nil {
			result.Plan = planView(plan, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.getLogger().Infow("FinalizeDraft completed", "record_id", recordID)
	return result, nil
}

func (s *maintenanceService) GetRecord(ctx context.Context, callerID, recordID string) (*models.MaintenanceRecord, error) {
	if _, err := s.gate.Authorize(ctx, callerID, ports.OpRecordRead); err != nil {
		return nil, err
	}
	return s.store.Records().GetByID(ctx, recordID)
}

func (s *maintenanceService) ListHistory(ctx context.Context, callerID string, filter models.RecordFilter, page models.Page) ([]*models.MaintenanceRecord, error) {
	if _, err := s.gate.Authorize(ctx, callerID, ports.OpRecordRead); err != nil {
		return nil, err
	}
	records, err := s.store.Records().List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance history: %w", err)
	}
	return records, nil
}

// planTransformer resolves the lock key of a plan before the transition starts
func (s *maintenanceService) planTransformer(ctx context.Context, planID string) (string, error) {
	p, err := s.store.Plans().GetByID(ctx, planID)
	if err != nil {
		return "", err
	}
	return p.TransformerID, nil
}

// startPlan moves a plan to in_progress and its transformer to maintenance
func (s *maintenanceService) startPlan(ctx context.Context, tx ports.Store, p *models.MaintenancePlan, t *models.Transformer, performerID, actorID string) error {
	now := s.now()
	p.Status = models.PlanStatusInProgress
	p.StartedAt = &now
	p.StartedBy = performerID
	p.UpdatedAt = now
	if err := tx.Plans().Update(ctx, p); err != nil {
		return err
	}
	if err := s.appendChange(ctx, tx, models.EntityMaintenancePlan, p.ID, models.ChangeTypeUpdate, actorID, p.Version,
		"execution started by "+performerID); err != nil {
		return err
	}

	if t.Status == models.TransformerStatusMaintenance {
		return nil
	}
	t.Status = models.TransformerStatusMaintenance
	t.UpdatedAt = now
	if err := tx.Transformers().Update(ctx, t); err != nil {
		return err
	}
	return s.appendChange(ctx, tx, models.EntityTransformer, t.ID, models.ChangeTypeUpdate, actorID, t.Version, "entered maintenance")
}

// complete applies a completed record to its plan (nil for plan-less work) and transformer
func (s *maintenanceService) complete(ctx context.Context, tx ports.Store, p *models.MaintenancePlan, t *models.Transformer, at time.Time, actorID string) error {
	now := s.now()
	if p != nil {
		p.CompletionCount++
		p.LastCompletedAt = &at
		p.StartedAt = nil
		p.StartedBy = ""
		p.UpdatedAt = now

		changeType := models.ChangeTypeUpdate
		var summary string
		if next, ok := logic.NextDue(p.Recurrence, at); ok {
			p.Status = models.PlanStatusScheduled
			p.NextDue = next
			summary = "completed, next due " + next.Format("2006-01-02")
		} else {
			p.Status = models.PlanStatusCompleted
			p.Archived = true
			p.ArchivedAt = &now
			changeType = models.ChangeTypeArchive
			summary = "completed"
		}
		if err := tx.Plans().Update(ctx, p); err != nil {
			return err
		}
		if err := s.appendChange(ctx, tx, models.EntityMaintenancePlan, p.ID, changeType, actorID, p.Version, summary); err != nil {
			return err
		}
	}

	t.LastMaintenance = &at
	excludePlan := ""
	if p != nil {
		excludePlan = p.ID
	}
	return s.releaseTransformer(ctx, tx, t, excludePlan, actorID, "maintenance recorded")
}

// releaseTransformer saves t, restoring its telemetry status once no plan other than exceptPlanID is in progress
func (s *maintenanceService) releaseTransformer(ctx context.Context, tx ports.Store, t *models.Transformer, exceptPlanID, actorID, summary string) error {
	if t.Status == models.TransformerStatusMaintenance {
		plans, err := tx.Plans().List(ctx, models.PlanFilter{TransformerID: t.ID}, models.All)
		if err != nil {
			return fmt.Errorf("failed to list plans: %w", err)
		}
		busy := false
		for _, other := range plans {
			if other.ID != exceptPlanID && other.Status == models.PlanStatusInProgress {
				busy = true
				break
			}
		}
		if !busy {
			t.Status = logic.TelemetryStatus(t.BatteryPercent, t.SignalStrength)
			summary += ", status " + string(t.Status)
		}
	}

	t.UpdatedAt = s.now()
	if err := tx.Transformers().Update(ctx, t); err != nil {
		return err
	}
	return s.appendChange(ctx, tx, models.EntityTransformer, t.ID, models.ChangeTypeUpdate, actorID, t.Version, summary)
}

// openPlan loads a plan that may still receive work
func openPlan(ctx context.Context, plans ports.PlanRepository, id string) (*models.MaintenancePlan, error) {
	p, err := plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PlanStatusCompleted {
		return nil, models.InvalidState(models.EntityMaintenancePlan, id, "plan is completed")
	}
	if p.Archived {
		return nil, models.InvalidState(models.EntityMaintenancePlan, id, "plan is archived")
	}
	return p, nil
}

// draftRecord loads a record that may still be edited
func draftRecord(ctx context.Context, records ports.RecordRepository, id string) (*models.MaintenanceRecord, error) {
	rec, err := records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.RecordStatusCompleted {
		return nil, models.InvalidState(models.EntityMaintenanceRecord, id, "completed records are immutable")
	}
	if rec.Archived {
		return nil, models.InvalidState(models.EntityMaintenanceRecord, id, "record is archived")
	}
	return rec, nil
}
