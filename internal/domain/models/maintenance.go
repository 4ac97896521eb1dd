package models

import (
	"strings"
	"time"
)

// PlanCategory classifies a maintenance plan
type PlanCategory string

const (
	PlanCategoryPreventive PlanCategory = "preventive"
	PlanCategoryReactive   PlanCategory = "reactive"
	PlanCategoryEmergency  PlanCategory = "emergency"
)

// ParsePlanCategory accepts any letter case
func ParsePlanCategory(s string) (PlanCategory, error) {
	c := PlanCategory(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case PlanCategoryPreventive, PlanCategoryReactive, PlanCategoryEmergency:
		return c, nil
	}
	return "", Validation("unknown plan category %q", s)
}

// OneTimeOnly reports whether plans of this category must not recur
func (c PlanCategory) OneTimeOnly() bool {
	return c == PlanCategoryReactive || c == PlanCategoryEmergency
}

// PlanStatus is the lifecycle status of a plan. Overdue is derived, never stored.
type PlanStatus string

const (
	PlanStatusScheduled  PlanStatus = "scheduled"
	PlanStatusInProgress PlanStatus = "in_progress"
	PlanStatusOverdue    PlanStatus = "overdue"
	PlanStatusCompleted  PlanStatus = "completed"
)

// Valid reports whether s is a known plan status
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanStatusScheduled, PlanStatusInProgress, PlanStatusOverdue, PlanStatusCompleted:
		return true
	}
	return false
}

// MaintenancePlan is a scheduled or reactive unit of work against a transformer
type MaintenancePlan struct {
	ID              string       `json:"id" db:"id" bson:"_id"`
	TransformerID   string       `json:"transformer_id" db:"transformer_id" bson:"transformer_id"`
	Name            string       `json:"name" db:"name" bson:"name"`
	Category        PlanCategory `json:"category" db:"category" bson:"category"`
	Recurrence      Recurrence   `json:"recurrence" db:"recurrence" bson:"recurrence"`
	NextDue         time.Time    `json:"next_due" db:"next_due" bson:"next_due"`
	AssignedTo      string       `json:"assigned_to" db:"assigned_to" bson:"assigned_to"`
	Checklist       []string     `json:"checklist" db:"-" bson:"checklist"`
	Status          PlanStatus   `json:"status" db:"status" bson:"status"`
	StartedAt       *time.Time   `json:"started_at,omitempty" db:"started_at" bson:"started_at,omitempty"`
	StartedBy       string       `json:"started_by,omitempty" db:"started_by" bson:"started_by,omitempty"`
	LastCompletedAt *time.Time   `json:"last_completed_at,omitempty" db:"last_completed_at" bson:"last_completed_at,omitempty"`
	CompletionCount int          `json:"completion_count" db:"completion_count" bson:"completion_count"`
	CreatedBy       string       `json:"created_by" db:"created_by" bson:"created_by"`
	Archived        bool         `json:"archived" db:"archived" bson:"archived"`
	ArchivedAt      *time.Time   `json:"archived_at,omitempty" db:"archived_at" bson:"archived_at,omitempty"`
	Version         int64        `json:"version" db:"version" bson:"version"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

// Clone returns a deep copy of the plan
func (p *MaintenancePlan) Clone() *MaintenancePlan {
	c := *p
	c.Checklist = append([]string(nil), p.Checklist...)
	c.StartedAt = cloneTime(p.StartedAt)
	c.LastCompletedAt = cloneTime(p.LastCompletedAt)
	c.ArchivedAt = cloneTime(p.ArchivedAt)
	return &c
}

// Active reports whether the plan still holds work against its transformer
func (p *MaintenancePlan) Active() bool {
	return !p.Archived
}

// ValidateChecklist requires at least one non-blank task label
func ValidateChecklist(items []string) error {
	if len(items) == 0 {
		return Validation("checklist must contain at least one task")
	}
	for i, item := range items {
		if strings.TrimSpace(item) == "" {
			return Validation("checklist task %d is blank", i+1)
		}
	}
	return nil
}

// PlanFilter selects plans. Status is applied against the derived status by the service.
type PlanFilter struct {
	TransformerID   string
	AssignedTo      string
	Category        PlanCategory
	Status          PlanStatus
	IncludeArchived bool
}

// Matches reports whether the plan satisfies the stored-field part of the filter
func (f PlanFilter) Matches(p *MaintenancePlan) bool {
	if p.Archived && !f.IncludeArchived {
		return false
	}
	if f.TransformerID != "" && p.TransformerID != f.TransformerID {
		return false
	}
	if f.AssignedTo != "" && p.AssignedTo != f.AssignedTo {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	return true
}

// RecordStatus is the status of a maintenance record
type RecordStatus string

const (
	RecordStatusDraft     RecordStatus = "draft"
	RecordStatusCompleted RecordStatus = "completed"
)

// MaintenanceRecord logs work performed on a transformer. Immutable once completed.
type MaintenanceRecord struct {
	ID            string       `json:"id" db:"id" bson:"_id"`
	TransformerID string       `json:"transformer_id" db:"transformer_id" bson:"transformer_id"`
	PlanID        *string      `json:"plan_id,omitempty" db:"plan_id" bson:"plan_id,omitempty"`
	PerformedBy   string       `json:"performed_by" db:"performed_by" bson:"performed_by"`
	Category      PlanCategory `json:"category" db:"category" bson:"category"`
	PerformedAt   time.Time    `json:"performed_at" db:"performed_at" bson:"performed_at"`
	Notes         string       `json:"notes" db:"notes" bson:"notes"`
	PhotoCount    int          `json:"photo_count" db:"photo_count" bson:"photo_count"`
	Status        RecordStatus `json:"status" db:"status" bson:"status"`
	Archived      bool         `json:"archived" db:"archived" bson:"archived"`
	Version       int64        `json:"version" db:"version" bson:"version"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

// Clone returns a deep copy of the record
func (r *MaintenanceRecord) Clone() *MaintenanceRecord {
	c := *r
	if r.PlanID != nil {
		id := *r.PlanID
		c.PlanID = &id
	}
	return &c
}

// RecordFilter selects maintenance records
type RecordFilter struct {
	TransformerID   string
	PlanID          string
	PerformedBy     string
	Status          RecordStatus
	From            *time.Time
	To              *time.Time
	IncludeArchived bool
}

// Matches reports whether the record satisfies the filter
func (f RecordFilter) Matches(r *MaintenanceRecord) bool {
	if r.Archived && !f.IncludeArchived {
		return false
	}
	if f.TransformerID != "" && r.TransformerID != f.TransformerID {
		return false
	}
	if f.PlanID != "" && (r.PlanID == nil || *r.PlanID != f.PlanID) {
		return false
	}
	if f.PerformedBy != "" && r.PerformedBy != f.PerformedBy {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return inRange(r.PerformedAt, f.From, f.To)
}
