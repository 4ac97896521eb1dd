package models

import "time"

// EntityKind names the entity types held by the store
type EntityKind string

const (
	EntityTransformer         EntityKind = "transformer"
	EntityMaintenancePlan     EntityKind = "maintenance_plan"
	EntityMaintenanceRecord   EntityKind = "maintenance_record"
	EntityReconciliationEvent EntityKind = "reconciliation_event"
	EntityUser                EntityKind = "user"
)

// ChangeType represents the type of change made to a record
type ChangeType string

const (
	ChangeTypeCreate  ChangeType = "CREATE"
	ChangeTypeUpdate  ChangeType = "UPDATE"
	ChangeTypeArchive ChangeType = "ARCHIVE"
)

// ChangeRecord is one entry of the append-only change log
type ChangeRecord struct {
	ID         string     `json:"id" db:"id" bson:"_id"`
	Entity     EntityKind `json:"entity" db:"entity" bson:"entity"`
	EntityID   string     `json:"entity_id" db:"entity_id" bson:"entity_id"`
	ChangeType ChangeType `json:"change_type" db:"change_type" bson:"change_type"`
	ChangedBy  string     `json:"changed_by" db:"changed_by" bson:"changed_by"`
	ChangedAt  time.Time  `json:"changed_at" db:"changed_at" bson:"changed_at"`
	Version    int64      `json:"version" db:"version" bson:"version"`
	Summary    string     `json:"summary,omitempty" db:"summary" bson:"summary,omitempty"`
}

// ChangeFilter selects change records
type ChangeFilter struct {
	Entity    EntityKind
	EntityID  string
	ChangedBy string
	From      *time.Time
	To        *time.Time
}

// Matches reports whether the change record satisfies the filter
func (f ChangeFilter) Matches(c *ChangeRecord) bool {
	if f.Entity != "" && c.Entity != f.Entity {
		return false
	}
	if f.EntityID != "" && c.EntityID != f.EntityID {
		return false
	}
	if f.ChangedBy != "" && c.ChangedBy != f.ChangedBy {
		return false
	}
	return inRange(c.ChangedAt, f.From, f.To)
}
