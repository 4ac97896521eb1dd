package models

import "time"

// ReconciliationStatus is the derived freshness of a transformer's physical verification
type ReconciliationStatus string

const (
	ReconciliationUpToDate ReconciliationStatus = "up-to-date"
	ReconciliationOverdue  ReconciliationStatus = "overdue"
	ReconciliationMissing  ReconciliationStatus = "missing"
)

// ReconciliationState is the workflow state of a transformer's verification lifecycle
type ReconciliationState string

const (
	ReconciliationStateMissing  ReconciliationState = "Missing"
	ReconciliationStatePending  ReconciliationState = "Pending"
	ReconciliationStateVerified ReconciliationState = "Verified"
	ReconciliationStateStale    ReconciliationState = "Stale"
)

// ReconciliationMethod is how the reconciler identified the asset
type ReconciliationMethod string

const (
	ReconciliationMethodQR     ReconciliationMethod = "qr"
	ReconciliationMethodManual ReconciliationMethod = "manual"
)

// ReconciliationEvent is one entry of the append-only verification log
type ReconciliationEvent struct {
	ID            string               `json:"id" db:"id" bson:"_id"`
	TransformerID string               `json:"transformer_id" db:"transformer_id" bson:"transformer_id"`
	ReconciledBy  string               `json:"reconciled_by" db:"reconciled_by" bson:"reconciled_by"`
	ReconciledAt  time.Time            `json:"reconciled_at" db:"reconciled_at" bson:"reconciled_at"`
	GPSVerified   bool                 `json:"gps_verified" db:"gps_verified" bson:"gps_verified"`
	PhotoCount    int                  `json:"photo_count" db:"photo_count" bson:"photo_count"`
	Method        ReconciliationMethod `json:"method" db:"method" bson:"method"`
	Notes         string               `json:"notes,omitempty" db:"notes" bson:"notes,omitempty"`
}

// Unverified reports whether the event lacks GPS confirmation
func (e *ReconciliationEvent) Unverified() bool {
	return !e.GPSVerified
}

// EventFilter selects reconciliation events
type EventFilter struct {
	TransformerID string
	ReconciledBy  string
	From          *time.Time
	To            *time.Time
}

// Matches reports whether the event satisfies the filter
func (f EventFilter) Matches(e *ReconciliationEvent) bool {
	if f.TransformerID != "" && e.TransformerID != f.TransformerID {
		return false
	}
	if f.ReconciledBy != "" && e.ReconciledBy != f.ReconciledBy {
		return false
	}
	return inRange(e.ReconciledAt, f.From, f.To)
}
