package models

import "time"

// AlertType is the condition an alert reports
type AlertType string

const (
	AlertLowBattery           AlertType = "battery"
	AlertSignal               AlertType = "signal"
	AlertMaintenanceOverdue   AlertType = "maintenance"
	AlertReconciliationStale  AlertType = "reconciliation"
	AlertReconciliationAbsent AlertType = "reconciliation_missing"
)

// Severity ranks alerts
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Alert is derived at read time and never stored
type Alert struct {
	Type          AlertType `json:"type"`
	Severity      Severity  `json:"severity"`
	TransformerID string    `json:"transformer_id"`
	PlanID        string    `json:"plan_id,omitempty"`
	Message       string    `json:"message"`
	Since         time.Time `json:"since"`
}
