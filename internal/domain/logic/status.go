// Package logic holds the pure status derivation rules. Nothing here reads a
// clock or a store: every function takes the instant it is evaluated at.
package logic

import (
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/models"
)

const (
	// ReconciliationWindowDays is how long a verification stays up to date
	ReconciliationWindowDays = 30

	LowBatteryPercent = 20
	WeakSignal        = 1
)

// Date truncates t to its UTC calendar day
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from then to now (UTC). Negative when then is in the future.
func DaysBetween(then, now time.Time) int {
	return int(Date(now).Sub(Date(then)).Hours() / 24)
}

// PlanStatus derives the status of a plan at now. An active execution
// suppresses the overdue label.
func PlanStatus(p *models.MaintenancePlan, now time.Time) models.PlanStatus {
	switch p.Status {
	case models.PlanStatusCompleted:
		return models.PlanStatusCompleted
	case models.PlanStatusInProgress:
		return models.PlanStatusInProgress
	}
	if PlanOverdue(p, now) {
		return models.PlanStatusOverdue
	}
	return models.PlanStatusScheduled
}

// PlanOverdue reports whether the due date has passed without completion or an active execution
func PlanOverdue(p *models.MaintenancePlan, now time.Time) bool {
	if p.Archived || p.Status == models.PlanStatusCompleted || p.Status == models.PlanStatusInProgress {
		return false
	}
	return Date(p.NextDue).Before(Date(now))
}

// DaysOverdue is zero for plans that are not overdue
func DaysOverdue(p *models.MaintenancePlan, now time.Time) int {
	if !PlanOverdue(p, now) {
		return 0
	}
	return DaysBetween(p.NextDue, now)
}

// ReconciliationStatus derives freshness from the most recent event time; nil means no event exists
func ReconciliationStatus(lastReconciled *time.Time, now time.Time) models.ReconciliationStatus {
	if lastReconciled == nil {
		return models.ReconciliationMissing
	}
	if DaysBetween(*lastReconciled, now) <= ReconciliationWindowDays {
		return models.ReconciliationUpToDate
	}
	return models.ReconciliationOverdue
}

// ReconciliationState derives the workflow state. sessionOpened is when the
// caller's live lookup session started, nil when none is open. The transformer
// is Pending until an event lands at or after that time.
func ReconciliationState(lastReconciled, sessionOpened *time.Time, now time.Time) models.ReconciliationState {
	if AwaitingConfirm(lastReconciled, sessionOpened) {
		return models.ReconciliationStatePending
	}
	switch ReconciliationStatus(lastReconciled, now) {
	case models.ReconciliationMissing:
		return models.ReconciliationStateMissing
	case models.ReconciliationOverdue:
		return models.ReconciliationStateStale
	}
	return models.ReconciliationStateVerified
}

// AwaitingConfirm reports whether an open session has not been confirmed yet
func AwaitingConfirm(lastReconciled, sessionOpened *time.Time) bool {
	if sessionOpened == nil {
		return false
	}
	return lastReconciled == nil || lastReconciled.Before(*sessionOpened)
}

// DaysSinceReconciled returns -1 when the transformer was never reconciled
func DaysSinceReconciled(lastReconciled *time.Time, now time.Time) int {
	if lastReconciled == nil {
		return -1
	}
	return DaysBetween(*lastReconciled, now)
}

// TelemetryStatus derives the operational status from a battery/signal reading
func TelemetryStatus(batteryPercent, signalStrength int) models.TransformerStatus {
	if signalStrength <= 0 {
		return models.TransformerStatusOffline
	}
	if batteryPercent < LowBatteryPercent || signalStrength <= WeakSignal {
		return models.TransformerStatusAlert
	}
	return models.TransformerStatusOnline
}

// NextDue computes the due date following a completion; ok is false for one-time rules
func NextDue(r models.Recurrence, completedAt time.Time) (time.Time, bool) {
	return r.Next(Date(completedAt))
}
