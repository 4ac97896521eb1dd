package logic

import (
	"fmt"
	"sort"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/models"
)

const (
	criticalBatteryPercent = 10
	criticalOverdueDays    = 30
)

// TransformerAlerts derives the alerts raised by a transformer's telemetry and reconciliation state
func TransformerAlerts(t *models.Transformer, now time.Time) []models.Alert {
	var alerts []models.Alert
	if t.Archived {
		return alerts
	}

	switch {
	case t.BatteryPercent < criticalBatteryPercent:
		alerts = append(alerts, models.Alert{
			Type: models.AlertLowBattery, Severity: models.SeverityHigh, TransformerID: t.ID,
			Message: fmt.Sprintf("Battery critically low at %d%%", t.BatteryPercent), Since: t.UpdatedAt,
		})
	case t.BatteryPercent < LowBatteryPercent:
		alerts = append(alerts, models.Alert{
			Type: models.AlertLowBattery, Severity: models.SeverityMedium, TransformerID: t.ID,
			Message: fmt.Sprintf("Battery low at %d%%", t.BatteryPercent), Since: t.UpdatedAt,
		})
	}

	switch {
	case t.SignalStrength <= 0:
		alerts = append(alerts, models.Alert{
			Type: models.AlertSignal, Severity: models.SeverityHigh, TransformerID: t.ID,
			Message: "No signal from GPS tracker", Since: t.UpdatedAt,
		})
	case t.SignalStrength <= WeakSignal:
		alerts = append(alerts, models.Alert{
			Type: models.AlertSignal, Severity: models.SeverityMedium, TransformerID: t.ID,
			Message: fmt.Sprintf("Weak signal strength %d/%d", t.SignalStrength, models.MaxSignalStrength), Since: t.UpdatedAt,
		})
	}

	switch ReconciliationStatus(t.LastReconciledAt, now) {
	case models.ReconciliationMissing:
		alerts = append(alerts, models.Alert{
			Type: models.AlertReconciliationAbsent, Severity: models.SeverityMedium, TransformerID: t.ID,
			Message: "Transformer has never been reconciled", Since: t.CreatedAt,
		})
	case models.ReconciliationOverdue:
		alerts = append(alerts, models.Alert{
			Type: models.AlertReconciliationStale, Severity: models.SeverityLow, TransformerID: t.ID,
			Message: fmt.Sprintf("Last reconciled %d days ago", DaysBetween(*t.LastReconciledAt, now)),
			Since:   t.LastReconciledAt.AddDate(0, 0, ReconciliationWindowDays),
		})
	}
	return alerts
}

// PlanAlert derives the overdue alert for a plan, if any
func PlanAlert(p *models.MaintenancePlan, now time.Time) (models.Alert, bool) {
	if !PlanOverdue(p, now) {
		return models.Alert{}, false
	}
	days := DaysOverdue(p, now)
	severity := models.SeverityMedium
	if days > criticalOverdueDays {
		severity = models.SeverityHigh
	}
	return models.Alert{
		Type:          models.AlertMaintenanceOverdue,
		Severity:      severity,
		TransformerID: p.TransformerID,
		PlanID:        p.ID,
		Message:       fmt.Sprintf("%s overdue by %d days", p.Name, days),
		Since:         Date(p.NextDue),
	}, true
}

var severityRank = map[models.Severity]int{
	models.SeverityHigh:   0,
	models.SeverityMedium: 1,
	models.SeverityLow:    2,
}

// SortAlerts orders by severity, then oldest first
func SortAlerts(alerts []models.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := severityRank[alerts[i].Severity], severityRank[alerts[j].Severity]
		if ri != rj {
			return ri < rj
		}
		return alerts[i].Since.Before(alerts[j].Since)
	})
}
