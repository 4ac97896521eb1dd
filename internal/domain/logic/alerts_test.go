package logic

import (
	"testing"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alertTypes(alerts []models.Alert) []models.AlertType {
	out := make([]models.AlertType, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Type)
	}
	return out
}

func TestTransformerAlerts(t *testing.T) {
	now := day("2024-02-20")
	recent := now.AddDate(0, 0, -5)
	stale := now.AddDate(0, 0, -40)

	t.Run("healthy transformer raises nothing", func(t *testing.T) {
		tr := &models.Transformer{ID: "TR-001", BatteryPercent: 85, SignalStrength: 4, LastReconciledAt: &recent}
		assert.Empty(t, TransformerAlerts(tr, now))
	})

	t.Run("critical battery and no signal are high severity", func(t *testing.T) {
		tr := &models.Transformer{ID: "TR-009", BatteryPercent: 5, SignalStrength: 0, LastReconciledAt: &recent}
		alerts := TransformerAlerts(tr, now)
		require.Len(t, alerts, 2)
		for _, a := range alerts {
			assert.Equal(t, models.SeverityHigh, a.Severity)
		}
	})

	t.Run("never reconciled and stale reconciliation", func(t *testing.T) {
		missing := &models.Transformer{ID: "TR-010", BatteryPercent: 60, SignalStrength: 3}
		assert.Equal(t, []models.AlertType{models.AlertReconciliationAbsent}, alertTypes(TransformerAlerts(missing, now)))

		old := &models.Transformer{ID: "TR-011", BatteryPercent: 60, SignalStrength: 3, LastReconciledAt: &stale}
		alerts := TransformerAlerts(old, now)
		require.Len(t, alerts, 1)
		assert.Equal(t, models.AlertReconciliationStale, alerts[0].Type)
		assert.Equal(t, models.SeverityLow, alerts[0].Severity)
	})

	t.Run("archived transformers are silent", func(t *testing.T) {
		tr := &models.Transformer{ID: "TR-012", BatteryPercent: 1, SignalStrength: 0, Archived: true}
		assert.Empty(t, TransformerAlerts(tr, now))
	})
}

func TestPlanAlert(t *testing.T) {
	now := day("2024-03-01")

	_, ok := PlanAlert(&models.MaintenancePlan{Status: models.PlanStatusScheduled, NextDue: day("2024-03-05")}, now)
	assert.False(t, ok)

	a, ok := PlanAlert(&models.MaintenancePlan{ID: "2", TransformerID: "TR-002", Name: "Annual Overhaul",
		Status: models.PlanStatusScheduled, NextDue: day("2024-02-20")}, now)
	require.True(t, ok)
	assert.Equal(t, models.SeverityMedium, a.Severity)
	assert.Equal(t, "2", a.PlanID)

	a, ok = PlanAlert(&models.MaintenancePlan{Status: models.PlanStatusScheduled, NextDue: day("2024-01-01")}, now)
	require.True(t, ok)
	assert.Equal(t, models.SeverityHigh, a.Severity)
}

func TestSortAlerts(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	alerts := []models.Alert{
		{Severity: models.SeverityLow, Since: base},
		{Severity: models.SeverityHigh, Since: base.Add(time.Hour)},
		{Severity: models.SeverityMedium, Since: base},
		{Severity: models.SeverityHigh, Since: base},
	}
	SortAlerts(alerts)

	assert.Equal(t, models.SeverityHigh, alerts[0].Severity)
	assert.Equal(t, base, alerts[0].Since)
	assert.Equal(t, models.SeverityHigh, alerts[1].Severity)
	assert.Equal(t, models.SeverityMedium, alerts[2].Severity)
	assert.Equal(t, models.SeverityLow, alerts[3].Severity)
}
