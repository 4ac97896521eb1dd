package logic

import (
	"testing"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestPlanStatus(t *testing.T) {
	now := day("2024-01-25").Add(9 * time.Hour)

	tests := []struct {
		name   string
		stored models.PlanStatus
		due    string
		want   models.PlanStatus
	}{
		{"future due date is scheduled", models.PlanStatusScheduled, "2024-02-15", models.PlanStatusScheduled},
		{"due today is not yet overdue", models.PlanStatusScheduled, "2024-01-25", models.PlanStatusScheduled},
		{"past due without execution is overdue", models.PlanStatusScheduled, "2024-01-20", models.PlanStatusOverdue},
		{"in progress wins over overdue", models.PlanStatusInProgress, "2024-01-20", models.PlanStatusInProgress},
		{"in progress before due date", models.PlanStatusInProgress, "2024-02-15", models.PlanStatusInProgress},
		{"completed stays completed past due", models.PlanStatusCompleted, "2024-01-01", models.PlanStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := &models.MaintenancePlan{Status: tt.stored, NextDue: day(tt.due)}
			assert.Equal(t, tt.want, PlanStatus(plan, now))
		})
	}
}

func TestPlanStatus_ScenarioB(t *testing.T) {
	plan := &models.MaintenancePlan{
		ID:      "2",
		Name:    "Annual Overhaul",
		Status:  models.PlanStatusScheduled,
		NextDue: day("2024-01-20"),
	}

	assert.Equal(t, models.PlanStatusOverdue, PlanStatus(plan, day("2024-01-25")))
	assert.Equal(t, 5, DaysOverdue(plan, day("2024-01-25")))
}

func TestPlanOverdue_ArchivedNeverOverdue(t *testing.T) {
	plan := &models.MaintenancePlan{Status: models.PlanStatusScheduled, NextDue: day("2023-01-01"), Archived: true}
	assert.False(t, PlanOverdue(plan, day("2024-01-25")))
	assert.Equal(t, 0, DaysOverdue(plan, day("2024-01-25")))
}

func TestReconciliationStatus(t *testing.T) {
	now := day("2024-02-20").Add(15 * time.Hour)

	ts := func(daysAgo int) *time.Time {
		v := now.AddDate(0, 0, -daysAgo)
		return &v
	}

	assert.Equal(t, models.ReconciliationMissing, ReconciliationStatus(nil, now))
	assert.Equal(t, models.ReconciliationUpToDate, ReconciliationStatus(ts(0), now))
	assert.Equal(t, models.ReconciliationUpToDate, ReconciliationStatus(ts(10), now))
	assert.Equal(t, models.ReconciliationUpToDate, ReconciliationStatus(ts(30), now))
	assert.Equal(t, models.ReconciliationOverdue, ReconciliationStatus(ts(31), now))
	assert.Equal(t, models.ReconciliationOverdue, ReconciliationStatus(ts(71), now))
}

func TestReconciliationStatus_ScenarioA(t *testing.T) {
	now := time.Date(2024, 2, 20, 8, 0, 0, 0, time.UTC)
	last := now.AddDate(0, 0, -36)

	assert.Equal(t, models.ReconciliationOverdue, ReconciliationStatus(&last, now))
	assert.Equal(t, 36, DaysSinceReconciled(&last, now))
}

func TestReconciliationState(t *testing.T) {
	now := day("2024-02-20")
	recent := now.AddDate(0, 0, -3)
	old := now.AddDate(0, 0, -45)

	opened := now.Add(-time.Minute)
	confirmed := now

	assert.Equal(t, models.ReconciliationStateMissing, ReconciliationState(nil, nil, now))
	assert.Equal(t, models.ReconciliationStatePending, ReconciliationState(nil, &opened, now))
	assert.Equal(t, models.ReconciliationStatePending, ReconciliationState(&old, &opened, now))
	assert.Equal(t, models.ReconciliationStateVerified, ReconciliationState(&confirmed, &opened, now), "confirmed inside the session")
	assert.Equal(t, models.ReconciliationStateVerified, ReconciliationState(&opened, &opened, now), "event at the session start counts")
	assert.Equal(t, models.ReconciliationStateVerified, ReconciliationState(&recent, nil, now))
	assert.Equal(t, models.ReconciliationStateStale, ReconciliationState(&old, nil, now))
	assert.Equal(t, -1, DaysSinceReconciled(nil, now))
}

func TestDaysBetween_CalendarDays(t *testing.T) {
	then := time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC)
	now := time.Date(2024, 1, 11, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(then, now))

	// Non-UTC inputs are compared on their UTC calendar day
	ist := time.FixedZone("IST", 5*3600+1800)
	local := time.Date(2024, 1, 11, 3, 0, 0, 0, ist) // 2024-01-10 21:30 UTC
	assert.Equal(t, 0, DaysBetween(local, time.Date(2024, 1, 10, 22, 0, 0, 0, time.UTC)))
}

func TestTelemetryStatus(t *testing.T) {
	tests := []struct {
		battery, signal int
		want            models.TransformerStatus
	}{
		{85, 4, models.TransformerStatusOnline},
		{20, 2, models.TransformerStatusOnline},
		{19, 4, models.TransformerStatusAlert},
		{90, 1, models.TransformerStatusAlert},
		{90, 0, models.TransformerStatusOffline},
		{5, 0, models.TransformerStatusOffline},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TelemetryStatus(tt.battery, tt.signal), "battery=%d signal=%d", tt.battery, tt.signal)
	}
}

func TestNextDue_ScenarioC(t *testing.T) {
	r, err := models.ParseRecurrence("Every 3 months")
	require.NoError(t, err)

	next, ok := NextDue(r, time.Date(2024, 1, 10, 16, 30, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, day("2024-04-10"), next)
}

func TestNextDue_OneTime(t *testing.T) {
	_, ok := NextDue(models.RecurrenceOneTime, day("2024-01-10"))
	assert.False(t, ok)
}
