package metrics

import (
	"context"
	"testing"

	"washplant-monitor/internal/db"
	"washplant-monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedPlantWeek loads a small but complete data set around refNow: status
// polls and loads today, two consolidated days, chemicals and alarms.
func seedPlantWeek(t *testing.T, store *db.Database) {
	t.Helper()

	status := []models.StatusRecord{
		{Timestamp: dayAt(0, 8), WaterM3: 1.5, Cycles: 3, KgWashed: 150},
		{Timestamp: dayAt(0, 13), WaterM3: 4.5, Cycles: 9, KgWashed: 450},
	}
	_, err := store.InsertStatusBatch(status)
	require.NoError(t, err)

	loads := []models.LoadRecord{
		{Timestamp: dayAt(0, 8), ClientID: 7, Kg: 100, WaterM3: 0.05},
		{Timestamp: dayAt(0, 9), ClientID: 7, Kg: 200, WaterM3: 0.08},
		{Timestamp: dayAt(0, 10), ClientID: 7, Kg: 0},
	}
	_, err = store.InsertLoadBatch(loads)
	require.NoError(t, err)

	daily := []models.DailyRecord{
		{Timestamp: dayAt(-2, 23), Kg: 300, WaterM3: 3, ProductionMin: 90, DowntimeMin: 10},
		{Timestamp: dayAt(-1, 23), Kg: 500, WaterM3: 5, ProductionMin: 10, DowntimeMin: 90},
	}
	for i := range daily {
		require.NoError(t, store.InsertDailyRecord(&daily[i]))
	}

	chems := []models.ChemicalRecord{
		{Timestamp: dayAt(0, 12), Q1: 900},
		{Timestamp: dayAt(-2, 22), Q2: 100},
	}
	for i := range chems {
		require.NoError(t, store.InsertChemicalRecord(&chems[i]))
	}

	clear := dayAt(-1, 10)
	alarms := []models.AlarmRecord{
		{StartTime: dayAt(0, 9), Tag: "PUMP", Message: "fault", Priority: 1},
		{StartTime: dayAt(-1, 9), ClearTime: &clear, Tag: "TEMP", Message: "high", Priority: 2},
	}
	_, err = store.InsertAlarmBatch(alarms)
	require.NoError(t, err)
}

func TestComposeFullScenario(t *testing.T) {
	e, store := newTestEngine(t)
	seedPlantWeek(t, store)

	result := e.Compose(context.Background(), testWindow(), 0)

	// Status-sourced family: last poll of today.
	assert.Equal(t, "450", result.Today["kg_washed"])
	assert.Equal(t, "9", result.Today["cycles"])
	assert.Equal(t, "4500", result.Today["water_liters"])
	assert.Equal(t, "50.00", result.Today["weight_per_cycle"])
	assert.Equal(t, "10.00", result.Today["water_per_kg"])
	assert.Equal(t, "900", result.Today["chemicals_ml"])
	assert.Equal(t, "2.000", result.Today["chemical_per_kg"])

	// Load-ledger family: literal today, zero-kg load excluded.
	assert.Equal(t, "300", result.Today["load_kg"])
	assert.Equal(t, "2", result.Today["load_count"])
	assert.Equal(t, "130", result.Today["load_water_liters"])
	assert.Equal(t, "0.43", result.Today["load_water_per_kg"])

	// Period family from the consolidated daily source.
	assert.Equal(t, "800", result.Period["kg_washed"])
	assert.Equal(t, "2", result.Period["cycles"])
	assert.Equal(t, "8000", result.Period["water_liters"])
	assert.Equal(t, "400.00", result.Period["weight_per_cycle"])
	assert.Equal(t, "10.00", result.Period["water_per_kg"])
	assert.Equal(t, "1000", result.Period["chemicals_ml"])
	assert.Equal(t, "1.250", result.Period["chemical_per_kg"])
	assert.Equal(t, "50.0", result.Period["efficiency_pct"])
	assert.Equal(t, "114", result.Period["daily_avg_kg"])

	assert.Equal(t, "1", result.Misc["active_alarms"])
	assert.Equal(t, "2", result.Misc["period_alarms"])

	today := refNow.Format("2006-01-02")
	assert.Equal(t, today, result.TodayDate)
	assert.Equal(t, today, result.StatusDate)
	assert.Equal(t, testWindow().Label(), result.PeriodLabel)
}

func TestComposeTodayNotionsDiverge(t *testing.T) {
	e, store := newTestEngine(t)

	// Status data stops three days ago; the load ledger has rows today. The
	// status family reads the stale day while the load family stays on the
	// literal date.
	r := models.StatusRecord{Timestamp: dayAt(-3, 18), WaterM3: 3.2, Cycles: 8, KgWashed: 320}
	require.NoError(t, store.InsertStatusRecord(&r))

	l := models.LoadRecord{Timestamp: dayAt(0, 9), ClientID: 1, Kg: 50, WaterM3: 0.02}
	require.NoError(t, store.InsertLoadRecord(&l))

	result := e.Compose(context.Background(), testWindow(), 0)

	assert.Equal(t, "320", result.Today["kg_washed"])
	assert.Equal(t, "50", result.Today["load_kg"])
	assert.Equal(t, refNow.AddDate(0, 0, -3).Format("2006-01-02"), result.StatusDate)
	assert.Equal(t, refNow.Format("2006-01-02"), result.TodayDate)
}

func TestComposeEmptyDatabase(t *testing.T) {
	e, _ := newTestEngine(t)

	result := e.Compose(context.Background(), testWindow(), 0)

	assert.Equal(t, "0", result.Today["kg_washed"])
	assert.Equal(t, "0.00", result.Today["weight_per_cycle"])
	assert.Equal(t, "0.000", result.Today["chemical_per_kg"])
	assert.Equal(t, "0", result.Period["kg_washed"])
	assert.Equal(t, "0.0", result.Period["efficiency_pct"])
	assert.Equal(t, "0", result.Misc["active_alarms"])
	assert.Equal(t, refNow.Format("2006-01-02"), result.StatusDate)
}

func TestComposeClosedStoreStillReturns(t *testing.T) {
	e, store := newTestEngine(t)
	require.NoError(t, store.Close())

	// Every source fails; the result is all zeros, never a panic or error.
	result := e.Compose(context.Background(), testWindow(), 0)

	assert.Equal(t, "0", result.Today["kg_washed"])
	assert.Equal(t, "0", result.Today["load_kg"])
	assert.Equal(t, "0", result.Period["kg_washed"])
	assert.Equal(t, "0", result.Misc["period_alarms"])
}

func TestComposeClientFilter(t *testing.T) {
	e, store := newTestEngine(t)

	daily := []models.DailyRecord{
		{Timestamp: dayAt(-2, 23), Kg: 300, WaterM3: 3, ProductionMin: 90, DowntimeMin: 10, ClientID: 1},
		{Timestamp: dayAt(-1, 23), Kg: 500, WaterM3: 5, ProductionMin: 10, DowntimeMin: 90, ClientID: 2},
	}
	for i := range daily {
		require.NoError(t, store.InsertDailyRecord(&daily[i]))
	}

	result := e.Compose(context.Background(), testWindow(), 2)
	assert.Equal(t, "500", result.Period["kg_washed"])
	assert.Equal(t, "10.0", result.Period["efficiency_pct"])
}
