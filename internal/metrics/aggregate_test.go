package metrics

import (
	"context"
	"testing"
	"time"

	"washplant-monitor/internal/alias"
	"washplant-monitor/internal/models"
	"washplant-monitor/internal/window"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dayAt(offsetDays, hour int) time.Time {
	d := refNow.AddDate(0, 0, offsetDays)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.Local)
}

// testWindow covers the trailing seven calendar days ending today.
func testWindow() window.Window {
	return window.FromTimes(refNow.AddDate(0, 0, -6), refNow)
}

func TestEfficiencyUsesSummedMinutes(t *testing.T) {
	e, store := newTestEngine(t)

	// Two days with very different weights. The summed form gives
	// 120/220 = 54.5; a mean of the per-day ratios would give 57.5.
	daily := []models.DailyRecord{
		{Timestamp: dayAt(-2, 23), ProductionMin: 90, DowntimeMin: 10, Kg: 300},
		{Timestamp: dayAt(-1, 23), ProductionMin: 30, DowntimeMin: 90, Kg: 100},
	}
	for i := range daily {
		require.NoError(t, store.InsertDailyRecord(&daily[i]))
	}

	got := e.Efficiency(context.Background(), testWindow(), 0)
	assert.Equal(t, 54.5, got)
}

func TestEfficiencyCountsZeroProductionDays(t *testing.T) {
	e, store := newTestEngine(t)

	// A fully-down day has no production minutes but its downtime still
	// belongs in the denominator: 10 / (10 + 10) = 50, not 100.
	daily := []models.DailyRecord{
		{Timestamp: dayAt(-2, 23), ProductionMin: 10, DowntimeMin: 0},
		{Timestamp: dayAt(-1, 23), ProductionMin: 0, DowntimeMin: 10},
	}
	for i := range daily {
		require.NoError(t, store.InsertDailyRecord(&daily[i]))
	}

	got := e.Efficiency(context.Background(), testWindow(), 0)
	assert.Equal(t, 50.0, got)
}

func TestEfficiencyZeroMinutes(t *testing.T) {
	e, _ := newTestEngine(t)
	got := e.Efficiency(context.Background(), testWindow(), 0)
	assert.Equal(t, 0.0, got)
}

func TestStatusDayTotalsReadsLastPoll(t *testing.T) {
	e, store := newTestEngine(t)

	polls := []models.StatusRecord{
		{Timestamp: dayAt(0, 8), WaterM3: 1.5, Cycles: 3, KgWashed: 150},
		{Timestamp: dayAt(0, 13), WaterM3: 4.5, Cycles: 9, KgWashed: 450},
	}
	for i := range polls {
		require.NoError(t, store.InsertStatusRecord(&polls[i]))
	}

	st := e.StatusDayTotals(context.Background(), window.TodayAt(refNow))
	assert.True(t, st.HasData)
	assert.Equal(t, 450.0, st.Kg)
	assert.Equal(t, 9, st.Cycles)
	assert.Equal(t, 4500.0, st.WaterLiters)
}

func TestResolveStatusDayPrefersToday(t *testing.T) {
	e, store := newTestEngine(t)

	r := models.StatusRecord{Timestamp: dayAt(0, 9), KgWashed: 100}
	require.NoError(t, store.InsertStatusRecord(&r))

	day, hasToday := e.resolveStatusDay(context.Background())
	assert.True(t, hasToday)
	assert.Equal(t, window.TodayAt(refNow).Start, day)
}

func TestResolveStatusDayFallsBackToLatest(t *testing.T) {
	e, store := newTestEngine(t)

	// The only data is three days old; the status KPIs should read that day.
	r := models.StatusRecord{Timestamp: dayAt(-3, 18), KgWashed: 320}
	require.NoError(t, store.InsertStatusRecord(&r))

	day, hasToday := e.resolveStatusDay(context.Background())
	assert.False(t, hasToday)
	assert.Equal(t, window.Day(dayAt(-3, 0)).Start, day)
}

func TestResolveStatusDayEmptySourceIsToday(t *testing.T) {
	e, _ := newTestEngine(t)

	day, hasToday := e.resolveStatusDay(context.Background())
	assert.False(t, hasToday)
	assert.Equal(t, window.TodayAt(refNow).Start, day)
}

func TestProductionByClient(t *testing.T) {
	e, store := newTestEngine(t)

	loads := []models.LoadRecord{
		{Timestamp: dayAt(0, 8), ClientID: 7, Kg: 100},
		{Timestamp: dayAt(0, 9), ClientID: 7, Kg: 200},
		{Timestamp: dayAt(0, 10), ClientID: 7, Kg: 0},
		{Timestamp: dayAt(-1, 9), ClientID: 2, Kg: 500},
	}
	_, err := store.InsertLoadBatch(loads)
	require.NoError(t, err)

	snap := alias.FromMap(map[int64]string{2: "Grand Hotel"})
	rows := e.ProductionByClient(context.Background(), testWindow(), snap)
	require.Len(t, rows, 2)

	// Heaviest client first.
	assert.Equal(t, "Grand Hotel", rows[0].Client)
	assert.Equal(t, 500.0, rows[0].TotalKg)

	// Unaliased id gets the deterministic fallback; the zero-kg load counts
	// toward the load count but not the weight.
	assert.Equal(t, "Client 7", rows[1].Client)
	assert.Equal(t, 3, rows[1].TotalLoads)
	assert.Equal(t, 300.0, rows[1].TotalKg)
	assert.Equal(t, 100.0, rows[1].AvgWeightKg)
}

func TestWaterChemicalsByDayMergesDisjointDays(t *testing.T) {
	e, store := newTestEngine(t)

	d := models.DailyRecord{Timestamp: dayAt(-2, 23), Kg: 400, WaterM3: 4}
	require.NoError(t, store.InsertDailyRecord(&d))
	c := models.ChemicalRecord{Timestamp: dayAt(-1, 22), Q1: 500, Q5: 250}
	require.NoError(t, store.InsertChemicalRecord(&c))

	rows := e.WaterChemicalsByDay(context.Background(), testWindow())
	require.Len(t, rows, 2)

	water := rows[0]
	assert.Equal(t, 400.0, water.Kg)
	assert.Equal(t, 4000.0, water.WaterLiters)
	assert.Equal(t, 10.0, water.WaterPerKg)
	assert.Equal(t, 0.0, water.ChemicalsML)

	// Chemicals-only day: kg is zero, so the per-kg ratio degrades to zero
	// instead of Inf.
	chem := rows[1]
	assert.Equal(t, 750.0, chem.ChemicalsML)
	assert.Equal(t, 0.0, chem.Kg)
	assert.Equal(t, 0.0, chem.ChemicalPerKg)
}

func TestProductionTodayIgnoresOtherDays(t *testing.T) {
	e, store := newTestEngine(t)

	loads := []models.LoadRecord{
		{Timestamp: dayAt(0, 9), ClientID: 1, Kg: 120, WaterM3: 0.05},
		{Timestamp: dayAt(-1, 9), ClientID: 1, Kg: 999, WaterM3: 2},
	}
	_, err := store.InsertLoadBatch(loads)
	require.NoError(t, err)

	pt := e.ProductionToday(context.Background())
	assert.Equal(t, 120.0, pt.Kg)
	assert.Equal(t, 1, pt.Loads)

	wt := e.WaterToday(context.Background())
	assert.Equal(t, 50.0, wt.Liters)
	assert.Equal(t, 120.0, wt.Kg)
}

func TestAggregatesDegradeOnClosedStore(t *testing.T) {
	e, store := newTestEngine(t)
	require.NoError(t, store.Close())

	w := testWindow()
	ctx := context.Background()

	assert.Equal(t, ProductionTotals{}, e.ProductionToday(ctx))
	assert.Equal(t, WaterTotals{}, e.WaterToday(ctx))
	assert.Equal(t, PeriodTotals{}, e.DailyPeriodTotals(ctx, w, 0))
	assert.Equal(t, 0.0, e.Efficiency(ctx, w, 0))
	assert.Equal(t, 0.0, e.ChemicalTotal(ctx, w))
	assert.Empty(t, e.ProductionByDay(ctx, w))
	assert.Empty(t, e.ProductionByClient(ctx, w, alias.FromMap(nil)))
	assert.Empty(t, e.WaterChemicalsByDay(ctx, w))
	assert.Empty(t, e.EfficiencyByDay(ctx, w))
	assert.Equal(t, 0, e.ActiveAlarmsToday(ctx))
	assert.Equal(t, 0, e.AlarmsInPeriod(ctx, w))
	assert.Empty(t, e.TopAlarmsToday(ctx))
	assert.Empty(t, e.TopAlarmsPeriod(ctx, w))
}
