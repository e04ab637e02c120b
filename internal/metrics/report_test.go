package metrics

import (
	"context"
	"testing"

	"washplant-monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReportSummary(t *testing.T) {
	e, store := newTestEngine(t)
	seedPlantWeek(t, store)
	require.NoError(t, store.UpsertAlias(context.Background(), 7, "Grand Hotel"))

	ds := e.BuildReport(context.Background(), testWindow())

	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, refNow, ds.GeneratedAt)
	assert.Equal(t, refNow.AddDate(0, 0, -6).Format("2006-01-02"), ds.WindowStart)
	assert.Equal(t, refNow.Format("2006-01-02"), ds.WindowEnd)

	s := ds.Summary
	assert.Equal(t, 7, s.PeriodDays)
	assert.Equal(t, 800.0, s.ProductionKg)
	assert.Equal(t, 2, s.Cycles)
	assert.Equal(t, 114.0, s.DailyAvgKg)
	assert.Equal(t, 400.0, s.AvgWeightKg)
	assert.Equal(t, 8000.0, s.WaterLiters)
	assert.Equal(t, 10.0, s.WaterPerKg)
	assert.Equal(t, 1000.0, s.ChemicalsML)
	assert.Equal(t, 1.25, s.ChemicalPerKg)
	assert.Equal(t, 50.0, s.EfficiencyPct)
	assert.Equal(t, 2, s.PeriodAlarms)
	assert.Equal(t, 1, s.ActiveAlarms)
}

func TestBuildReportTablesUseSnapshotNames(t *testing.T) {
	e, store := newTestEngine(t)
	seedPlantWeek(t, store)
	require.NoError(t, store.UpsertAlias(context.Background(), 7, "Grand Hotel"))

	ds := e.BuildReport(context.Background(), testWindow())

	require.Len(t, ds.ProductionByClient, 1)
	assert.Equal(t, "Grand Hotel", ds.ProductionByClient[0].Client)
	assert.Equal(t, 300.0, ds.ProductionByClient[0].TotalKg)
	assert.Equal(t, 3, ds.ProductionByClient[0].TotalLoads)

	require.Len(t, ds.AlarmsDaily, 2)
	require.Len(t, ds.WaterChemicalsDaily, 3)
}

func TestBuildReportIsRepeatable(t *testing.T) {
	e, store := newTestEngine(t)
	seedPlantWeek(t, store)

	first := e.BuildReport(context.Background(), testWindow())
	second := e.BuildReport(context.Background(), testWindow())

	// Identity differs per build; the content does not.
	assert.NotEqual(t, first.ID, second.ID)
	first.ID, second.ID = "", ""
	assert.Equal(t, first, second)
}

func TestBuildReportReconcilesAcrossSources(t *testing.T) {
	e, store := newTestEngine(t)

	// The daily consolidation mirrors what the load ledger recorded, so the
	// per-day production table must sum to the summary's production figure.
	loads := []models.LoadRecord{
		{Timestamp: dayAt(-2, 9), ClientID: 1, Kg: 100},
		{Timestamp: dayAt(-2, 11), ClientID: 2, Kg: 200},
		{Timestamp: dayAt(-1, 10), ClientID: 1, Kg: 500},
	}
	_, err := store.InsertLoadBatch(loads)
	require.NoError(t, err)

	daily := []models.DailyRecord{
		{Timestamp: dayAt(-2, 23), Kg: 300, ProductionMin: 100, DowntimeMin: 20},
		{Timestamp: dayAt(-1, 23), Kg: 500, ProductionMin: 110, DowntimeMin: 10},
	}
	for i := range daily {
		require.NoError(t, store.InsertDailyRecord(&daily[i]))
	}

	ds := e.BuildReport(context.Background(), testWindow())

	var tableKg float64
	for _, row := range ds.DailyProduction {
		tableKg += row.Kg
	}
	assert.Equal(t, ds.Summary.ProductionKg, tableKg)
}

func TestBuildReportDegradesPerTable(t *testing.T) {
	e, store := newTestEngine(t)
	require.NoError(t, store.Close())

	ds := e.BuildReport(context.Background(), testWindow())

	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, 0.0, ds.Summary.ProductionKg)
	assert.Empty(t, ds.ProductionByClient)
	assert.Empty(t, ds.DailyProduction)
	assert.Empty(t, ds.WaterChemicalsDaily)
	assert.Empty(t, ds.AlarmsDaily)
}
