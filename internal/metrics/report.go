package metrics

import (
	"context"

	"washplant-monitor/internal/alias"
	"washplant-monitor/internal/models"
	"washplant-monitor/internal/window"

	"github.com/google/uuid"
)

// BuildReport assembles the multi-table dataset consumed by export
// renderers. The alias mapping is snapshotted once at the start, so every
// row of one report sees consistent display names even if the store changes
// mid-build. Sub-tables are produced by independent day- and client-grouped
// queries, not derived from the summary scalars; a failed sub-table degrades
// to an empty table and the summary is still returned. With unchanged
// sources, two builds over the same window yield identical tables.
func (e *Engine) BuildReport(ctx context.Context, w window.Window) models.ReportDataset {
	snap := alias.Take(ctx, e.store)

	return models.ReportDataset{
		ID:                  uuid.NewString(),
		GeneratedAt:         e.now(),
		WindowStart:         w.Start.Format("2006-01-02"),
		WindowEnd:           w.EndExclusive.AddDate(0, 0, -1).Format("2006-01-02"),
		Summary:             e.buildSummary(ctx, w),
		ProductionByClient:  e.ProductionByClient(ctx, w, snap),
		DailyProduction:     e.ProductionByDay(ctx, w),
		WaterChemicalsDaily: e.WaterChemicalsByDay(ctx, w),
		AlarmsDaily:         e.AlarmsByDay(ctx, w),
	}
}

// buildSummary is the executive summary over the window: period production
// and consumption with their derived per-kilogram ratios, plus alarm counts.
func (e *Engine) buildSummary(ctx context.Context, w window.Window) models.ReportSummary {
	pt := e.DailyPeriodTotals(ctx, w, 0)
	chem := e.ChemicalTotal(ctx, w)
	efficiency := e.Efficiency(ctx, w, 0)
	periodAlarms := e.AlarmsInPeriod(ctx, w)
	activeAlarms := e.ActiveAlarmsToday(ctx)

	days := w.InclusiveDayCount()

	return models.ReportSummary{
		PeriodDays:    days,
		ProductionKg:  round(pt.Kg, 0),
		Cycles:        pt.Cycles,
		DailyAvgKg:    round(safeDiv(pt.Kg, float64(days)), 0),
		AvgWeightKg:   round(safeDiv(pt.Kg, float64(pt.Cycles)), 2),
		WaterLiters:   round(pt.WaterLiters, 0),
		WaterPerKg:    round(safeDiv(pt.WaterLiters, pt.Kg), 2),
		ChemicalsML:   round(chem, 2),
		ChemicalPerKg: round(safeDiv(chem, pt.Kg), 3),
		EfficiencyPct: efficiency,
		PeriodAlarms:  periodAlarms,
		ActiveAlarms:  activeAlarms,
	}
}
