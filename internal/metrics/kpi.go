package metrics

import (
	"context"
	"strconv"

	"washplant-monitor/internal/models"
	"washplant-monitor/internal/window"
)

// Compose builds the today and period KPI bundles for one request.
//
// The today bundle carries two families: status-sourced values read from the
// resolved status day (today, or the latest day with data), and load-ledger
// values pinned to the literal calendar date. clientID of 0 disables the
// client filter; the filter applies to the consolidated-daily period metrics.
func (e *Engine) Compose(ctx context.Context, w window.Window, clientID int64) models.KPIResult {
	today := window.TodayAt(e.now())

	statusDay, _ := e.resolveStatusDay(ctx)
	statusWin := window.Day(statusDay)

	st := e.StatusDayTotals(ctx, statusWin)
	chemToday := e.ChemicalTotal(ctx, statusWin)

	loadsToday := e.ProductionToday(ctx)
	waterToday := e.WaterToday(ctx)

	pt := e.DailyPeriodTotals(ctx, w, clientID)
	chemPeriod := e.ChemicalTotal(ctx, w)
	efficiency := e.Efficiency(ctx, w, clientID)

	activeAlarms := e.ActiveAlarmsToday(ctx)
	periodAlarms := e.AlarmsInPeriod(ctx, w)

	todayBundle := models.KPIBundle{
		"kg_washed":         fmtWhole(st.Kg),
		"cycles":            strconv.Itoa(st.Cycles),
		"water_liters":      fmtWhole(st.WaterLiters),
		"weight_per_cycle":  fmtDec(safeDiv(st.Kg, float64(st.Cycles)), 2),
		"water_per_kg":      fmtDec(safeDiv(st.WaterLiters, st.Kg), 2),
		"chemicals_ml":      fmtWhole(chemToday),
		"chemical_per_kg":   fmtDec(safeDiv(chemToday, st.Kg), 3),
		"load_kg":           fmtWhole(loadsToday.Kg),
		"load_count":        strconv.Itoa(loadsToday.Loads),
		"load_water_liters": fmtWhole(waterToday.Liters),
		"load_water_per_kg": fmtDec(safeDiv(waterToday.Liters, waterToday.Kg), 2),
	}

	dailyAvg := safeDiv(pt.Kg, float64(w.InclusiveDayCount()))
	periodBundle := models.KPIBundle{
		"kg_washed":        fmtWhole(pt.Kg),
		"cycles":           strconv.Itoa(pt.Cycles),
		"water_liters":     fmtWhole(pt.WaterLiters),
		"weight_per_cycle": fmtDec(safeDiv(pt.Kg, float64(pt.Cycles)), 2),
		"water_per_kg":     fmtDec(safeDiv(pt.WaterLiters, pt.Kg), 2),
		"chemicals_ml":     fmtWhole(chemPeriod),
		"chemical_per_kg":  fmtDec(safeDiv(chemPeriod, pt.Kg), 3),
		"efficiency_pct":   fmtDec(efficiency, 1),
		"daily_avg_kg":     fmtWhole(dailyAvg),
	}

	misc := models.KPIBundle{
		"active_alarms": strconv.Itoa(activeAlarms),
		"period_alarms": strconv.Itoa(periodAlarms),
	}

	return models.KPIResult{
		Today:       todayBundle,
		Period:      periodBundle,
		Misc:        misc,
		TodayDate:   today.Start.Format("2006-01-02"),
		StatusDate:  statusDay.Format("2006-01-02"),
		PeriodLabel: w.Label(),
	}
}
