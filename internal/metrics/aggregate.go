package metrics

import (
	"context"

	"washplant-monitor/internal/alias"
	"washplant-monitor/internal/models"
	"washplant-monitor/internal/window"
)

// ProductionTotals is the load-ledger production aggregate for one window.
type ProductionTotals struct {
	Kg    float64
	Loads int
}

// WaterTotals pairs water volume with the kilograms that consumed it.
type WaterTotals struct {
	Liters float64
	Kg     float64
}

// PeriodTotals is the consolidated-daily aggregate for one window.
type PeriodTotals struct {
	Kg          float64
	Cycles      int
	WaterLiters float64
}

// StatusTotals is the last cumulative status poll of one calendar day. The
// counters reset at midnight, so this is the day's running total, not a sum.
type StatusTotals struct {
	Kg          float64
	Cycles      int
	WaterLiters float64
	HasData     bool
}

// ProductionToday sums today's load ledger. This family always uses the
// literal calendar date, independent of the status-source day resolution.
func (e *Engine) ProductionToday(ctx context.Context) ProductionTotals {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	today := window.TodayAt(e.now())
	kg, loads, err := e.store.LoadProductionTotals(qctx, today.Start, today.EndExclusive)
	if err != nil {
		e.warn("load_records", err)
		return ProductionTotals{}
	}
	return ProductionTotals{Kg: kg, Loads: loads}
}

// WaterToday sums today's load-ledger water consumption.
func (e *Engine) WaterToday(ctx context.Context) WaterTotals {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	today := window.TodayAt(e.now())
	liters, kg, err := e.store.LoadWaterTotals(qctx, today.Start, today.EndExclusive)
	if err != nil {
		e.warn("load_records", err)
		return WaterTotals{}
	}
	return WaterTotals{Liters: liters, Kg: kg}
}

// DailyPeriodTotals aggregates the consolidated daily source over a window.
// clientID of 0 means the whole plant.
func (e *Engine) DailyPeriodTotals(ctx context.Context, w window.Window, clientID int64) PeriodTotals {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	kg, rows, liters, err := e.store.DailyTotals(qctx, w.Start, w.EndExclusive, clientID)
	if err != nil {
		e.warn("daily_records", err)
		return PeriodTotals{}
	}
	return PeriodTotals{Kg: kg, Cycles: rows, WaterLiters: liters}
}

// StatusDayTotals reads the last status poll inside the given day window.
func (e *Engine) StatusDayTotals(ctx context.Context, day window.Window) StatusTotals {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	rec, ok, err := e.store.LastStatusInWindow(qctx, day.Start, day.EndExclusive)
	if err != nil {
		e.warn("status_records", err)
		return StatusTotals{}
	}
	if !ok {
		return StatusTotals{}
	}
	return StatusTotals{
		Kg:          rec.KgWashed,
		Cycles:      rec.Cycles,
		WaterLiters: rec.WaterM3 * 1000,
		HasData:     true,
	}
}

// ChemicalTotal sums the nine dosing quantities over a window. Per-kilogram
// ratios must divide this by the production sum of the same window.
func (e *Engine) ChemicalTotal(ctx context.Context, w window.Window) float64 {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	total, err := e.store.ChemicalTotal(qctx, w.Start, w.EndExclusive)
	if err != nil {
		e.warn("chemical_records", err)
		return 0
	}
	return total
}

// Efficiency derives the window's efficiency percentage from summed
// production and downtime minutes. Summing first, then dividing, weights
// every day by its minutes; a mean of per-day ratios would not.
func (e *Engine) Efficiency(ctx context.Context, w window.Window, clientID int64) float64 {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	prodMin, downMin, err := e.store.DailyMinuteSums(qctx, w.Start, w.EndExclusive, clientID)
	if err != nil {
		e.warn("daily_records", err)
		return 0
	}
	return round(safeDiv(prodMin, prodMin+downMin)*100, 1)
}

// ProductionByClient aggregates the load ledger per client and resolves
// display names against the supplied alias snapshot, so one batch of rows
// sees one consistent mapping.
func (e *Engine) ProductionByClient(ctx context.Context, w window.Window, snap alias.Snapshot) []models.ClientProductionRow {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	rows, err := e.store.LoadsByClient(qctx, w.Start, w.EndExclusive)
	if err != nil {
		e.warn("load_records", err)
		return []models.ClientProductionRow{}
	}

	for i := range rows {
		rows[i].Client = snap.Resolve(rows[i].ClientID)
		rows[i].TotalKg = round(rows[i].TotalKg, 1)
		rows[i].AvgWeightKg = round(safeDiv(rows[i].TotalKg, float64(rows[i].TotalLoads)), 2)
	}
	if rows == nil {
		rows = []models.ClientProductionRow{}
	}
	return rows
}

// ProductionByDay aggregates the load ledger per calendar day.
func (e *Engine) ProductionByDay(ctx context.Context, w window.Window) []models.DailyProductionRow {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	rows, err := e.store.LoadsByDay(qctx, w.Start, w.EndExclusive)
	if err != nil {
		e.warn("load_records", err)
		return []models.DailyProductionRow{}
	}
	if rows == nil {
		rows = []models.DailyProductionRow{}
	}
	return rows
}

// WaterChemicalsByDay merges the per-day water and chemical aggregates into
// one table, deriving the per-kilogram columns under the zero-denominator
// policy. Days present in only one source still produce a row.
func (e *Engine) WaterChemicalsByDay(ctx context.Context, w window.Window) []models.WaterChemicalsRow {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	waterRows, err := e.store.WaterByDay(qctx, w.Start, w.EndExclusive)
	if err != nil {
		e.warn("daily_records", err)
		waterRows = nil
	}

	qctx2, cancel2 := e.queryCtx(ctx)
	defer cancel2()

	chemByDay, err := e.store.ChemicalsByDay(qctx2, w.Start, w.EndExclusive)
	if err != nil {
		e.warn("chemical_records", err)
		chemByDay = nil
	}

	byDay := make(map[string]models.WaterChemicalsRow, len(waterRows))
	order := make([]string, 0, len(waterRows))
	for _, r := range waterRows {
		byDay[r.Day] = r
		order = append(order, r.Day)
	}
	for day, chem := range chemByDay {
		row, ok := byDay[day]
		if !ok {
			row = models.WaterChemicalsRow{Day: day}
			order = insertSorted(order, day)
		}
		row.ChemicalsML = chem
		byDay[day] = row
	}

	merged := make([]models.WaterChemicalsRow, 0, len(order))
	for _, day := range order {
		row := byDay[day]
		row.WaterPerKg = round(safeDiv(row.WaterLiters, row.Kg), 2)
		row.ChemicalPerKg = round(safeDiv(row.ChemicalsML, row.Kg), 3)
		merged = append(merged, row)
	}
	return merged
}

// EfficiencyByDay feeds the per-day efficiency chart.
func (e *Engine) EfficiencyByDay(ctx context.Context, w window.Window) []models.EfficiencyDailyRow {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	rows, err := e.store.MinutesByDay(qctx, w.Start, w.EndExclusive)
	if err != nil {
		e.warn("daily_records", err)
		return []models.EfficiencyDailyRow{}
	}
	for i := range rows {
		rows[i].EfficiencyPct = round(safeDiv(rows[i].ProductionMin, rows[i].ProductionMin+rows[i].DowntimeMin)*100, 1)
	}
	if rows == nil {
		rows = []models.EfficiencyDailyRow{}
	}
	return rows
}

// Clients lists every client id seen in the load ledger with its display
// name from the given snapshot.
func (e *Engine) Clients(ctx context.Context, snap alias.Snapshot) []models.ClientInfo {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	ids, err := e.store.DistinctClients(qctx)
	if err != nil {
		e.warn("load_records", err)
		return []models.ClientInfo{}
	}

	infos := make([]models.ClientInfo, 0, len(ids))
	for _, id := range ids {
		infos = append(infos, models.ClientInfo{
			ClientID: id,
			Display:  snap.Resolve(id),
			Aliased:  snap.Has(id),
		})
	}
	return infos
}

// insertSorted keeps the day ordering stable when a chemicals-only day is
// spliced into the water rows.
func insertSorted(days []string, day string) []string {
	for i, d := range days {
		if day < d {
			days = append(days, "")
			copy(days[i+1:], days[i:])
			days[i] = day
			return days
		}
	}
	return append(days, day)
}
