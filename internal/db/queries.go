package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"washplant-monitor/internal/models"
)

// All window predicates are half-open: ts >= start AND ts < end. Bounds are
// always bound parameters, never interpolated into the query text.

// CountStatusInWindow returns how many cumulative status polls fall in the window.
func (db *Database) CountStatusInWindow(ctx context.Context, start, end time.Time) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM status_records WHERE ts >= ? AND ts < ?`,
		start, end,
	).Scan(&count)
	return count, err
}

// LatestStatusDate returns the most recent calendar date present in the
// status source. ok is false when the source is empty.
func (db *Database) LatestStatusDate(ctx context.Context) (time.Time, bool, error) {
	var day sql.NullString
	err := db.conn.QueryRowContext(ctx, `SELECT MAX(date(ts)) FROM status_records`).Scan(&day)
	if err != nil {
		return time.Time{}, false, err
	}
	if !day.Valid {
		return time.Time{}, false, nil
	}
	t, err := time.ParseInLocation("2006-01-02", day.String, time.Local)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// LastStatusInWindow returns the final status poll of the window. The
// cumulative counters reset at day boundaries, so the last row of a day is
// the day's total; summing would double count. ok is false when no row exists.
func (db *Database) LastStatusInWindow(ctx context.Context, start, end time.Time) (models.StatusRecord, bool, error) {
	var r models.StatusRecord
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, ts, water_m3, cycles, kg_washed
		FROM status_records
		WHERE ts >= ? AND ts < ?
		ORDER BY ts DESC
		LIMIT 1
	`, start, end).Scan(&r.ID, &r.Timestamp, &r.WaterM3, &r.Cycles, &r.KgWashed)
	if err == sql.ErrNoRows {
		return models.StatusRecord{}, false, nil
	}
	if err != nil {
		return models.StatusRecord{}, false, err
	}
	return r, true, nil
}

// LoadProductionTotals sums the load ledger over the window. Zero-kg rows are
// excluded from both the sum and the count, matching the source mirror.
func (db *Database) LoadProductionTotals(ctx context.Context, start, end time.Time) (kg float64, loads int, err error) {
	err = db.conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(kg), 0), COUNT(*)
		FROM load_records
		WHERE ts >= ? AND ts < ? AND kg > 0
	`, start, end).Scan(&kg, &loads)
	return kg, loads, err
}

// LoadWaterTotals sums water and kilograms for loads that recorded both.
func (db *Database) LoadWaterTotals(ctx context.Context, start, end time.Time) (waterLiters, kg float64, err error) {
	err = db.conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(water_m3), 0) * 1000, COALESCE(SUM(kg), 0)
		FROM load_records
		WHERE ts >= ? AND ts < ? AND kg > 0 AND water_m3 > 0
	`, start, end).Scan(&waterLiters, &kg)
	return waterLiters, kg, err
}

// LoadsByClient aggregates the load ledger per client, heaviest first.
func (db *Database) LoadsByClient(ctx context.Context, start, end time.Time) ([]models.ClientProductionRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT client_id, COUNT(*), COALESCE(SUM(kg), 0)
		FROM load_records
		WHERE ts >= ? AND ts < ?
		GROUP BY client_id
		ORDER BY SUM(kg) DESC
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.ClientProductionRow
	for rows.Next() {
		var r models.ClientProductionRow
		if err := rows.Scan(&r.ClientID, &r.TotalLoads, &r.TotalKg); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// LoadsByDay aggregates the load ledger per calendar day.
func (db *Database) LoadsByDay(ctx context.Context, start, end time.Time) ([]models.DailyProductionRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT date(ts), COUNT(*), COALESCE(SUM(kg), 0)
		FROM load_records
		WHERE ts >= ? AND ts < ?
		GROUP BY date(ts)
		ORDER BY date(ts)
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.DailyProductionRow
	for rows.Next() {
		var r models.DailyProductionRow
		if err := rows.Scan(&r.Day, &r.Loads, &r.Kg); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// DistinctClients lists every client id seen in the load ledger.
func (db *Database) DistinctClients(ctx context.Context) ([]int64, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT client_id FROM load_records ORDER BY client_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DailyTotals sums the consolidated daily source over the window. A positive
// clientID narrows to that client's rows.
func (db *Database) DailyTotals(ctx context.Context, start, end time.Time, clientID int64) (kg float64, rows int, waterLiters float64, err error) {
	query := `
		SELECT COALESCE(SUM(kg), 0), COUNT(*), COALESCE(SUM(water_m3), 0) * 1000
		FROM daily_records
		WHERE ts >= ? AND ts < ? AND kg > 0
	`
	args := []interface{}{start, end}
	if clientID > 0 {
		query += ` AND client_id = ?`
		args = append(args, clientID)
	}

	err = db.conn.QueryRowContext(ctx, query, args...).Scan(&kg, &rows, &waterLiters)
	return kg, rows, waterLiters, err
}

// DailyMinuteSums sums production and downtime minutes over the window.
// Callers derive efficiency from these sums; averaging per-day ratios gives a
// different (wrong) number when days carry different weights. Rows with zero
// production minutes still contribute their downtime to the denominator.
func (db *Database) DailyMinuteSums(ctx context.Context, start, end time.Time, clientID int64) (productionMin, downtimeMin float64, err error) {
	query := `
		SELECT COALESCE(SUM(production_min), 0), COALESCE(SUM(downtime_min), 0)
		FROM daily_records
		WHERE ts >= ? AND ts < ?
	`
	args := []interface{}{start, end}
	if clientID > 0 {
		query += ` AND client_id = ?`
		args = append(args, clientID)
	}

	err = db.conn.QueryRowContext(ctx, query, args...).Scan(&productionMin, &downtimeMin)
	return productionMin, downtimeMin, err
}

// WaterByDay returns per-day kg, consolidation row count and water liters
// from the daily source.
func (db *Database) WaterByDay(ctx context.Context, start, end time.Time) ([]models.WaterChemicalsRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT date(ts), COALESCE(SUM(kg), 0), COUNT(*), COALESCE(SUM(water_m3), 0) * 1000
		FROM daily_records
		WHERE ts >= ? AND ts < ?
		GROUP BY date(ts)
		ORDER BY date(ts)
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.WaterChemicalsRow
	for rows.Next() {
		var r models.WaterChemicalsRow
		if err := rows.Scan(&r.Day, &r.Kg, &r.Cycles, &r.WaterLiters); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// MinutesByDay returns per-day production/downtime minute sums.
func (db *Database) MinutesByDay(ctx context.Context, start, end time.Time) ([]models.EfficiencyDailyRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT date(ts), COALESCE(SUM(production_min), 0), COALESCE(SUM(downtime_min), 0)
		FROM daily_records
		WHERE ts >= ? AND ts < ?
		GROUP BY date(ts)
		ORDER BY date(ts)
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.EfficiencyDailyRow
	for rows.Next() {
		var r models.EfficiencyDailyRow
		if err := rows.Scan(&r.Day, &r.ProductionMin, &r.DowntimeMin); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ChemicalTotal sums all nine dosing quantities across the window.
func (db *Database) ChemicalTotal(ctx context.Context, start, end time.Time) (float64, error) {
	var total float64
	err := db.conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(q1 + q2 + q3 + q4 + q5 + q6 + q7 + q8 + q9), 0)
		FROM chemical_records
		WHERE ts >= ? AND ts < ?
	`, start, end).Scan(&total)
	return total, err
}

// ChemicalsByDay returns per-day dosing totals.
func (db *Database) ChemicalsByDay(ctx context.Context, start, end time.Time) (map[string]float64, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT date(ts), COALESCE(SUM(q1 + q2 + q3 + q4 + q5 + q6 + q7 + q8 + q9), 0)
		FROM chemical_records
		WHERE ts >= ? AND ts < ?
		GROUP BY date(ts)
		ORDER BY date(ts)
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make(map[string]float64)
	for rows.Next() {
		var day string
		var total float64
		if err := rows.Scan(&day, &total); err != nil {
			return nil, err
		}
		results[day] = total
	}
	return results, rows.Err()
}

// ActiveAlarmCount counts alarms that started in the window and have not
// cleared.
func (db *Database) ActiveAlarmCount(ctx context.Context, start, end time.Time) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alarm_history
		WHERE start_time >= ? AND start_time < ? AND clear_time IS NULL
	`, start, end).Scan(&count)
	return count, err
}

// AlarmCount counts every alarm that started in the window, cleared or not.
func (db *Database) AlarmCount(ctx context.Context, start, end time.Time) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alarm_history
		WHERE start_time >= ? AND start_time < ?
	`, start, end).Scan(&count)
	return count, err
}

// TopAlarmsStrict groups cleared alarms whose start AND clear times are both
// strictly after the given midnight. The strict > (rather than >=) matches
// the upstream system's day-boundary behavior for the today variant and must
// not be normalized to the range form below.
func (db *Database) TopAlarmsStrict(ctx context.Context, dayStart time.Time, limit int) ([]models.TopAlarmRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT tag, message, COUNT(*), MAX(start_time)
		FROM alarm_history
		WHERE start_time > ? AND clear_time > ?
		GROUP BY tag, message
		ORDER BY COUNT(*) DESC
		LIMIT ?
	`, dayStart, dayStart, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTopAlarms(rows)
}

// TopAlarmsRange groups cleared alarms whose start AND clear times both fall
// inside [start, end). Alarms that merely started in the window do not count.
func (db *Database) TopAlarmsRange(ctx context.Context, start, end time.Time, limit int) ([]models.TopAlarmRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT tag, message, COUNT(*), MAX(start_time)
		FROM alarm_history
		WHERE start_time >= ? AND start_time < ?
		  AND clear_time >= ? AND clear_time < ?
		GROUP BY tag, message
		ORDER BY COUNT(*) DESC
		LIMIT ?
	`, start, end, start, end, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTopAlarms(rows)
}

// Expression columns like MAX(start_time) come back from the driver as text,
// not time.Time, formatted the way the driver stored the value.
var storedTimeFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseStoredTime(s string) (time.Time, error) {
	for _, format := range storedTimeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized stored timestamp: %s", s)
}

func scanTopAlarms(rows *sql.Rows) ([]models.TopAlarmRow, error) {
	var results []models.TopAlarmRow
	for rows.Next() {
		var r models.TopAlarmRow
		var last sql.NullString
		if err := rows.Scan(&r.Tag, &r.Message, &r.Count, &last); err != nil {
			return nil, err
		}
		if last.Valid {
			t, err := parseStoredTime(last.String)
			if err != nil {
				return nil, err
			}
			r.LastSeen = t
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// AlarmsByDay counts alarm starts per calendar day.
func (db *Database) AlarmsByDay(ctx context.Context, start, end time.Time) ([]models.AlarmsDailyRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT date(start_time), COUNT(*)
		FROM alarm_history
		WHERE start_time >= ? AND start_time < ?
		GROUP BY date(start_time)
		ORDER BY date(start_time)
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.AlarmsDailyRow
	for rows.Next() {
		var r models.AlarmsDailyRow
		if err := rows.Scan(&r.Day, &r.Alarms); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// AlarmSeverityCounts counts window alarms per priority level.
func (db *Database) AlarmSeverityCounts(ctx context.Context, start, end time.Time) ([]models.AlarmSeverityRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT priority, COUNT(*)
		FROM alarm_history
		WHERE start_time >= ? AND start_time < ?
		GROUP BY priority
		ORDER BY priority
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.AlarmSeverityRow
	for rows.Next() {
		var r models.AlarmSeverityRow
		if err := rows.Scan(&r.Priority, &r.Count); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListActiveAlarms returns uncleared alarms, most recent first.
func (db *Database) ListActiveAlarms(ctx context.Context, limit int) ([]models.AlarmRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, start_time, clear_time, tag, message, priority
		FROM alarm_history
		WHERE clear_time IS NULL
		ORDER BY start_time DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.AlarmRecord
	for rows.Next() {
		var r models.AlarmRecord
		var clear sql.NullTime
		if err := rows.Scan(&r.ID, &r.StartTime, &clear, &r.Tag, &r.Message, &r.Priority); err != nil {
			return nil, err
		}
		if clear.Valid {
			t := clear.Time
			r.ClearTime = &t
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
