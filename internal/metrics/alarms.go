package metrics

import (
	"context"

	"washplant-monitor/internal/models"
	"washplant-monitor/internal/window"
)

// The alarm source answers three distinct question shapes, and the KPIs that
// consume them depend on the differences being preserved:
//
//   - active-today counts alarms that started today and have not cleared;
//   - period counts every alarm that started in the window, cleared or not;
//   - top-N counts only cleared occurrences, requiring both the start and
//     the clear time in range. The today variant compares strictly against
//     midnight (>) while the period variant uses the half-open window (>=).

// ActiveAlarmsToday counts alarms that started today and are still active.
func (e *Engine) ActiveAlarmsToday(ctx context.Context) int {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	today := window.TodayAt(e.now())
	count, err := e.store.ActiveAlarmCount(qctx, today.Start, today.EndExclusive)
	if err != nil {
		e.warn("alarm_history", err)
		return 0
	}
	return count
}

// AlarmsInPeriod counts every alarm that started inside the window.
func (e *Engine) AlarmsInPeriod(ctx context.Context, w window.Window) int {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	count, err := e.store.AlarmCount(qctx, w.Start, w.EndExclusive)
	if err != nil {
		e.warn("alarm_history", err)
		return 0
	}
	return count
}

// TopAlarmsToday ranks today's cleared (tag, message) groups by occurrence.
func (e *Engine) TopAlarmsToday(ctx context.Context) []models.TopAlarmRow {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	midnight := window.TodayAt(e.now()).Start
	rows, err := e.store.TopAlarmsStrict(qctx, midnight, e.topLimit)
	if err != nil {
		e.warn("alarm_history", err)
		return []models.TopAlarmRow{}
	}
	if rows == nil {
		rows = []models.TopAlarmRow{}
	}
	return rows
}

// TopAlarmsPeriod ranks the window's cleared (tag, message) groups.
func (e *Engine) TopAlarmsPeriod(ctx context.Context, w window.Window) []models.TopAlarmRow {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	rows, err := e.store.TopAlarmsRange(qctx, w.Start, w.EndExclusive, e.topLimit)
	if err != nil {
		e.warn("alarm_history", err)
		return []models.TopAlarmRow{}
	}
	if rows == nil {
		rows = []models.TopAlarmRow{}
	}
	return rows
}

// AlarmsByDay counts alarm starts per day for the report dataset.
func (e *Engine) AlarmsByDay(ctx context.Context, w window.Window) []models.AlarmsDailyRow {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	rows, err := e.store.AlarmsByDay(qctx, w.Start, w.EndExclusive)
	if err != nil {
		e.warn("alarm_history", err)
		return []models.AlarmsDailyRow{}
	}
	if rows == nil {
		rows = []models.AlarmsDailyRow{}
	}
	return rows
}

// AlarmSeverity counts the window's alarms per priority level.
func (e *Engine) AlarmSeverity(ctx context.Context, w window.Window) []models.AlarmSeverityRow {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	rows, err := e.store.AlarmSeverityCounts(qctx, w.Start, w.EndExclusive)
	if err != nil {
		e.warn("alarm_history", err)
		return []models.AlarmSeverityRow{}
	}
	if rows == nil {
		rows = []models.AlarmSeverityRow{}
	}
	return rows
}

// ActiveAlarmList returns the currently active alarms, newest first.
func (e *Engine) ActiveAlarmList(ctx context.Context, limit int) []models.AlarmRecord {
	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	rows, err := e.store.ListActiveAlarms(qctx, limit)
	if err != nil {
		e.warn("alarm_history", err)
		return []models.AlarmRecord{}
	}
	if rows == nil {
		rows = []models.AlarmRecord{}
	}
	return rows
}
