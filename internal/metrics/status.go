package metrics

import (
	"context"
	"time"

	"washplant-monitor/internal/window"
)

// resolveStatusDay decides which calendar day the cumulative-status KPIs
// read from. When today has at least one status poll the literal today is
// used; otherwise the most recent date present in the source. An entirely
// empty source, or any query failure, falls back to literal today, which
// downstream reads as all-zero KPIs rather than an error.
//
// Only the status-sourced KPI family follows this resolution. The
// load-ledger "today" KPIs always use the literal calendar date; the two
// notions of today are intentionally separate.
func (e *Engine) resolveStatusDay(ctx context.Context) (time.Time, bool) {
	today := window.TodayAt(e.now())

	qctx, cancel := e.queryCtx(ctx)
	defer cancel()

	count, err := e.store.CountStatusInWindow(qctx, today.Start, today.EndExclusive)
	if err != nil {
		e.warn("status_records", err)
		return today.Start, false
	}
	if count > 0 {
		return today.Start, true
	}

	qctx2, cancel2 := e.queryCtx(ctx)
	defer cancel2()

	latest, ok, err := e.store.LatestStatusDate(qctx2)
	if err != nil {
		e.warn("status_records", err)
		return today.Start, false
	}
	if !ok {
		// Empty source: literal today yields zero KPIs.
		return today.Start, false
	}
	return latest, false
}
