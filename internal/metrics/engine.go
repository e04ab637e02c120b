package metrics

import (
	"context"
	"math"
	"strconv"
	"time"

	"washplant-monitor/internal/config"
	"washplant-monitor/internal/db"

	"github.com/sirupsen/logrus"
)

// Engine computes the dashboard KPIs and report datasets from the plant's
// record sources. Every operation is request-scoped and synchronous, and no
// error escapes to the caller: a failing or timed-out source query degrades
// to zero values for the KPIs it feeds and is logged, so the worst outcome
// of a call is a partially-zero bundle.
type Engine struct {
	store    *db.Database
	log      *logrus.Entry
	timeout  time.Duration
	topLimit int
	now      func() time.Time
}

// New builds an engine over the record store.
func New(store *db.Database, cfg *config.Config) *Engine {
	return &Engine{
		store:    store,
		log:      logrus.WithField("component", "metrics"),
		timeout:  cfg.QueryTimeout,
		topLimit: cfg.TopAlarmsLimit,
		now:      time.Now,
	}
}

// queryCtx bounds a single source query. The storage layer enforces the
// timeout; an expired context reads as "no rows" upstream.
func (e *Engine) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, e.timeout)
}

// warn logs an absorbed source error.
func (e *Engine) warn(source string, err error) {
	e.log.WithField("source", source).WithError(err).Warn("query degraded to zero rows")
}

// safeDiv implements the engine-wide division policy: a zero denominator
// yields 0.0, never NaN or Inf, even when the numerator is nonzero.
func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0.0
	}
	return num / den
}

// round rounds to the given number of decimal places.
func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// Display rounding: kilograms and liters to whole units, weight-per-cycle
// and water-per-kg to 2 decimals, chemical-per-kg to 3, efficiency to 1.
func fmtWhole(v float64) string {
	return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
}

func fmtDec(v float64, places int) string {
	return strconv.FormatFloat(v, 'f', places, 64)
}
