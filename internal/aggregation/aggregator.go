// Package aggregation folds native 1-minute candles into a higher timeframe and
// reports when an aggregated period has completed.
package aggregation

import (
	"fmt"
	"time"

	"signalGenerator/internal/domain"
)

// NativeInterval is the granularity candles arrive at.
const NativeInterval = time.Minute

// PeriodID identifies the period containing t for the given period length.
// Periods are aligned to the Unix epoch.
func PeriodID(t time.Time, period time.Duration) int64 {
	ms := t.UnixMilli()
	p := period.Milliseconds()
	id := ms / p
	if ms < 0 && ms%p != 0 {
		id--
	}
	return id
}

// PeriodStart returns the start time of period id.
func PeriodStart(id int64, period time.Duration) time.Time {
	return time.UnixMilli(id * period.Milliseconds()).UTC()
}

// Aggregator builds one higher-timeframe candle at a time.
type Aggregator struct {
	period    time.Duration
	current   domain.Candle
	currentID int64
	has       bool
}

// NewAggregator returns an aggregator for period, which must be a positive
// whole multiple of NativeInterval.
func NewAggregator(period time.Duration) (*Aggregator, error) {
	if period <= 0 || period%NativeInterval != 0 {
		return nil, fmt.Errorf("aggregation period %s must be a positive multiple of %s", period, NativeInterval)
	}
	return &Aggregator{period: period}, nil
}

// Period returns the aggregation period.
func (a *Aggregator) Period() time.Duration {
	return a.period
}

// Add folds c into the in-progress bucket. When c belongs to a later period
// than the bucket, the bucket is finalized and returned, and c starts a new one.
func (a *Aggregator) Add(c domain.Candle) *domain.Candle {
	id := PeriodID(c.Timestamp, a.period)
	if !a.has {
		a.start(c, id)
		return nil
	}
	if id == a.currentID {
		if c.High > a.current.High {
			a.current.High = c.High
		}
		if c.Low < a.current.Low {
			a.current.Low = c.Low
		}
		a.current.Close = c.Close
		a.current.Volume += c.Volume
		return nil
	}
	finalized := a.current
	a.start(c, id)
	return &finalized
}

func (a *Aggregator) start(c domain.Candle, id int64) {
	a.current = domain.Candle{
		Timestamp: PeriodStart(id, a.period),
		Open:      c.Open,
		High:      c.High,
		Low:       c.Low,
		Close:     c.Close,
		Volume:    c.Volume,
		Symbol:    c.Symbol,
	}
	a.currentID = id
	a.has = true
}

// Current returns the in-progress bucket and its period id.
func (a *Aggregator) Current() (domain.Candle, int64, bool) {
	return a.current, a.currentID, a.has
}

// IsLastMinute reports whether the native candle at t closes its period.
func (a *Aggregator) IsLastMinute(t time.Time) bool {
	return PeriodID(t, a.period) != PeriodID(t.Add(NativeInterval), a.period)
}

// Reset discards the in-progress bucket.
func (a *Aggregator) Reset() {
	a.current = domain.Candle{}
	a.currentID = 0
	a.has = false
}
