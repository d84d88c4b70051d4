package aggregation

import (
	"time"

	"signalGenerator/internal/domain"
)

// DetectionPath names which path noticed a period completing.
type DetectionPath string

const (
	DetectNative DetectionPath = "native"
	DetectEarly  DetectionPath = "early"
	DetectLate   DetectionPath = "late"
)

// Completion is a period that is ready to be evaluated.
type Completion struct {
	Candle domain.Candle
	Period int64
	Path   DetectionPath
}

// State tracks completion for one strategy/timeframe key and guarantees each
// period is reported at most once.
type State struct {
	period        time.Duration
	agg           *Aggregator
	lastEvaluated int64
	evaluated     bool
	// resync marks that the bucket restarted mid-stream and the period of
	// the next candle may be missing minutes.
	resync bool
}

// NewState returns completion state for period. A period equal to
// NativeInterval reports every candle.
func NewState(period time.Duration) (*State, error) {
	s := &State{period: period}
	if period == NativeInterval {
		return s, nil
	}
	agg, err := NewAggregator(period)
	if err != nil {
		return nil, err
	}
	s.agg = agg
	return s, nil
}

// Native reports whether the timeframe equals the native candle interval.
func (s *State) Native() bool {
	return s.agg == nil
}

// OnCandle folds c and returns the completion it causes, if any.
func (s *State) OnCandle(c domain.Candle) *Completion {
	if s.Native() {
		id := PeriodID(c.Timestamp, NativeInterval)
		if !s.claim(id) {
			return nil
		}
		return &Completion{Candle: c, Period: id, Path: DetectNative}
	}

	arriving := PeriodID(c.Timestamp, s.period)
	if s.resync {
		s.resync = false
		// A period joined after its first minute is never evaluated.
		if c.Timestamp.UnixMilli() != arriving*s.period.Milliseconds() {
			s.claim(arriving)
		}
	}
	if finalized := s.agg.Add(c); finalized != nil {
		id := PeriodID(finalized.Timestamp, s.period)
		// A bucket left over from before a gap is not evaluated late.
		if id == arriving-1 && s.claim(id) {
			return &Completion{Candle: *finalized, Period: id, Path: DetectLate}
		}
	}

	if s.agg.IsLastMinute(c.Timestamp) {
		cur, id, ok := s.agg.Current()
		if ok && s.claim(id) {
			return &Completion{Candle: cur, Period: id, Path: DetectEarly}
		}
	}
	return nil
}

func (s *State) claim(id int64) bool {
	if s.evaluated && id <= s.lastEvaluated {
		return false
	}
	s.lastEvaluated = id
	s.evaluated = true
	return true
}

// LastEvaluatedPeriod returns the last claimed period id.
func (s *State) LastEvaluatedPeriod() (int64, bool) {
	return s.lastEvaluated, s.evaluated
}

// Resync drops the open bucket after candles were not folded, keeping the
// evaluation guard. The period of the next candle is skipped unless that
// candle opens it.
func (s *State) Resync() {
	if s.agg == nil {
		return
	}
	s.agg.Reset()
	s.resync = true
}

// Reset clears the bucket and the evaluation guard.
func (s *State) Reset() {
	s.Resync()
	s.lastEvaluated = 0
	s.evaluated = false
}
