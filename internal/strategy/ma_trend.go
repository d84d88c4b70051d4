package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"signalGenerator/internal/domain"
	"signalGenerator/internal/ports"
	"signalGenerator/internal/strategy/indicators"
)

// MATrendName is the ACTIVE_STRATEGY value selecting MATrend.
const MATrendName = "ma_trend"

// MATrendConfig holds the indicator settings of the trend strategy.
type MATrendConfig struct {
	ShortTermMAPeriod int     // e.g., 20
	LongTermMAPeriod  int     // e.g., 50
	EMAPeriod         int     // e.g., 20
	RSIPeriod         int     // e.g., 14, also the ATR period
	RSIOverbought     float64 // e.g., 70.0
	RequireIV         bool
}

// MATrend enters long when price trades above both SMAs and the EMA in an
// up-trend that is not yet overbought. The stop sits one ATR plus the stop
// buffer below the candle low.
type MATrend struct {
	cooldown
	cfg    MATrendConfig
	params Params
	logger ports.Logger

	shortMA *indicators.MovingAverage
	longMA  *indicators.MovingAverage
	ema     *indicators.MovingAverage
	rsi     *indicators.RSI
	atr     *indicators.ATR

	ivMu sync.Mutex
	iv   *domain.IVSkew
}

// NewMATrend creates a new MATrend instance.
func NewMATrend(cfg MATrendConfig, params Params, logger ports.Logger) (*MATrend, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	if cfg.ShortTermMAPeriod <= 0 || cfg.LongTermMAPeriod <= 0 || cfg.EMAPeriod <= 0 || cfg.RSIPeriod <= 0 {
		return nil, fmt.Errorf("%w: strategy periods must be positive", ports.ErrConfigurationError)
	}
	if cfg.ShortTermMAPeriod >= cfg.LongTermMAPeriod {
		return nil, fmt.Errorf("%w: short term MA period must be less than long term MA period", ports.ErrConfigurationError)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrConfigurationError, err)
	}
	return &MATrend{
		cooldown: cooldown{period: params.Cooldown},
		cfg:      cfg,
		params:   params,
		logger:   logger,
		shortMA:  indicators.NewMovingAverage(indicators.SimpleMovingAverage, cfg.ShortTermMAPeriod),
		longMA:   indicators.NewMovingAverage(indicators.SimpleMovingAverage, cfg.LongTermMAPeriod),
		ema:      indicators.NewMovingAverage(indicators.ExponentialMovingAverage, cfg.EMAPeriod),
		rsi:      indicators.NewRSI(cfg.RSIPeriod, cfg.RSIOverbought, 100-cfg.RSIOverbought),
		atr:      indicators.NewATR(cfg.RSIPeriod),
	}, nil
}

// Name returns "ma_trend".
func (s *MATrend) Name() string { return MATrendName }

// RequiresIV implements ports.IVConsumer.
func (s *MATrend) RequiresIV() bool { return s.cfg.RequireIV }

// SetIVData implements ports.IVConsumer.
func (s *MATrend) SetIVData(iv *domain.IVSkew) {
	s.ivMu.Lock()
	s.iv = iv
	s.ivMu.Unlock()
}

// BreakevenParams implements ports.BreakevenProvider.
func (s *MATrend) BreakevenParams() (*domain.BreakevenStop, bool) {
	return s.params.BreakevenParams()
}

// RequiredDataPoints returns the minimum number of candles needed.
func (s *MATrend) RequiredDataPoints() int {
	n := 0
	for _, ind := range []indicators.Indicator{s.shortMA, s.longMA, s.ema, s.rsi, s.atr} {
		if r := ind.RequiredDataPoints(); r > n {
			n = r
		}
	}
	return n
}

// EvaluateSignal implements ports.Strategy.
func (s *MATrend) EvaluateSignal(ctx context.Context, candle, prev *domain.Candle, market domain.MarketContext) *domain.Signal {
	if candle == nil {
		return nil
	}
	history := market.History
	if required := s.RequiredDataPoints(); len(history) < required {
		s.logger.Debug(ctx, "Not enough candle data for strategy evaluation",
			map[string]interface{}{"available": len(history), "required": required})
		return nil
	}
	if s.active(candle.Timestamp) {
		return nil
	}

	values := make(map[string]float64, 5)
	for key, ind := range map[string]indicators.Indicator{
		"shortMA": s.shortMA, "longMA": s.longMA, "ema": s.ema, "rsi": s.rsi, "atr": s.atr,
	} {
		v, err := ind.Calculate(history)
		if err != nil {
			s.logger.Error(ctx, err, "Failed to calculate "+ind.Name())
			return nil
		}
		values[key] = v
	}

	price := candle.Close
	isTrendingUp := price > values["shortMA"] && price > values["longMA"] && values["shortMA"] > values["longMA"]
	isNotOverbought := !s.rsi.IsOverbought(values["rsi"])
	isAboveEMA := price > values["ema"]

	fields := map[string]interface{}{
		"currentPrice":    price,
		"shortMA":         values["shortMA"],
		"longMA":          values["longMA"],
		"ema":             values["ema"],
		"rsi":             values["rsi"],
		"atr":             values["atr"],
		"isTrendingUp":    isTrendingUp,
		"isNotOverbought": isNotOverbought,
		"isAboveEMA":      isAboveEMA,
	}
	if !(isTrendingUp && isNotOverbought && isAboveEMA) {
		s.logger.Debug(ctx, "Trade entry conditions not met", fields)
		return nil
	}

	stop := candle.Low - values["atr"] - s.params.StopBuffer
	risk := price - stop
	if risk <= 0 || risk > s.params.MaxRisk {
		s.logger.Info(ctx, "Risk filter rejected entry", map[string]interface{}{"risk": risk, "max": s.params.MaxRisk})
		return nil
	}

	s.start(candle.Timestamp)
	sig := &domain.Signal{Side: domain.Buy, Price: price}
	s.params.exits(sig, stop)
	for k, v := range values {
		sig.SetMeta(k, v)
	}
	sig.SetMeta("risk_points", risk)
	sig.SetMeta("candle_time", candle.Timestamp.Format(time.RFC3339))
	sig.SetMeta("entry_reason", "Price above SMA/EMA trend, RSI below overbought")

	s.ivMu.Lock()
	if s.iv != nil {
		sig.SetMeta("iv", s.iv.IV)
		sig.SetMeta("iv_skew", s.iv.Skew)
	}
	s.ivMu.Unlock()

	s.logger.Info(ctx, "Trade entry conditions met", fields)
	return sig
}
