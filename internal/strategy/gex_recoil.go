package strategy

import (
	"context"
	"fmt"
	"time"

	"signalGenerator/internal/domain"
	"signalGenerator/internal/ports"
)

// GexRecoilName is the ACTIVE_STRATEGY value selecting GexRecoil.
const GexRecoilName = "gex_recoil"

// GexRecoil fades a close below a GEX support level: it goes long when the
// close crosses below the put wall or one of the first three supports.
type GexRecoil struct {
	cooldown
	params Params
	logger ports.Logger
}

// NewGexRecoil validates params and builds the strategy.
func NewGexRecoil(params Params, logger ports.Logger) (*GexRecoil, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrConfigurationError, err)
	}
	return &GexRecoil{cooldown: cooldown{period: params.Cooldown}, params: params, logger: logger}, nil
}

// Name returns "gex_recoil".
func (s *GexRecoil) Name() string { return GexRecoilName }

// BreakevenParams implements ports.BreakevenProvider.
func (s *GexRecoil) BreakevenParams() (*domain.BreakevenStop, bool) {
	return s.params.BreakevenParams()
}

type namedLevel struct {
	name  string
	value float64
}

func candidateLevels(g *domain.GexLevels) []namedLevel {
	levels := make([]namedLevel, 0, 4)
	if g.PutWall != 0 {
		levels = append(levels, namedLevel{"put_wall", g.PutWall})
	}
	for i := 0; i < 3; i++ {
		if v, ok := g.SupportLevel(i); ok {
			levels = append(levels, namedLevel{fmt.Sprintf("support_%d", i+1), v})
		}
	}
	return levels
}

// EvaluateSignal implements ports.Strategy.
func (s *GexRecoil) EvaluateSignal(ctx context.Context, candle, prev *domain.Candle, market domain.MarketContext) *domain.Signal {
	if candle == nil || prev == nil || market.Gex == nil {
		return nil
	}
	if s.active(candle.Timestamp) {
		s.logger.Debug(ctx, "Signal cooldown active", map[string]interface{}{
			"candleTime": candle.Timestamp,
			"lastSignal": s.LastSignalTime(),
		})
		return nil
	}

	for _, lvl := range candidateLevels(market.Gex) {
		if !(prev.Close >= lvl.value && candle.Close < lvl.value) {
			continue
		}
		fields := map[string]interface{}{"level": lvl.name, "value": lvl.value, "close": candle.Close}
		s.logger.Info(ctx, "Price crossed below GEX level", fields)

		ltBelow := 0
		if s.params.UseLiquidityFilter && market.LT != nil {
			ltBelow = market.LT.CountBelow(lvl.value)
			if ltBelow > s.params.MaxLTLevelsBelow {
				s.logger.Info(ctx, "Liquidity filter rejected entry", map[string]interface{}{
					"level": lvl.name, "ltBelow": ltBelow, "max": s.params.MaxLTLevelsBelow,
				})
				continue
			}
		}

		stop := candle.Low - s.params.StopBuffer
		risk := candle.Close - stop
		if risk <= 0 || risk > s.params.MaxRisk {
			s.logger.Info(ctx, "Risk filter rejected entry", map[string]interface{}{
				"level": lvl.name, "risk": risk, "max": s.params.MaxRisk,
			})
			continue
		}

		s.start(candle.Timestamp)
		sig := &domain.Signal{Side: domain.Buy, Price: candle.Close}
		s.params.exits(sig, stop)
		sig.SetMeta("gex_level", lvl.value)
		sig.SetMeta("gex_level_type", lvl.name)
		sig.SetMeta("lt_levels_below", ltBelow)
		sig.SetMeta("risk_points", risk)
		sig.SetMeta("candle_time", candle.Timestamp.Format(time.RFC3339))
		sig.SetMeta("entry_reason", fmt.Sprintf("Price crossed below %s at %.2f", lvl.name, lvl.value))

		s.logger.Info(ctx, "Entry signal generated", map[string]interface{}{
			"side": sig.Side, "price": sig.Price, "stopLoss": sig.StopLoss, "takeProfit": sig.TakeProfit,
		})
		return sig
	}
	return nil
}
