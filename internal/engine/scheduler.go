package engine

import (
	"context"
	"time"

	"signalGenerator/internal/aggregation"
	"signalGenerator/internal/domain"
	"signalGenerator/internal/metrics"
	"signalGenerator/internal/ports"
)

// Skip reasons surfaced on the status endpoint and in metrics.
const (
	SkipDisabled     = "disabled"
	SkipOutOfSession = "outside_session"
	SkipOutOfOrder   = "out_of_order"
	SkipOtherSymbol  = "other_symbol"
	SkipInPosition   = "in_position"
	SkipNoGexLevels  = "no_gex_levels"
	SkipNoIVData     = "no_iv_data"
	SkipRiskRejected = "risk_rejected"
)

// OnCandle processes one closed native candle and returns the signals to publish.
func (e *Engine) OnCandle(ctx context.Context, c domain.Candle) []domain.Signal {
	e.stats.CandlesReceived++

	if e.cfg.CandleSymbol != "" && c.Symbol != "" && !e.matchesInstrument(c.Symbol) {
		e.skip(SkipOtherSymbol)
		return nil
	}
	if !e.lastCandle.IsZero() && !c.Timestamp.After(e.lastCandle) {
		e.logger.Warn(ctx, "Dropping candle that is not newer than the last one", map[string]interface{}{
			"candleTime": c.Timestamp,
			"lastCandle": e.lastCandle,
		})
		e.skip(SkipOutOfOrder)
		return nil
	}
	e.lastCandle = c.Timestamp

	e.CheckSession(ctx, c.Timestamp)
	if !e.enabled {
		e.skip(SkipDisabled)
		return nil
	}
	if !e.cfg.Session.Contains(c.Timestamp) {
		e.skip(SkipOutOfSession)
		return nil
	}
	e.stats.CandlesProcessed++
	metrics.RecordCandle("processed")

	var out []domain.Signal
	for _, o := range e.tracker.OnCandleClose() {
		e.logger.Info(ctx, "Pending order timed out, requesting cancel", map[string]interface{}{
			"orderId": o.OrderID,
			"candles": o.CandleCount,
		})
		out = append(out, e.cancelSignal(o, c.Timestamp))
	}

	if e.position != nil {
		for _, u := range e.trailing.OnCandle(c) {
			e.position.StopPrice = u.StopPrice
			e.logger.Info(ctx, "Time-based trailing rule moved stop", map[string]interface{}{
				"rule":        u.RuleIndex,
				"stop":        u.StopPrice,
				"barsInTrade": u.BarsInTrade,
				"mfe":         u.MFE,
			})
			out = append(out, e.trailSignal(u, c.Timestamp))
		}
	}

	comp := e.agg.OnCandle(c)
	if comp == nil {
		return e.finish(out)
	}
	e.pushHistory(comp.Candle)
	if e.position != nil {
		e.logger.Debug(ctx, "Period completed while in position, not evaluating", map[string]interface{}{
			"period": comp.Period,
			"path":   comp.Path,
		})
		e.skip(SkipInPosition)
		return e.finish(out)
	}
	if sig := e.evaluate(ctx, comp); sig != nil {
		out = append(out, *sig)
	}
	return e.finish(out)
}

func (e *Engine) finish(out []domain.Signal) []domain.Signal {
	for _, s := range out {
		e.stats.SignalsEmitted[string(s.Action)]++
		metrics.RecordSignal(string(s.Action))
	}
	return out
}

func (e *Engine) skip(reason string) {
	e.stats.Skips[reason]++
	metrics.RecordSkip(reason)
}

func (e *Engine) pushHistory(c domain.Candle) {
	e.history = append(e.history, c)
	if over := len(e.history) - e.cfg.HistorySize; over > 0 {
		e.history = append([]domain.Candle(nil), e.history[over:]...)
	}
}

// evaluate asks the strategy about a completed period.
func (e *Engine) evaluate(ctx context.Context, comp *aggregation.Completion) *domain.Signal {
	gex := e.levels.GexLevels()
	if gex == nil {
		e.logger.Warn(ctx, "No GEX levels available, skipping evaluation", map[string]interface{}{"period": comp.Period})
		e.skip(SkipNoGexLevels)
		return nil
	}

	var iv *domain.IVSkew
	if consumer, ok := e.strategy.(ports.IVConsumer); ok && consumer.RequiresIV() {
		iv = e.levels.IVSkew()
		if iv == nil {
			e.logger.Warn(ctx, "No IV data available, skipping evaluation", map[string]interface{}{"period": comp.Period})
			e.skip(SkipNoIVData)
			return nil
		}
		consumer.SetIVData(iv)
	}

	candle := comp.Candle
	var prev *domain.Candle
	if n := len(e.history); n >= 2 {
		p := e.history[n-2]
		prev = &p
	}
	market := domain.MarketContext{
		Gex:     gex,
		LT:      e.levels.LTLevels(),
		IV:      iv,
		History: append([]domain.Candle(nil), e.history...),
	}

	e.stats.Evaluations++
	e.stats.LastEvaluation = candle.Timestamp
	metrics.RecordEvaluation(e.cfg.StrategyID, string(comp.Path))
	e.logger.Debug(ctx, "Evaluating strategy", map[string]interface{}{
		"period":    comp.Period,
		"path":      comp.Path,
		"candle":    candle.Timestamp,
		"close":     candle.Close,
		"timeframe": e.cfg.EvalTimeframe.String(),
	})

	sig := e.strategy.EvaluateSignal(ctx, &candle, prev, market)
	if sig == nil {
		return nil
	}
	e.decorateEntry(sig, comp)

	if err := e.riskMgr.ValidateEntry(sig); err != nil {
		e.logger.Warn(ctx, "Entry signal rejected by risk checks", map[string]interface{}{"error": err.Error(), "price": sig.Price})
		e.skip(SkipRiskRejected)
		return nil
	}

	e.logger.Info(ctx, "Entry signal generated", map[string]interface{}{
		"id":         sig.ID,
		"side":       sig.Side,
		"price":      sig.Price,
		"stopLoss":   sig.StopLoss,
		"takeProfit": sig.TakeProfit,
	})
	return sig
}

func (e *Engine) decorateEntry(sig *domain.Signal, comp *aggregation.Completion) {
	sig.ID = e.newID()
	sig.WebhookType = domain.WebhookTypeTradeSignal
	sig.Action = domain.ActionPlaceLimit
	if sig.Symbol == "" {
		sig.Symbol = e.cfg.Symbol
	}
	if sig.Quantity == 0 {
		sig.Quantity = e.cfg.Quantity
	}
	sig.Strategy = e.cfg.StrategyID
	sig.Timestamp = comp.Candle.Timestamp.Add(e.cfg.EvalTimeframe)
	if bp, ok := e.strategy.(ports.BreakevenProvider); ok {
		if params, enabled := bp.BreakevenParams(); enabled {
			sig.Breakeven = params
		}
	}
	sig.SetMeta("period", comp.Period)
	sig.SetMeta("detection", string(comp.Path))
	sig.SetMeta("timeframe", e.cfg.EvalTimeframe.String())
	sig.SetMeta("candle_time", comp.Candle.Timestamp.Format(time.RFC3339))
}

func (e *Engine) cancelSignal(o domain.PendingOrder, at time.Time) domain.Signal {
	sig := domain.Signal{
		ID:          e.newID(),
		WebhookType: domain.WebhookTypeTradeSignal,
		Action:      domain.ActionCancelLimit,
		Side:        o.Side,
		Symbol:      o.Symbol,
		Price:       o.Price,
		Strategy:    e.cfg.StrategyID,
		OrderID:     o.OrderID,
		Timestamp:   at,
	}
	sig.SetMeta("reason", "order_timeout")
	sig.SetMeta("candles_elapsed", o.CandleCount)
	sig.SetMeta("timeout_candles", e.cfg.OrderTimeoutCandles)
	return sig
}
