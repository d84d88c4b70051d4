package engine

import (
	"context"
	"time"

	"signalGenerator/internal/domain"
	"signalGenerator/internal/risk"
)

func (e *Engine) tighterStop(price float64) bool {
	if e.position == nil {
		return false
	}
	cur := e.position.StopPrice
	return risk.Tighter(e.position.Side, price, cur, cur > 0)
}

// Tick runs the clock-driven protective checks for the open position.
func (e *Engine) Tick(ctx context.Context, now time.Time) []domain.Signal {
	if e.position == nil || e.earlyExit == nil {
		return nil
	}
	req := e.earlyExit.Tick(now, e.gammaFlip)
	if req == nil {
		return nil
	}
	if !e.tighterStop(req.StopPrice) {
		e.logger.Info(ctx, "Early-exit breakeven not tighter than current stop, skipping", map[string]interface{}{
			"breakeven":   req.StopPrice,
			"currentStop": e.position.StopPrice,
		})
		return nil
	}

	prevStop := e.position.StopPrice
	e.position.StopPrice = req.StopPrice
	e.trailing.TightenTo(req.StopPrice)

	e.logger.Warn(ctx, "Reference level drifted against position, moving stop to breakeven", map[string]interface{}{
		"entryLevel":         req.EntryLevel,
		"currentLevel":       req.CurrentLevel,
		"consecutiveAdverse": req.ConsecutiveAdverse,
		"stop":               req.StopPrice,
	})

	sig := e.modifyStopSignal(req.StopPrice, now)
	sig.SetMeta("reason", "early_exit_breakeven")
	sig.SetMeta("entry_level", req.EntryLevel)
	sig.SetMeta("current_level", req.CurrentLevel)
	sig.SetMeta("consecutive_adverse", req.ConsecutiveAdverse)
	sig.SetMeta("check_period", req.Period)
	sig.SetMeta("previous_stop", prevStop)
	return e.finish([]domain.Signal{sig})
}

func (e *Engine) trailSignal(u risk.StopUpdate, at time.Time) domain.Signal {
	sig := e.modifyStopSignal(u.StopPrice, at)
	sig.SetMeta("reason", "time_based_trailing")
	sig.SetMeta("rule_index", u.RuleIndex)
	sig.SetMeta("rule_action", string(u.Rule.Action))
	sig.SetMeta("bars_in_trade", u.BarsInTrade)
	sig.SetMeta("mfe", u.MFE)
	sig.SetMeta("peak_price", u.PeakPrice)
	if u.HadStop {
		sig.SetMeta("previous_stop", u.PreviousStop)
	}
	return sig
}

func (e *Engine) modifyStopSignal(stop float64, at time.Time) domain.Signal {
	pos := e.position
	sig := domain.Signal{
		ID:          e.newID(),
		WebhookType: domain.WebhookTypeTradeSignal,
		Action:      domain.ActionModifyStop,
		Side:        pos.Side.OrderSide(),
		Symbol:      pos.Symbol,
		Quantity:    pos.Quantity,
		Price:       stop,
		StopLoss:    stop,
		Strategy:    e.cfg.StrategyID,
		StopOrderID: pos.StopOrderID,
		Timestamp:   at,
	}
	sig.SetMeta("entry_price", pos.EntryPrice)
	if pos.OrderStrategyID != "" {
		sig.SetMeta("order_strategy_id", pos.OrderStrategyID)
	}
	return sig
}
