package risk

import (
	"fmt"
	"math"

	"signalGenerator/internal/domain"
	"signalGenerator/internal/ports"
)

// EntryLimits bounds entry proposals before they are published.
type EntryLimits struct {
	MaxQuantity   float64 // 0 disables the check
	MaxRiskPoints float64 // distance entry->stop; 0 disables the check
}

// Manager sanity-checks entry signals produced by strategies.
type Manager struct {
	limits EntryLimits
}

// NewManager creates a risk manager with the given limits.
func NewManager(limits EntryLimits) *Manager {
	return &Manager{limits: limits}
}

// ValidateEntry rejects signals whose geometry or size is inconsistent.
func (m *Manager) ValidateEntry(sig *domain.Signal) error {
	if sig == nil {
		return fmt.Errorf("%w: nil signal", ports.ErrInvalidRequest)
	}
	if sig.Quantity <= 0 {
		return fmt.Errorf("%w: quantity %f must be positive", ports.ErrInvalidRequest, sig.Quantity)
	}
	if m.limits.MaxQuantity > 0 && sig.Quantity > m.limits.MaxQuantity {
		return fmt.Errorf("%w: quantity %f exceeds maximum %f", ports.ErrInvalidRequest, sig.Quantity, m.limits.MaxQuantity)
	}
	if sig.Price <= 0 {
		return fmt.Errorf("%w: price %f must be positive", ports.ErrInvalidRequest, sig.Price)
	}
	if sig.Side != domain.Buy && sig.Side != domain.Sell {
		return fmt.Errorf("%w: unknown side %q", ports.ErrInvalidRequest, sig.Side)
	}

	long := sig.Side == domain.Buy
	if sig.StopLoss > 0 {
		if (long && sig.StopLoss >= sig.Price) || (!long && sig.StopLoss <= sig.Price) {
			return fmt.Errorf("%w: stop %f on wrong side of entry %f", ports.ErrInvalidRequest, sig.StopLoss, sig.Price)
		}
		riskPts := math.Abs(sig.Price - sig.StopLoss)
		if m.limits.MaxRiskPoints > 0 && riskPts > m.limits.MaxRiskPoints {
			return fmt.Errorf("%w: risk %.2f points exceeds maximum %.2f", ports.ErrInvalidRequest, riskPts, m.limits.MaxRiskPoints)
		}
	}
	if sig.TakeProfit > 0 {
		if (long && sig.TakeProfit <= sig.Price) || (!long && sig.TakeProfit >= sig.Price) {
			return fmt.Errorf("%w: target %f on wrong side of entry %f", ports.ErrInvalidRequest, sig.TakeProfit, sig.Price)
		}
	}
	return nil
}
