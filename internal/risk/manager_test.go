package risk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"signalGenerator/internal/domain"
	"signalGenerator/internal/ports"
)

func TestManager_ValidateEntry(t *testing.T) {
	m := NewManager(EntryLimits{MaxQuantity: 2, MaxRiskPoints: 30})

	tests := []struct {
		name    string
		sig     *domain.Signal
		wantErr bool
	}{
		{"valid long", &domain.Signal{Side: domain.Buy, Price: 100, StopLoss: 90, TakeProfit: 125, Quantity: 1}, false},
		{"valid short", &domain.Signal{Side: domain.Sell, Price: 100, StopLoss: 110, TakeProfit: 80, Quantity: 1}, false},
		{"no stop or target", &domain.Signal{Side: domain.Buy, Price: 100, Quantity: 1}, false},
		{"nil", nil, true},
		{"zero quantity", &domain.Signal{Side: domain.Buy, Price: 100, Quantity: 0}, true},
		{"too large", &domain.Signal{Side: domain.Buy, Price: 100, Quantity: 3}, true},
		{"long stop above entry", &domain.Signal{Side: domain.Buy, Price: 100, StopLoss: 101, Quantity: 1}, true},
		{"short target above entry", &domain.Signal{Side: domain.Sell, Price: 100, TakeProfit: 101, Quantity: 1}, true},
		{"risk too wide", &domain.Signal{Side: domain.Buy, Price: 100, StopLoss: 60, Quantity: 1}, true},
		{"unknown side", &domain.Signal{Side: "hold", Price: 100, Quantity: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.ValidateEntry(tt.sig)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ports.ErrInvalidRequest))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTighter(t *testing.T) {
	assert.True(t, Tighter(domain.SideLong, 10, 0, false))
	assert.True(t, Tighter(domain.SideLong, 101, 100, true))
	assert.False(t, Tighter(domain.SideLong, 100, 100, true))
	assert.False(t, Tighter(domain.SideLong, 99, 100, true))
	assert.True(t, Tighter(domain.SideShort, 99, 100, true))
	assert.False(t, Tighter(domain.SideShort, 101, 100, true))
}
