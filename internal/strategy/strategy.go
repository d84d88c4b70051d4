// Package strategy holds the pluggable entry strategies run by the engine.
package strategy

import (
	"fmt"

	"signalGenerator/internal/ports"
)

// New builds the strategy selected by name.
func New(name string, params Params, trend MATrendConfig, logger ports.Logger) (ports.Strategy, error) {
	switch name {
	case GexRecoilName:
		s, err := NewGexRecoil(params, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case MATrendName:
		s, err := NewMATrend(trend, params, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ports.ErrConfigurationError, name)
	}
}
