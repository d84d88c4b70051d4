package domain

// GexLevels is the latest gamma-exposure snapshot for the traded index.
type GexLevels struct {
	Timestamp  string    `json:"timestamp"`
	QQQSpot    float64   `json:"qqq_spot"`
	NQSpot     float64   `json:"nq_spot"`
	Multiplier float64   `json:"multiplier"`
	TotalGex   float64   `json:"total_gex"`
	Regime     string    `json:"regime"`
	GammaFlip  float64   `json:"gamma_flip"`
	CallWall   float64   `json:"call_wall"`
	PutWall    float64   `json:"put_wall"`
	Resistance []float64 `json:"resistance"`
	Support    []float64 `json:"support"`
	FromCache  bool      `json:"from_cache"`
}

// SupportLevel returns the support at index i (0-based).
func (g *GexLevels) SupportLevel(i int) (float64, bool) {
	if i < 0 || i >= len(g.Support) {
		return 0, false
	}
	return g.Support[i], true
}

// LTLevels are the liquidity trigger levels L0..L6. Missing levels are nil.
type LTLevels struct {
	Timestamp  float64             `json:"timestamp"`
	CandleTime string              `json:"candle_time"`
	Levels     map[string]*float64 `json:"levels"`
}

// CountBelow counts levels strictly below price.
func (l *LTLevels) CountBelow(price float64) int {
	n := 0
	for _, v := range l.Levels {
		if v != nil && *v < price {
			n++
		}
	}
	return n
}

// CountAbove counts levels strictly above price.
func (l *LTLevels) CountAbove(price float64) int {
	n := 0
	for _, v := range l.Levels {
		if v != nil && *v > price {
			n++
		}
	}
	return n
}

// IVSkew is an implied-volatility skew reading.
type IVSkew struct {
	Timestamp string  `json:"timestamp"`
	IV        float64 `json:"iv"`
	Skew      float64 `json:"skew"`
	PutIV     float64 `json:"put_iv"`
	CallIV    float64 `json:"call_iv"`
}

// MarketContext is everything a strategy may look at besides the candle pair.
type MarketContext struct {
	Gex     *GexLevels
	LT      *LTLevels
	IV      *IVSkew
	History []Candle // evaluation-timeframe candles, oldest first, including the current one
}
