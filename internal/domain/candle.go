package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Candle represents a single closed OHLCV bar.
// Timestamp is the start of the bar.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Symbol    string
}

// Range returns high minus low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

type candleJSON struct {
	Symbol    string          `json:"symbol"`
	Timestamp json.RawMessage `json:"timestamp"`
	Open      float64         `json:"open"`
	High      float64         `json:"high"`
	Low       float64         `json:"low"`
	Close     float64         `json:"close"`
	Volume    float64         `json:"volume"`
}

// MarshalJSON writes the timestamp as RFC 3339.
func (c Candle) MarshalJSON() ([]byte, error) {
	ts, _ := json.Marshal(c.Timestamp.UTC().Format(time.RFC3339))
	return json.Marshal(candleJSON{
		Symbol: c.Symbol, Timestamp: ts,
		Open:   c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume,
	})
}

// UnmarshalJSON accepts the timestamp as an RFC 3339 string or as epoch
// seconds; values above 1e12 are taken as milliseconds.
func (c *Candle) UnmarshalJSON(b []byte) error {
	var raw candleJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return err
	}
	*c = Candle{
		Timestamp: ts, Symbol: raw.Symbol,
		Open:      raw.Open, High: raw.High, Low: raw.Low, Close: raw.Close, Volume: raw.Volume,
	}
	return nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, fmt.Errorf("candle timestamp missing")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("candle timestamp %q: %w", s, err)
		}
		return t.UTC(), nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return time.Time{}, fmt.Errorf("candle timestamp %s: %w", raw, err)
	}
	if f > 1e12 {
		return time.UnixMilli(int64(f)).UTC(), nil
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}
