package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandle_UnmarshalJSON(t *testing.T) {
	want := time.Date(2024, 3, 4, 14, 15, 0, 0, time.UTC)
	tests := []struct {
		name string
		ts   string
	}{
		{"rfc3339", `"2024-03-04T09:15:00-05:00"`},
		{"epoch seconds", `1709561700`},
		{"epoch milliseconds", `1709561700000`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Candle
			require.NoError(t, json.Unmarshal([]byte(`{"symbol":"NQ","timestamp":`+tt.ts+`,"open":1,"high":3,"low":0.5,"close":2,"volume":10}`), &c))
			assert.Equal(t, want, c.Timestamp)
			assert.Equal(t, "NQ", c.Symbol)
			assert.Equal(t, 2.5, c.Range())
		})
	}

	var c Candle
	assert.Error(t, json.Unmarshal([]byte(`{"symbol":"NQ","close":2}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"timestamp":"yesterday"}`), &c))
}

func TestCandle_MarshalJSON(t *testing.T) {
	c := Candle{Timestamp: time.Date(2024, 3, 4, 14, 15, 0, 0, time.UTC), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 3, Symbol: "NQ"}
	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"NQ","timestamp":"2024-03-04T14:15:00Z","open":1,"high":2,"low":0.5,"close":1.5,"volume":3}`, string(b))

	var back Candle
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, c, back)
}
