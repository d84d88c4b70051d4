package utils

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalGenerator/internal/domain"
)

func TestCandlesCSVRoundTrip(t *testing.T) {
	t0 := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)
	candles := []domain.Candle{
		{Timestamp: t0, Symbol: "NQ", Open: 18000, High: 18010.25, Low: 17995.5, Close: 18005, Volume: 120},
		{Timestamp: t0.Add(time.Minute), Symbol: "NQ", Open: 18005, High: 18007, Low: 18001, Close: 18002.75, Volume: 80},
	}
	path := filepath.Join(t.TempDir(), "data", "nq.csv")

	require.NoError(t, WriteCandlesToCSV(candles, path))
	got, err := ReadCandlesFromCSV(path)
	require.NoError(t, err)
	assert.Equal(t, candles, got)
}

func TestWriteCandles_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCandles(&buf, []domain.Candle{
		{Timestamp: time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC), Symbol: "NQ", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 3},
	}))
	assert.Equal(t, "timestamp,symbol,open,high,low,close,volume\n2024-03-04T14:00:00Z,NQ,1,2,0.5,1.5,3\n", buf.String())
}

func TestReadCandles(t *testing.T) {
	t.Run("header is optional", func(t *testing.T) {
		got, err := ReadCandles(strings.NewReader("2024-03-04T09:00:00-05:00,NQ,1,2,0.5,1.5,3\n"))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC), got[0].Timestamp)
	})

	t.Run("bad number names the line", func(t *testing.T) {
		_, err := ReadCandles(strings.NewReader("timestamp,symbol,open,high,low,close,volume\n2024-03-04T14:00:00Z,NQ,1,x,0.5,1.5,3\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
		assert.Contains(t, err.Error(), "high")
	})

	t.Run("wrong field count", func(t *testing.T) {
		_, err := ReadCandles(strings.NewReader("2024-03-04T14:00:00Z,NQ,1\n"))
		assert.Error(t, err)
	})
}
