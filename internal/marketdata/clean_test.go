package marketdata

import (
	"testing"
	"time"

	"cryptoInsight/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	day := func(d int) int64 {
		return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC).Unix()
	}
	row := func(ts int64, close string) ports.RawBar {
		return ports.RawBar{Time: ts, Open: "10", High: "12", Low: "9", Close: close, Volume: "5"}
	}

	rows := []ports.RawBar{
		row(day(3), "11"),
		row(day(1), "10"),
		row(day(2), ""),
		row(day(4), "abc"),
		row(day(5), "NaN"),
		{Time: day(6), Open: "10", High: "12", Low: "9", Close: "11", Volume: ""},
		row(day(1), "10.5"),
		row(day(7), " 12.25 "),
	}

	bars := Clean(rows)
	require.Len(t, bars, 3)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 10.5, bars[0].Close, "the later row for a duplicated day wins")
	assert.Equal(t, 11.0, bars[1].Close)
	assert.Equal(t, 12.25, bars[2].Close)
	assert.Equal(t, 5.0, bars[2].Volume)
}

func TestClean_IntradayTimestampsTruncateToDay(t *testing.T) {
	ts := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC).Unix()
	bars := Clean([]ports.RawBar{{Time: ts, Open: "1", High: "1", Low: "1", Close: "1", Volume: "0"}})
	require.Len(t, bars, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), bars[0].Date)
}

func TestClean_Empty(t *testing.T) {
	assert.Empty(t, Clean(nil))
}

func TestPairs(t *testing.T) {
	assert.Equal(t, "XBTUSD", KrakenPair("btc"))
	assert.Equal(t, "XBTUSD", KrakenPair("XBT"))
	assert.Equal(t, "ETHUSD", KrakenPair("ETH"))
	assert.Equal(t, "DOGEUSD", KrakenPair("doge"))
	assert.Equal(t, "BTCUSDT", BinancePair("XBT"))
	assert.Equal(t, "SOLUSDT", BinancePair("sol"))
	assert.True(t, IsOffered("xrp"))
	assert.False(t, IsOffered("DOGE"))
}
