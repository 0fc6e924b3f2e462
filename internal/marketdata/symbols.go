package marketdata

import "strings"

// Coins offered by the dashboard.
var Coins = []string{"BTC", "ETH", "SOL", "XRP"}

// Ranges are the selectable visible-day counts.
var Ranges = []int{30, 60, 90, 180}

// DefaultRange is the range selected when none is given.
const DefaultRange = 180

var krakenPairs = map[string]string{
	"BTC": "XBTUSD",
	"XBT": "XBTUSD",
	"ETH": "ETHUSD",
	"SOL": "SOLUSD",
	"XRP": "XRPUSD",
}

// KrakenPair maps a dashboard symbol to a Kraken trading pair.
// Unknown symbols use the <SYMBOL>USD convention.
func KrakenPair(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if pair, ok := krakenPairs[s]; ok {
		return pair
	}
	return s + "USD"
}

// BinancePair maps a dashboard symbol to a Binance spot pair quoted in USDT.
func BinancePair(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "XBT" {
		s = "BTC"
	}
	return s + "USDT"
}

// IsOffered reports whether coin is one of the dashboard coins.
func IsOffered(coin string) bool {
	c := strings.ToUpper(coin)
	for _, known := range Coins {
		if known == c {
			return true
		}
	}
	return false
}
