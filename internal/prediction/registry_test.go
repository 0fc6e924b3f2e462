package prediction

import (
	"os"
	"path/filepath"
	"testing"

	"cryptoInsight/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()

	want := map[string]string{"BTC": "bitcoin", "ETH": "ETHUSD", "SOL": "SOLUSD", "XRP": "xrp"}
	for coin, endpoint := range want {
		svc, ok := reg.Lookup(coin)
		require.True(t, ok, coin)
		assert.Equal(t, endpoint, svc.Endpoint)
	}
	assert.Equal(t, []string{"BTC", "ETH", "SOL", "XRP"}, reg.Coins())
	assert.Equal(t, "bitcoin", reg.probeEndpoint())
}

func TestLoadRegistry(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		reg, err := LoadRegistry("")
		require.NoError(t, err)
		assert.Len(t, reg.Services, 4)
	})

	t.Run("overrides merge per coin", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "services.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
services:
  btc:
    base_url: https://btc.example/predict
    model_name: XGBRegressor
  ADA:
    base_url: https://ada.example
    endpoint: ADAUSD
`), 0o644))

		reg, err := LoadRegistry(path)
		require.NoError(t, err)

		btc, ok := reg.Lookup("BTC")
		require.True(t, ok)
		assert.Equal(t, "https://btc.example/predict", btc.BaseURL)
		assert.Equal(t, "bitcoin", btc.Endpoint, "endpoint kept from defaults")
		assert.Equal(t, "XGBRegressor", btc.ModelName)

		ada, ok := reg.Lookup("ada")
		require.True(t, ok)
		assert.Equal(t, "Unknown", ada.ModelName)
		assert.Equal(t, []string{"BTC", "ETH", "SOL", "XRP", "ADA"}, reg.Coins())
	})

	t.Run("new coin without endpoint", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "services.yaml")
		require.NoError(t, os.WriteFile(path, []byte("services:\n  DOGE:\n    base_url: https://d.example\n"), 0o644))

		_, err := LoadRegistry(path)
		assert.ErrorIs(t, err, ports.ErrConfigurationError)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, ports.ErrConfigurationError)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "services.yaml")
		require.NoError(t, os.WriteFile(path, []byte("services: [::"), 0o644))

		_, err := LoadRegistry(path)
		assert.ErrorIs(t, err, ports.ErrConfigurationError)
	})
}
