package binanceclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cryptoInsight/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func klineJSON(openMs int64, close string) string {
	closeMs := openMs + 24*60*60*1000 - 1
	return fmt.Sprintf(`[%d,"100.0","110.0","90.0","%s","12.5",%d,"1250.0",42,"6.0","600.0","0"]`, openMs, close, closeMs)
}

func TestClient_FetchDaily(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	var gotSymbol, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSymbol = r.URL.Query().Get("symbol")
		gotInterval = r.URL.Query().Get("interval")
		fmt.Fprintf(w, "[%s,%s]", klineJSON(day, "105.5"), klineJSON(day+86400000, "107.0"))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Logger: &mockLogger{}})
	require.NoError(t, err)

	rows, err := c.FetchDaily(context.Background(), "xbt", time.UnixMilli(day))
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", gotSymbol)
	assert.Equal(t, "1d", gotInterval)
	require.Len(t, rows, 2)
	assert.Equal(t, ports.RawBar{Time: day / 1000, Open: "100.0", High: "110.0", Low: "90.0", Close: "105.5", Volume: "12.5"}, rows[0])
	assert.Equal(t, "107.0", rows[1].Close)
}

func TestClient_FetchDaily_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Logger: &mockLogger{}})
	require.NoError(t, err)

	_, err = c.FetchDaily(context.Background(), "NOPE", time.Now().AddDate(0, 0, -10))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrUpstream)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestClient_FetchDaily_HTTPTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond, Logger: &mockLogger{}})
	require.NoError(t, err)

	start := time.Now()
	_, err = c.FetchDaily(context.Background(), "BTC", time.Now().AddDate(0, 0, -10))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrUpstream)
	assert.ErrorIs(t, err, ports.ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTranslateKline(t *testing.T) {
	k := &binance.Kline{OpenTime: 1704067200000, Open: "1", High: "2", Low: "0.5", Close: "1.5", Volume: "", CloseTime: 1704153599999}
	assert.Equal(t, ports.RawBar{Time: 1704067200, Open: "1", High: "2", Low: "0.5", Close: "1.5", Volume: ""}, translateKline(k))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	c, err := New(Config{UseTestnet: true, Logger: &mockLogger{}})
	require.NoError(t, err)
	assert.Equal(t, baseURLTestnet, c.spotClient.BaseURL)
	require.NotNil(t, c.spotClient.HTTPClient)
	assert.Equal(t, defaultTimeout, c.spotClient.HTTPClient.Timeout)

	c, err = New(Config{Timeout: 3 * time.Second, Logger: &mockLogger{}})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, c.spotClient.HTTPClient.Timeout)
}
