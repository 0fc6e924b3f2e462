package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoInsight/internal/app"
	"cryptoInsight/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockDashboard struct {
	ohlc     *app.OHLCView
	overview *app.Overview
	pred     *app.PredictionView
	ready    bool
	refresh  *app.RefreshResult
	err      error

	lastCoin string
	lastDays int
}

func (m *mockDashboard) OHLCView(ctx context.Context, coin string, days int) (*app.OHLCView, error) {
	m.lastCoin, m.lastDays = coin, days
	return m.ohlc, m.err
}

func (m *mockDashboard) Overview(ctx context.Context, coin string, days int) (*app.Overview, error) {
	m.lastCoin, m.lastDays = coin, days
	return m.overview, m.err
}

func (m *mockDashboard) Prediction(ctx context.Context, coin string, days int) (*app.PredictionView, error) {
	m.lastCoin, m.lastDays = coin, days
	return m.pred, m.err
}

func (m *mockDashboard) Warmup(ctx context.Context, coin string) (bool, error) {
	m.lastCoin = coin
	return m.ready, m.err
}

func (m *mockDashboard) Refresh(ctx context.Context, coin string, days int) (*app.RefreshResult, error) {
	m.lastCoin, m.lastDays = coin, days
	return m.refresh, m.err
}

func serve(t *testing.T, d Dashboard, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(NewDashboardHandler(d, &mockLogger{}), &mockLogger{})
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestListCoins(t *testing.T) {
	w := serve(t, &mockDashboard{}, http.MethodGet, "/api/v1/coins")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []interface{}{"BTC", "ETH", "SOL", "XRP"}, body["coins"])
	assert.Equal(t, []interface{}{30.0, 60.0, 90.0, 180.0}, body["ranges"])
	assert.Equal(t, 180.0, body["default_range"])
}

func TestGetOHLC_EncodesUndefinedAsNull(t *testing.T) {
	day := time.Date(2024, 6, 29, 0, 0, 0, 0, time.UTC)
	d := &mockDashboard{ohlc: &app.OHLCView{
		Coin:      "BTC",
		Days:      30,
		RSILevels: []float64{30, 50, 70},
		Points: []app.OHLCPoint{
			{Date: day, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10, SMA7: 1.25, SMA20: math.NaN(), RSI14: math.NaN()},
		},
	}}

	w := serve(t, d, http.MethodGet, "/api/v1/coins/btc/ohlc?days=30")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "btc", d.lastCoin)
	assert.Equal(t, 30, d.lastDays)

	body := decode(t, w)
	points := body["points"].([]interface{})
	require.Len(t, points, 1)
	p := points[0].(map[string]interface{})
	assert.Equal(t, "2024-06-29", p["date"])
	assert.Equal(t, 1.25, p["sma_7"])
	assert.Nil(t, p["sma_20"])
	assert.Nil(t, p["rsi_14"])
	assert.Contains(t, w.Body.String(), `"rsi_14":null`)
	_, hasZone := p["rsi_zone"]
	assert.False(t, hasZone)
}

func TestGetOHLC_DefaultDays(t *testing.T) {
	d := &mockDashboard{ohlc: &app.OHLCView{Coin: "ETH"}}

	w := serve(t, d, http.MethodGet, "/api/v1/coins/ETH/ohlc")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 180, d.lastDays)
}

func TestGetOHLC_InvalidDays(t *testing.T) {
	for _, q := range []string{"days=0", "days=-5", "days=abc", "days=3651", "days=9223372036854775802"} {
		t.Run(q, func(t *testing.T) {
			w := serve(t, &mockDashboard{}, http.MethodGet, "/api/v1/coins/BTC/ohlc?"+q)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("bad: %w", ports.ErrInvalidParameter), http.StatusBadRequest},
		{fmt.Errorf("coin: %w", ports.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("empty: %w", ports.ErrDataUnavailable), http.StatusNotFound},
		{fmt.Errorf("warming: %w", ports.ErrServiceNotReady), http.StatusServiceUnavailable},
		{fmt.Errorf("fetch failed: %w: %w", ports.ErrUpstream, ports.ErrTimeout), http.StatusGatewayTimeout},
		{fmt.Errorf("fetch failed: %w", ports.ErrUpstream), http.StatusBadGateway},
		{fmt.Errorf("something else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := serve(t, &mockDashboard{err: tt.err}, http.MethodGet, "/api/v1/coins/BTC/overview?days=30")
			assert.Equal(t, tt.want, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.err.Error(), body["error"])
		})
	}
}

func TestGetOverview(t *testing.T) {
	d := &mockDashboard{overview: &app.Overview{
		Coin:          "SOL",
		Days:          60,
		LastClose:     150,
		PreviousClose: 140,
		ChangePercent: 7.142857,
		CloseLine:     []app.ClosePoint{{Date: time.Date(2024, 6, 29, 0, 0, 0, 0, time.UTC), Close: 150}},
	}}

	w := serve(t, d, http.MethodGet, "/api/v1/coins/SOL/overview?days=60")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 150.0, body["last_close"])
	assert.Equal(t, 140.0, body["previous_close"])
	assert.InDelta(t, 7.142857, body["change_pct"], 1e-9)
	line := body["close_line"].([]interface{})
	require.Len(t, line, 1)
	assert.Equal(t, "2024-06-29", line[0].(map[string]interface{})["date"])
}

func TestGetPrediction(t *testing.T) {
	d := &mockDashboard{pred: &app.PredictionView{
		Coin: "ETH", CurrentPrice: 3000, PredictedHigh: 3150, DeltaPercent: 5, ModelName: "LinearRegressionModel",
	}}

	w := serve(t, d, http.MethodGet, "/api/v1/coins/ETH/prediction")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 3150.0, body["predicted_high"])
	assert.Equal(t, 5.0, body["delta_pct"])
	assert.Equal(t, "LinearRegressionModel", body["model_name"])
}

func TestWarmup(t *testing.T) {
	w := serve(t, &mockDashboard{ready: true}, http.MethodPost, "/api/v1/coins/BTC/warmup")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ready"])

	w = serve(t, &mockDashboard{ready: false}, http.MethodPost, "/api/v1/coins/BTC/warmup")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = serve(t, &mockDashboard{}, http.MethodGet, "/api/v1/coins/BTC/warmup")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRefresh(t *testing.T) {
	d := &mockDashboard{refresh: &app.RefreshResult{
		Coin:        "ETH",
		Days:        30,
		VisibleDays: []int{60, 30},
		Bars:        74,
		LastDate:    time.Date(2024, 6, 29, 0, 0, 0, 0, time.UTC),
	}}
	w := serve(t, d, http.MethodPost, "/api/v1/coins/eth/refresh?days=30")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "eth", d.lastCoin)
	assert.Equal(t, 30, d.lastDays)
	body := decode(t, w)
	assert.Equal(t, "ETH", body["coin"])
	assert.Equal(t, []interface{}{60.0, 30.0}, body["visible_days"])
	assert.Equal(t, 74.0, body["bars"])
	assert.Equal(t, "2024-06-29", body["last_date"])

	d = &mockDashboard{refresh: &app.RefreshResult{Coin: "BTC", Days: 180}}
	w = serve(t, d, http.MethodPost, "/api/v1/coins/BTC/refresh")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 180, d.lastDays)

	w = serve(t, &mockDashboard{}, http.MethodPost, "/api/v1/coins/BTC/refresh?days=3651")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, &mockDashboard{err: fmt.Errorf("x: %w", ports.ErrUpstream)}, http.MethodPost, "/api/v1/coins/BTC/refresh")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = serve(t, &mockDashboard{}, http.MethodGet, "/api/v1/coins/BTC/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	w := serve(t, &mockDashboard{}, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	// Drive one counted request through, then scrape.
	serve(t, &mockDashboard{}, http.MethodGet, "/api/v1/coins")
	w = serve(t, &mockDashboard{}, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "cryptoinsight_http_requests_total"))
}

func TestCORSPreflight(t *testing.T) {
	w := serve(t, &mockDashboard{}, http.MethodOptions, "/api/v1/coins")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
