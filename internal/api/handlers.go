package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"cryptoInsight/internal/app"
	"cryptoInsight/internal/marketdata"
	"cryptoInsight/internal/ports"
)

const dateLayout = "2006-01-02"

// Dashboard is the view assembly the handlers serve.
type Dashboard interface {
	OHLCView(ctx context.Context, coin string, days int) (*app.OHLCView, error)
	Overview(ctx context.Context, coin string, days int) (*app.Overview, error)
	Prediction(ctx context.Context, coin string, days int) (*app.PredictionView, error)
	Warmup(ctx context.Context, coin string) (bool, error)
	Refresh(ctx context.Context, coin string, days int) (*app.RefreshResult, error)
}

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboard Dashboard
	logger    ports.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard Dashboard, logger ports.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger}
}

type ohlcPoint struct {
	Date    string   `json:"date"`
	Open    float64  `json:"open"`
	High    float64  `json:"high"`
	Low     float64  `json:"low"`
	Close   float64  `json:"close"`
	Volume  float64  `json:"volume"`
	SMA7    *float64 `json:"sma_7"`
	SMA20   *float64 `json:"sma_20"`
	RSI14   *float64 `json:"rsi_14"`
	RSIZone string   `json:"rsi_zone,omitempty"`
}

type ohlcResponse struct {
	Coin      string      `json:"coin"`
	Days      int         `json:"days"`
	RSILevels []float64   `json:"rsi_levels"`
	Points    []ohlcPoint `json:"points"`
}

type closePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

type overviewResponse struct {
	Coin          string       `json:"coin"`
	Days          int          `json:"days"`
	LastClose     float64      `json:"last_close"`
	PreviousClose float64      `json:"previous_close"`
	ChangePercent float64      `json:"change_pct"`
	DayHigh       float64      `json:"day_high"`
	DayLow        float64      `json:"day_low"`
	DayVolume     float64      `json:"day_volume"`
	PeriodHigh    float64      `json:"period_high"`
	PeriodLow     float64      `json:"period_low"`
	PeriodVolume  float64      `json:"period_volume"`
	CloseLine     []closePoint `json:"close_line"`
}

type predictionResponse struct {
	Coin          string  `json:"coin"`
	CurrentPrice  float64 `json:"current_price"`
	PredictedHigh float64 `json:"predicted_high"`
	DeltaPercent  float64 `json:"delta_pct"`
	ModelName     string  `json:"model_name"`
}

type refreshResponse struct {
	Coin        string `json:"coin"`
	Days        int    `json:"days"`
	VisibleDays []int  `json:"visible_days"`
	Bars        int    `json:"bars"`
	LastDate    string `json:"last_date,omitempty"`
}

// ListCoins handles GET /api/v1/coins
func (h *DashboardHandler) ListCoins(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"coins":         marketdata.Coins,
		"ranges":        marketdata.Ranges,
		"default_range": marketdata.DefaultRange,
	})
}

// GetOHLC handles GET /api/v1/coins/{coin}/ohlc
func (h *DashboardHandler) GetOHLC(w http.ResponseWriter, r *http.Request) {
	days, ok := h.parseDays(w, r)
	if !ok {
		return
	}

	view, err := h.dashboard.OHLCView(r.Context(), mux.Vars(r)["coin"], days)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	resp := ohlcResponse{
		Coin:      view.Coin,
		Days:      view.Days,
		RSILevels: view.RSILevels,
		Points:    make([]ohlcPoint, len(view.Points)),
	}
	for i, p := range view.Points {
		resp.Points[i] = ohlcPoint{
			Date:    p.Date.Format(dateLayout),
			Open:    p.Open,
			High:    p.High,
			Low:     p.Low,
			Close:   p.Close,
			Volume:  p.Volume,
			SMA7:    nullable(p.SMA7),
			SMA20:   nullable(p.SMA20),
			RSI14:   nullable(p.RSI14),
			RSIZone: p.RSIZone,
		}
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// GetOverview handles GET /api/v1/coins/{coin}/overview
func (h *DashboardHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	days, ok := h.parseDays(w, r)
	if !ok {
		return
	}

	ov, err := h.dashboard.Overview(r.Context(), mux.Vars(r)["coin"], days)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	line := make([]closePoint, len(ov.CloseLine))
	for i, p := range ov.CloseLine {
		line[i] = closePoint{Date: p.Date.Format(dateLayout), Close: p.Close}
	}
	respondWithJSON(w, http.StatusOK, overviewResponse{
		Coin:          ov.Coin,
		Days:          ov.Days,
		LastClose:     ov.LastClose,
		PreviousClose: ov.PreviousClose,
		ChangePercent: ov.ChangePercent,
		DayHigh:       ov.DayHigh,
		DayLow:        ov.DayLow,
		DayVolume:     ov.DayVolume,
		PeriodHigh:    ov.PeriodHigh,
		PeriodLow:     ov.PeriodLow,
		PeriodVolume:  ov.PeriodVolume,
		CloseLine:     line,
	})
}

// GetPrediction handles GET /api/v1/coins/{coin}/prediction
func (h *DashboardHandler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	days, ok := h.parseDays(w, r)
	if !ok {
		return
	}

	view, err := h.dashboard.Prediction(r.Context(), mux.Vars(r)["coin"], days)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, predictionResponse{
		Coin:          view.Coin,
		CurrentPrice:  view.CurrentPrice,
		PredictedHigh: view.PredictedHigh,
		DeltaPercent:  view.DeltaPercent,
		ModelName:     view.ModelName,
	})
}

// Warmup handles POST /api/v1/coins/{coin}/warmup
func (h *DashboardHandler) Warmup(w http.ResponseWriter, r *http.Request) {
	coin := mux.Vars(r)["coin"]
	ready, err := h.dashboard.Warmup(r.Context(), coin)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	respondWithJSON(w, status, map[string]interface{}{"coin": coin, "ready": ready})
}

// Refresh handles POST /api/v1/coins/{coin}/refresh
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	days, ok := h.parseDays(w, r)
	if !ok {
		return
	}

	res, err := h.dashboard.Refresh(r.Context(), mux.Vars(r)["coin"], days)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	resp := refreshResponse{
		Coin:        res.Coin,
		Days:        res.Days,
		VisibleDays: res.VisibleDays,
		Bars:        res.Bars,
	}
	if !res.LastDate.IsZero() {
		resp.LastDate = res.LastDate.Format(dateLayout)
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// Health handles GET /health
func (h *DashboardHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// parseDays reads ?days=N, defaulting to the dashboard's default range.
func (h *DashboardHandler) parseDays(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return marketdata.DefaultRange, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 || days > marketdata.MaxVisibleDays {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("days must be an integer between 1 and %d", marketdata.MaxVisibleDays))
		return 0, false
	}
	return days, true
}

func (h *DashboardHandler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), err, "Dashboard request failed", map[string]interface{}{
			"path":   r.URL.Path,
			"status": code,
		})
	}
	respondWithError(w, code, err.Error())
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ports.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, ports.ErrNotFound), errors.Is(err, ports.ErrDataUnavailable):
		return http.StatusNotFound
	case errors.Is(err, ports.ErrServiceNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, ports.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ports.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// nullable turns an undefined indicator value into a JSON null.
func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
