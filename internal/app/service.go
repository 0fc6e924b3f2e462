package app

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"cryptoInsight/internal/domain"
	"cryptoInsight/internal/indicators"
	"cryptoInsight/internal/marketdata"
	"cryptoInsight/internal/ports"
)

const (
	minChartDays      = 60 // Fetch at least this many visible days for the OHLC chart
	minPredictionDays = 30 // History fetched before asking for a forecast
	minDenominator    = 1e-6
)

// RSI reference levels drawn on the chart.
var RSILevels = []float64{indicators.RSIOversold, 50, indicators.RSIOverbought}

// Refresher overwrites a cached bar series with a fresh upstream fetch.
type Refresher interface {
	Refresh(ctx context.Context, symbol string, visibleDays int) (domain.BarSeries, error)
}

// healthForgetter is implemented by predictors that remember service health.
type healthForgetter interface {
	Forget(coin string)
}

// DashboardService assembles the dashboard's view models from bars,
// indicators and the prediction services.
type DashboardService struct {
	bars      ports.BarSource
	predictor ports.Predictor
	refresher Refresher
	logger    ports.Logger
	rsi       *indicators.RSI
	now       func() time.Time
}

// Config holds the dashboard service dependencies.
type Config struct {
	Bars      ports.BarSource
	Predictor ports.Predictor // Optional; prediction views fail without it
	Refresher Refresher       // Optional; Refresh fails without it
	Logger    ports.Logger
	Now       func() time.Time // Defaults to time.Now
}

// NewDashboardService creates a new dashboard service instance.
func NewDashboardService(cfg Config) (*DashboardService, error) {
	if cfg.Bars == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for DashboardService: %w", ports.ErrConfigurationError)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &DashboardService{
		bars:      cfg.Bars,
		predictor: cfg.Predictor,
		refresher: cfg.Refresher,
		logger:    cfg.Logger,
		rsi:       indicators.DefaultRSI(),
		now:       now,
	}, nil
}

// OHLCPoint is one chart row. Undefined indicator values are NaN.
type OHLCPoint struct {
	Date    time.Time
	Open    float64
	High    float64
	Low     float64
	Close   float64
	Volume  float64
	SMA7    float64
	SMA20   float64
	RSI14   float64
	RSIZone string // "overbought", "oversold", "neutral" or "" when undefined
}

// OHLCView is the candlestick chart with moving averages and RSI.
type OHLCView struct {
	Coin      string
	Days      int
	Points    []OHLCPoint
	RSILevels []float64
}

// OHLCView fetches the coin's bars, drops the unfinished current day,
// computes indicators over the full history and windows to the last days bars.
func (s *DashboardService) OHLCView(ctx context.Context, coin string, days int) (*OHLCView, error) {
	coin, err := validateRequest(coin, days)
	if err != nil {
		return nil, err
	}

	series, err := s.bars.Fetch(ctx, coin, max(days, minChartDays))
	if err != nil {
		return nil, err
	}
	series = series.DropFrom(domain.DayOf(s.now()))
	if series.Len() == 0 {
		return nil, fmt.Errorf("no completed days for %s: %w", coin, ports.ErrDataUnavailable)
	}

	frame, err := indicators.ComputeFrame(series)
	if err != nil {
		return nil, fmt.Errorf("indicator computation failed for %s: %w", coin, err)
	}
	frame = frame.Window(days)

	points := make([]OHLCPoint, frame.Bars.Len())
	for i, b := range frame.Bars.Bars {
		points[i] = OHLCPoint{
			Date:    b.Date,
			Open:    b.Open,
			High:    b.High,
			Low:     b.Low,
			Close:   b.Close,
			Volume:  b.Volume,
			SMA7:    frame.SMA7[i],
			SMA20:   frame.SMA20[i],
			RSI14:   frame.RSI14[i],
			RSIZone: s.rsi.Zone(frame.RSI14[i]),
		}
	}

	s.logger.Debug(ctx, "Built OHLC view", map[string]interface{}{
		"coin":   coin,
		"days":   days,
		"points": len(points),
	})

	return &OHLCView{Coin: coin, Days: days, Points: points, RSILevels: RSILevels}, nil
}

// ClosePoint is one point on the overview price line.
type ClosePoint struct {
	Date  time.Time
	Close float64
}

// Overview holds the headline figures for a coin.
type Overview struct {
	Coin          string
	Days          int
	LastClose     float64
	PreviousClose float64
	ChangePercent float64 // Last close vs previous close
	DayHigh       float64 // Latest bar's high
	DayLow        float64 // Latest bar's low
	DayVolume     float64 // Latest bar's volume
	PeriodHigh    float64
	PeriodLow     float64
	PeriodVolume  float64
	CloseLine     []ClosePoint
}

// Overview computes the headline KPIs and close line over the last days bars.
func (s *DashboardService) Overview(ctx context.Context, coin string, days int) (*Overview, error) {
	coin, err := validateRequest(coin, days)
	if err != nil {
		return nil, err
	}

	series, err := s.bars.Fetch(ctx, coin, days)
	if err != nil {
		return nil, err
	}
	if series.Len() < 2 {
		return nil, fmt.Errorf("need at least two bars for %s, got %d: %w", coin, series.Len(), ports.ErrDataUnavailable)
	}

	latest := series.Bars[series.Len()-1]
	prev := series.Bars[series.Len()-2]
	window := series.Trailing(days)

	ov := &Overview{
		Coin:          coin,
		Days:          days,
		LastClose:     latest.Close,
		PreviousClose: prev.Close,
		ChangePercent: percentChange(latest.Close, prev.Close),
		DayHigh:       latest.High,
		DayLow:        latest.Low,
		DayVolume:     latest.Volume,
		PeriodHigh:    math.Inf(-1),
		PeriodLow:     math.Inf(1),
		CloseLine:     make([]ClosePoint, window.Len()),
	}
	for i, b := range window.Bars {
		ov.PeriodHigh = math.Max(ov.PeriodHigh, b.High)
		ov.PeriodLow = math.Min(ov.PeriodLow, b.Low)
		ov.PeriodVolume += b.Volume
		ov.CloseLine[i] = ClosePoint{Date: b.Date, Close: b.Close}
	}
	return ov, nil
}

// PredictionView is a next-day high forecast compared with the current price.
type PredictionView struct {
	Coin          string
	CurrentPrice  float64
	PredictedHigh float64
	DeltaPercent  float64
	ModelName     string
}

// Prediction asks the coin's model service for tomorrow's high. A service
// that has not been seen healthy is prewarmed first; if it is still not
// ready ports.ErrServiceNotReady is returned without calling predict.
func (s *DashboardService) Prediction(ctx context.Context, coin string, days int) (*PredictionView, error) {
	if days <= 0 {
		days = minPredictionDays
	}
	coin, err := validateRequest(coin, days)
	if err != nil {
		return nil, err
	}
	if s.predictor == nil {
		return nil, fmt.Errorf("prediction is not configured: %w", ports.ErrConfigurationError)
	}

	if !s.predictor.Ready(coin) && !s.predictor.Prewarm(ctx, coin) {
		return nil, fmt.Errorf("model service for %s is warming up: %w", coin, ports.ErrServiceNotReady)
	}

	series, err := s.bars.Fetch(ctx, coin, max(days, minPredictionDays))
	if err != nil {
		return nil, err
	}
	last, ok := series.Last()
	if !ok {
		return nil, fmt.Errorf("no bars for %s: %w", coin, ports.ErrDataUnavailable)
	}

	pred, err := s.predictor.Predict(ctx, coin, last.Close)
	if err != nil {
		return nil, err
	}

	return &PredictionView{
		Coin:          coin,
		CurrentPrice:  last.Close,
		PredictedHigh: pred.PredictedHigh,
		DeltaPercent:  percentChange(pred.PredictedHigh, last.Close),
		ModelName:     pred.ModelName,
	}, nil
}

// Warmup triggers a prewarm of the coin's model service.
func (s *DashboardService) Warmup(ctx context.Context, coin string) (bool, error) {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	if !marketdata.IsOffered(coin) {
		return false, fmt.Errorf("coin %q is not offered: %w", coin, ports.ErrNotFound)
	}
	if s.predictor == nil {
		return false, fmt.Errorf("prediction is not configured: %w", ports.ErrConfigurationError)
	}
	return s.predictor.Prewarm(ctx, coin), nil
}

// RefreshResult reports what a hard refresh re-fetched.
type RefreshResult struct {
	Coin        string
	Days        int
	VisibleDays []int // Cache entries overwritten, one per view range
	Bars        int   // Bars in the largest refreshed series
	LastDate    time.Time
}

// Refresh re-fetches the coin's bars for every range the views derive from
// days and overwrites the cached entries. The prediction service's remembered
// health is dropped as well, so the next forecast checks it again.
func (s *DashboardService) Refresh(ctx context.Context, coin string, days int) (*RefreshResult, error) {
	coin, err := validateRequest(coin, days)
	if err != nil {
		return nil, err
	}
	if s.refresher == nil {
		return nil, fmt.Errorf("refresh is not configured: %w", ports.ErrConfigurationError)
	}

	res := &RefreshResult{Coin: coin, Days: days}
	for _, visible := range viewRanges(days) {
		series, err := s.refresher.Refresh(ctx, coin, visible)
		if err != nil {
			return nil, err
		}
		res.VisibleDays = append(res.VisibleDays, visible)
		if series.Len() >= res.Bars {
			res.Bars = series.Len()
			if last, ok := series.Last(); ok {
				res.LastDate = last.Date
			}
		}
	}

	if f, ok := s.predictor.(healthForgetter); ok {
		f.Forget(coin)
	}

	s.logger.Info(ctx, "Refreshed bars", map[string]interface{}{
		"coin":        coin,
		"days":        days,
		"visibleDays": res.VisibleDays,
	})
	return res, nil
}

// viewRanges lists the distinct visible-day counts the views fetch for days.
func viewRanges(days int) []int {
	var out []int
	for _, v := range []int{max(days, minChartDays), days, max(days, minPredictionDays)} {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func validateRequest(coin string, days int) (string, error) {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	if !marketdata.IsOffered(coin) {
		return "", fmt.Errorf("coin %q is not offered: %w", coin, ports.ErrNotFound)
	}
	if days <= 0 || days > marketdata.MaxVisibleDays {
		return "", fmt.Errorf("days must be in [1, %d], got %d: %w", marketdata.MaxVisibleDays, days, ports.ErrInvalidParameter)
	}
	return coin, nil
}

func percentChange(value, base float64) float64 {
	return (value - base) / math.Max(base, minDenominator) * 100
}
