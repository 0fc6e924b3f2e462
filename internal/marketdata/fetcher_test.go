package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"testing"
	"time"

	"cryptoInsight/internal/domain"
	"cryptoInsight/internal/indicators"
	"cryptoInsight/internal/ports"

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

type fakeSource struct {
	rows      []ports.RawBar
	err       error
	calls     int
	lastSince time.Time
	lastSym   string
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchDaily(ctx context.Context, symbol string, since time.Time) ([]ports.RawBar, error) {
	f.calls++
	f.lastSince = since
	f.lastSym = symbol
	return f.rows, f.err
}

var fixedNow = time.Date(2024, 6, 30, 15, 4, 5, 0, time.UTC)

func dailyRows(n int) []ports.RawBar {
	rows := make([]ports.RawBar, n)
	start := fixedNow.AddDate(0, 0, -n)
	for i := range rows {
		p := 100 + float64(i%9) - float64(i%4)
		rows[i] = ports.RawBar{
			Time:   domainDay(start.AddDate(0, 0, i)).Unix(),
			Open:   strconv.FormatFloat(p-1, 'f', -1, 64),
			High:   strconv.FormatFloat(p+2, 'f', -1, 64),
			Low:    strconv.FormatFloat(p-2, 'f', -1, 64),
			Close:  strconv.FormatFloat(p, 'f', -1, 64),
			Volume: fmt.Sprintf("%d.5", 1000+i),
		}
	}
	return rows
}

func domainDay(t time.Time) time.Time { return domain.DayOf(t) }

func newTestFetcher(t *testing.T, src ports.RawBarSource) *Fetcher {
	t.Helper()
	f, err := NewFetcher(Config{Source: src, Logger: &mockLogger{}, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	return f
}

func TestSpanDays(t *testing.T) {
	tests := []struct {
		visible int
		want    int
	}{
		{visible: 1, want: 120},
		{visible: 20, want: 120},
		{visible: 30, want: 130},
		{visible: 180, want: 280},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SpanDays(tt.visible), "visible %d", tt.visible)
	}
}

func TestFetcher_Fetch(t *testing.T) {
	src := &fakeSource{rows: dailyRows(130)}
	f := newTestFetcher(t, src)

	series, err := f.Fetch(context.Background(), "btc", 30)
	require.NoError(t, err)

	assert.Equal(t, "BTC", src.lastSym)
	assert.Equal(t, time.Date(2024, 2, 21, 0, 0, 0, 0, time.UTC), src.lastSince)
	assert.Equal(t, "BTC", series.Symbol)
	require.Equal(t, 30+RSIWarmup, series.Len())

	for i := 1; i < series.Len(); i++ {
		assert.True(t, series.Bars[i-1].Date.Before(series.Bars[i].Date))
	}
	last, ok := series.Last()
	require.True(t, ok)
	assert.Equal(t, domain.DayOf(fixedNow.AddDate(0, 0, -1)), last.Date)
}

func TestFetcher_ShortHistoryReturnsWhatExists(t *testing.T) {
	src := &fakeSource{rows: dailyRows(10)}
	f := newTestFetcher(t, src)

	series, err := f.Fetch(context.Background(), "SOL", 30)
	require.NoError(t, err)
	assert.Equal(t, 10, series.Len())
}

func TestFetcher_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     *fakeSource
		visible int
		wantErr error
	}{
		{
			name:    "no usable rows",
			src:     &fakeSource{rows: []ports.RawBar{{Time: fixedNow.Unix(), Open: "x", High: "1", Low: "1", Close: "1", Volume: "1"}}},
			visible: 30,
			wantErr: ports.ErrDataUnavailable,
		},
		{
			name:    "empty result",
			src:     &fakeSource{rows: nil},
			visible: 30,
			wantErr: ports.ErrDataUnavailable,
		},
		{
			name:    "provider error",
			src:     &fakeSource{err: fmt.Errorf("kraken: %w", ports.ErrUpstream)},
			visible: 30,
			wantErr: ports.ErrUpstream,
		},
		{
			name:    "plain transport error is upstream",
			src:     &fakeSource{err: errors.New("connection reset by peer")},
			visible: 30,
			wantErr: ports.ErrUpstream,
		},
		{
			name:    "non-positive visible days",
			src:     &fakeSource{rows: dailyRows(5)},
			visible: 0,
			wantErr: ports.ErrInvalidParameter,
		},
		{
			name:    "visible days above cap",
			src:     &fakeSource{rows: dailyRows(130)},
			visible: MaxVisibleDays + 1,
			wantErr: ports.ErrInvalidParameter,
		},
		{
			name:    "visible days near max int",
			src:     &fakeSource{rows: dailyRows(130)},
			visible: math.MaxInt - 5,
			wantErr: ports.ErrInvalidParameter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFetcher(t, tt.src)
			series, err := f.Fetch(context.Background(), "BTC", tt.visible)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, series.Len())
		})
	}
}

func TestNewFetcher_RequiresCollaborators(t *testing.T) {
	_, err := NewFetcher(Config{Logger: &mockLogger{}})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = NewFetcher(Config{Source: &fakeSource{}})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestFetcher_RefetchIsDeterministic(t *testing.T) {
	src := &fakeSource{rows: dailyRows(200)}
	f := newTestFetcher(t, src)

	a, err := f.Fetch(context.Background(), "ETH", 60)
	require.NoError(t, err)
	b, err := f.Fetch(context.Background(), "ETH", 60)
	require.NoError(t, err)
	require.Equal(t, a, b)

	fa, err := indicators.ComputeFrame(a)
	require.NoError(t, err)
	fb, err := indicators.ComputeFrame(b)
	require.NoError(t, err)

	require.Equal(t, len(fa.RSI14), len(fb.RSI14))
	for i := range fa.RSI14 {
		if fa.RSI14.Defined(i) {
			assert.Equal(t, fa.RSI14[i], fb.RSI14[i])
		}
		if fa.SMA20.Defined(i) {
			assert.Equal(t, fa.SMA20[i], fb.SMA20[i])
		}
	}
}
