package kraken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"cryptoInsight/internal/marketdata"
	"cryptoInsight/internal/ports"
)

const (
	// DefaultBaseURL is Kraken's public REST endpoint.
	DefaultBaseURL = "https://api.kraken.com"

	dailyInterval = 1440 // minutes
	userAgent     = "CryptoInsight/1.0"
)

// Client implements ports.RawBarSource using Kraken's public OHLC endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     ports.Logger
}

// Config holds configuration for the Kraken adapter.
type Config struct {
	BaseURL string        // Defaults to DefaultBaseURL
	Timeout time.Duration // Defaults to 20s
	Logger  ports.Logger
}

// New creates a new Kraken client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Kraken client")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	cfg.Logger.Info(context.Background(), "Kraken client configured", map[string]interface{}{"baseURL": base})
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return "kraken" }

// ohlcResponse is the envelope returned by /0/public/OHLC.
// result holds one key per pair plus "last".
type ohlcResponse struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

// FetchDaily retrieves daily OHLC rows for symbol since the given time.
func (c *Client) FetchDaily(ctx context.Context, symbol string, since time.Time) ([]ports.RawBar, error) {
	op := "FetchDaily"
	pair := marketdata.KrakenPair(symbol)

	q := url.Values{}
	q.Set("pair", pair)
	q.Set("interval", strconv.Itoa(dailyInterval))
	q.Set("since", strconv.FormatInt(since.Unix(), 10))
	u := c.baseURL + "/0/public/OHLC?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.handleError(ctx, fmt.Errorf("read body: %w", err), op)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.handleError(ctx, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200)), op)
	}

	var payload ohlcResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, c.handleError(ctx, fmt.Errorf("decode response: %w", err), op)
	}
	if len(payload.Error) > 0 {
		return nil, c.handleError(ctx, fmt.Errorf("kraken API error: %s", strings.Join(payload.Error, "; ")), op)
	}

	key, ok := pairKey(payload.Result)
	if !ok {
		return nil, c.handleError(ctx, errors.New("kraken response missing OHLC data"), op)
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(payload.Result[key], &rows); err != nil {
		return nil, c.handleError(ctx, fmt.Errorf("decode %s rows: %w", key, err), op)
	}

	out := make([]ports.RawBar, 0, len(rows))
	for _, row := range rows {
		bar, ok := translateRow(row)
		if !ok {
			c.logger.Debug(ctx, "Skipping Kraken row without timestamp", map[string]interface{}{"pair": key})
			continue
		}
		out = append(out, bar)
	}
	c.logger.Debug(ctx, "Kraken OHLC fetched", map[string]interface{}{"pair": key, "rows": len(out)})
	return out, nil
}

// pairKey picks the data key from result, ignoring "last".
// Keys are sorted so the pick is stable if Kraken ever returns several.
func pairKey(result map[string]json.RawMessage) (string, bool) {
	keys := make([]string, 0, len(result))
	for k := range result {
		if k != "last" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Strings(keys)
	return keys[0], true
}

// translateRow maps [time, open, high, low, close, vwap, volume, count].
func translateRow(row []json.RawMessage) (ports.RawBar, bool) {
	if len(row) == 0 {
		return ports.RawBar{}, false
	}
	ts, err := strconv.ParseFloat(fieldText(row, 0), 64)
	if err != nil {
		return ports.RawBar{}, false
	}
	return ports.RawBar{
		Time:   int64(ts),
		Open:   fieldText(row, 1),
		High:   fieldText(row, 2),
		Low:    fieldText(row, 3),
		Close:  fieldText(row, 4),
		Volume: fieldText(row, 6),
	}, true
}

// fieldText returns the textual value of row[i]: strings unquoted, numbers
// verbatim, null or missing as "".
func fieldText(row []json.RawMessage, i int) string {
	if i >= len(row) {
		return ""
	}
	raw := strings.TrimSpace(string(row[i]))
	if raw == "null" {
		return ""
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(row[i], &s); err != nil {
			return ""
		}
		return s
	}
	return raw
}

// handleError wraps every failure in ports.ErrUpstream, adding a more specific
// sentinel where one applies.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}
	fields := map[string]interface{}{"operation": operation, "provider": "kraken"}

	var finalErr error
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		finalErr = fmt.Errorf("%s failed: %w: %w: %w", operation, ports.ErrUpstream, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s canceled: %w: %w: %w", operation, ports.ErrUpstream, ports.ErrContextCanceled, err)
	case strings.Contains(err.Error(), "EAPI:Rate limit"):
		finalErr = fmt.Errorf("%s failed: %w: %w: %w", operation, ports.ErrUpstream, ports.ErrRateLimited, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUpstream, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("Kraken %s failed", operation), fields)
	return finalErr
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
