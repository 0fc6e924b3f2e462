package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"cryptoInsight/internal/marketdata"
	"cryptoInsight/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

const (
	// Base URLs
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"

	dailyInterval = "1d"
	maxLimit      = 1000

	defaultTimeout = 20 * time.Second
)

// Client implements ports.RawBarSource using the go-binance spot klines service.
type Client struct {
	spotClient *binance.Client
	logger     ports.Logger
	now        func() time.Time
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	BaseURL    string        // Overrides the production/testnet URL when set
	Timeout    time.Duration // Per-request HTTP timeout, defaults to 20s
	Logger     ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}

	// Klines are a public endpoint; keys are optional.
	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client.HTTPClient = &http.Client{Timeout: timeout}

	switch {
	case cfg.BaseURL != "":
		client.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	case cfg.UseTestnet:
		client.BaseURL = baseURLTestnet
	default:
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance client configured", map[string]interface{}{"baseURL": client.BaseURL, "timeout": timeout.String()})

	return &Client{spotClient: client, logger: cfg.Logger, now: time.Now}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return "binance" }

// FetchDaily pages through daily klines for symbol from since until now.
func (c *Client) FetchDaily(ctx context.Context, symbol string, since time.Time) ([]ports.RawBar, error) {
	op := "FetchDaily"
	pair := marketdata.BinancePair(symbol)
	end := c.now()
	from := since

	var rows []ports.RawBar
	for {
		klines, err := c.spotClient.NewKlinesService().
			Symbol(pair).
			Interval(dailyInterval).
			StartTime(from.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(maxLimit).
			Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}
		for _, k := range klines {
			if k == nil {
				continue
			}
			rows = append(rows, translateKline(k))
		}
		last := klines[len(klines)-1]
		from = time.UnixMilli(last.CloseTime + 1)
		if from.After(end) || len(klines) < maxLimit {
			break
		}
	}

	c.logger.Debug(ctx, "Binance klines fetched", map[string]interface{}{"pair": pair, "rows": len(rows)})
	return rows, nil
}

// translateKline keeps Binance's string prices as-is; cleaning parses them.
func translateKline(k *binance.Kline) ports.RawBar {
	return ports.RawBar{
		Time:   k.OpenTime / 1000,
		Open:   k.Open,
		High:   k.High,
		Low:    k.Low,
		Close:  k.Close,
		Volume: k.Volume,
	}
}

// handleError translates Binance API errors into standardized ports errors.
// Every failure is an upstream failure; some also carry a more specific sentinel.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1121: // Invalid symbol
			mappedErr = ports.ErrNotFound
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1120: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidParameter
		default:
			mappedErr = ports.ErrUnknown
		}
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return fmt.Errorf("%s failed: %w: %w: %w", operation, ports.ErrUpstream, mappedErr, err)
	}

	var netErr net.Error
	var finalErr error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		finalErr = fmt.Errorf("%s failed: %w: %w: %w", operation, ports.ErrUpstream, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s operation canceled: %w: %w: %w", operation, ports.ErrUpstream, ports.ErrContextCanceled, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUpstream, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}
