package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"cryptoInsight/internal/domain"
	"cryptoInsight/internal/metrics"
	"cryptoInsight/internal/ports"

	"github.com/jpillora/backoff"
)

const (
	userAgent = "CryptoInsight/1.0"

	healthTimeout  = 3 * time.Second
	probeTimeout   = 5 * time.Second
	predictTimeout = 10 * time.Second

	// DefaultMaxRetries is used when Config.MaxRetries is negative.
	DefaultMaxRetries = 2
)

// Keys a service may use for the forecast, in lookup order.
var predictionKeys = []string{"bitcoin_predicted_next_day_high", "predicted_next_day_high"}

// retryStatuses are retried before giving up on a response.
var retryStatuses = map[int]bool{
	408: true, 429: true, 500: true, 502: true, 503: true, 504: true, 522: true, 524: true,
}

// Client implements ports.Predictor against the per-coin model services.
type Client struct {
	registry   Registry
	httpClient *http.Client
	logger     ports.Logger

	maxRetries int
	backoffMin time.Duration
	backoffMax time.Duration
	healthTTL  time.Duration
	now        func() time.Time

	mu      sync.Mutex
	healthy map[string]time.Time // base URL -> last successful check
	ready   map[string]bool      // coin -> readiness flag
}

// Config holds configuration for the prediction client.
type Config struct {
	Registry   Registry
	Logger     ports.Logger
	HTTPClient *http.Client     // Defaults to a plain client; per-call timeouts come from context
	MaxRetries int              // 0 disables retries; negative uses DefaultMaxRetries
	BackoffMin time.Duration    // Defaults to 600ms
	BackoffMax time.Duration    // Defaults to 5s
	HealthTTL  time.Duration    // Defaults to 30m
	Now        func() time.Time // Defaults to time.Now
}

// NewClient creates a new prediction service client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for prediction client")
	}
	c := &Client{
		registry:   cfg.Registry,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		maxRetries: cfg.MaxRetries,
		backoffMin: cfg.BackoffMin,
		backoffMax: cfg.BackoffMax,
		healthTTL:  cfg.HealthTTL,
		now:        cfg.Now,
		healthy:    make(map[string]time.Time),
		ready:      make(map[string]bool),
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.maxRetries < 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.backoffMin <= 0 {
		c.backoffMin = 600 * time.Millisecond
	}
	if c.backoffMax <= 0 {
		c.backoffMax = 5 * time.Second
	}
	if c.healthTTL <= 0 {
		c.healthTTL = 30 * time.Minute
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Ready reports whether coin's service has been seen healthy.
func (c *Client) Ready(coin string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready[strings.ToUpper(coin)]
}

// Prewarm checks the coin's service and records readiness. Once ready a coin
// stays ready. A coin without a configured base URL is treated as ready.
func (c *Client) Prewarm(ctx context.Context, coin string) bool {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	if c.Ready(coin) {
		return true
	}

	svc, ok := c.registry.Lookup(coin)
	if !ok {
		c.logger.Warn(ctx, "No prediction service mapped for coin", map[string]interface{}{"coin": coin})
		return false
	}

	healthy := svc.BaseURL == "" || c.CheckHealth(ctx, svc.BaseURL)

	c.mu.Lock()
	c.ready[coin] = healthy
	c.mu.Unlock()

	gauge := 0.0
	if healthy {
		gauge = 1
	}
	metrics.ServiceReady.WithLabelValues(coin).Set(gauge)
	c.logger.Info(ctx, "Prediction service prewarm", map[string]interface{}{"coin": coin, "ready": healthy})
	return healthy
}

// Forget drops coin's readiness flag and the remembered health of its
// service, so the next Prewarm checks the service again.
func (c *Client) Forget(coin string) {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	svc, ok := c.registry.Lookup(coin)

	c.mu.Lock()
	delete(c.ready, coin)
	if ok && svc.BaseURL != "" {
		delete(c.healthy, strings.TrimRight(svc.BaseURL, "/"))
	}
	c.mu.Unlock()

	metrics.ServiceReady.WithLabelValues(coin).Set(0)
}

// CheckHealth tries GET /health and falls back to a tiny predict probe.
// Successful checks are remembered for the health TTL.
func (c *Client) CheckHealth(ctx context.Context, baseURL string) bool {
	base := strings.TrimRight(baseURL, "/")

	c.mu.Lock()
	at, ok := c.healthy[base]
	c.mu.Unlock()
	if ok && c.now().Sub(at) < c.healthTTL {
		return true
	}

	healthy := c.ping(ctx, base+"/health", healthTimeout)
	if !healthy {
		if ep := c.registry.probeEndpoint(); ep != "" {
			healthy = c.ping(ctx, base+"/predict/"+url.PathEscape(ep)+"?price=1", probeTimeout)
		}
	}

	if healthy {
		c.mu.Lock()
		c.healthy[base] = c.now()
		c.mu.Unlock()
	}
	return healthy
}

func (c *Client) ping(ctx context.Context, u string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.get(ctx, u)
	if err != nil {
		c.logger.Debug(ctx, "Prediction service check failed", map[string]interface{}{"url": u, "error": err.Error()})
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Predict calls {base}/predict/{endpoint}?price=<price> and normalizes the response.
func (c *Client) Predict(ctx context.Context, coin string, price float64) (*domain.Prediction, error) {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	svc, ok := c.registry.Lookup(coin)
	if !ok {
		return nil, fmt.Errorf("no prediction service mapped for coin %s: %w", coin, ports.ErrNotFound)
	}
	if svc.BaseURL == "" {
		return nil, fmt.Errorf("prediction service for %s has no base URL: %w", coin, ports.ErrConfigurationError)
	}

	u := serviceBase(svc.BaseURL) + "/predict/" + url.PathEscape(svc.Endpoint) +
		"?price=" + url.QueryEscape(strconv.FormatFloat(price, 'f', -1, 64))

	pred, err := c.predict(ctx, u)
	if err != nil {
		metrics.PredictionCalls.WithLabelValues(coin, metrics.OutcomeUpstream).Inc()
		c.logger.Error(ctx, err, "Prediction request failed", map[string]interface{}{"coin": coin, "url": u})
		return nil, err
	}
	metrics.PredictionCalls.WithLabelValues(coin, metrics.OutcomeOK).Inc()

	return &domain.Prediction{Coin: coin, PredictedHigh: pred, ModelName: svc.ModelName}, nil
}

func (c *Client) predict(ctx context.Context, u string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, predictTimeout)
	defer cancel()

	resp, err := c.get(ctx, u)
	if err != nil {
		return 0, fmt.Errorf("call %s: %w: %w", u, ports.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w: %w", u, ports.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("call %s: status %d: %w", u, resp.StatusCode, ports.ErrUpstream)
	}
	return parsePrediction(body)
}

// parsePrediction extracts the forecast from a possibly nested response.
func parsePrediction(body []byte) (float64, error) {
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return 0, fmt.Errorf("response is not a JSON object: %w: %w", ports.ErrUpstream, err)
	}

	data := raw
	if nested, ok := raw["prediction"].(map[string]interface{}); ok {
		data = nested
	}

	for _, key := range predictionKeys {
		v, ok := data[key]
		if !ok {
			continue
		}
		f, err := toFloat(v)
		if err != nil {
			return 0, fmt.Errorf("value under %s is not numeric: %w: %w", key, ports.ErrUpstream, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("expected keys %v not found: %w", predictionKeys, ports.ErrUpstream)
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

// serviceBase trims trailing slashes and a trailing /predict.
func serviceBase(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(strings.ToLower(base), "/predict") {
		base = base[:len(base)-len("/predict")]
	}
	return base
}

// get performs a GET with retries on transport errors and retryable statuses.
// After the last retry the final response is returned as-is.
func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	b := &backoff.Backoff{Min: c.backoffMin, Max: c.backoffMax, Factor: 2}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		retry := attempt < c.maxRetries && ctx.Err() == nil &&
			(err != nil || retryStatuses[resp.StatusCode])
		if !retry {
			return resp, err
		}
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		wait := b.Duration()
		c.logger.Debug(ctx, "Retrying prediction service request", map[string]interface{}{"url": u, "attempt": attempt + 1, "wait": wait.String()})
		select {
		case <-ctx.Done():
			return nil, errors.Join(ctx.Err(), err)
		case <-time.After(wait):
		}
	}
}
