package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cryptoInsight/internal/domain"
	"cryptoInsight/internal/ports"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cryptoinsight:"

// Cache implements ports.BarCache on Redis, relying on key TTLs for expiry.
type Cache struct {
	client *redis.Client
	logger ports.Logger
}

// Config holds connection settings for the Redis cache.
type Config struct {
	Addr     string
	Password string
	DB       int
	Logger   ports.Logger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Redis cache")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w: %w", cfg.Addr, ports.ErrCacheFailure, err)
	}
	cfg.Logger.Info(ctx, "Redis bar cache connected", map[string]interface{}{"addr": cfg.Addr})
	return &Cache{client: client, logger: cfg.Logger}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Get returns the series stored under key; a missing key is a miss.
func (c *Cache) Get(ctx context.Context, key string) (domain.BarSeries, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.BarSeries{}, false, nil
	}
	if err != nil {
		return domain.BarSeries{}, false, fmt.Errorf("redis get %s: %w: %w", key, ports.ErrCacheFailure, err)
	}
	series, err := decode(data)
	if err != nil {
		return domain.BarSeries{}, false, fmt.Errorf("redis decode %s: %w: %w", key, ports.ErrCacheFailure, err)
	}
	return series, true, nil
}

// Set stores series under key with ttl.
func (c *Cache) Set(ctx context.Context, key string, series domain.BarSeries, ttl time.Duration) error {
	data, err := encode(series)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w: %w", key, ports.ErrCacheFailure, err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w: %w", key, ports.ErrCacheFailure, err)
	}
	return nil
}

type wireBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type wireSeries struct {
	Symbol string    `json:"symbol"`
	Bars   []wireBar `json:"bars"`
}

const dateLayout = "2006-01-02"

func encode(series domain.BarSeries) ([]byte, error) {
	w := wireSeries{Symbol: series.Symbol, Bars: make([]wireBar, len(series.Bars))}
	for i, b := range series.Bars {
		w.Bars[i] = wireBar{Date: b.Date.Format(dateLayout), Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
	}
	return json.Marshal(w)
}

func decode(data []byte) (domain.BarSeries, error) {
	var w wireSeries
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.BarSeries{}, err
	}
	bars := make([]domain.Bar, len(w.Bars))
	for i, b := range w.Bars {
		d, err := time.Parse(dateLayout, b.Date)
		if err != nil {
			return domain.BarSeries{}, fmt.Errorf("bar %d date %q: %w", i, b.Date, err)
		}
		bars[i] = domain.Bar{Date: d, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
	}
	return domain.BarSeries{Symbol: w.Symbol, Bars: bars}, nil
}
