package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cryptoInsight/internal/domain"
	"cryptoInsight/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Cache implements ports.BarCache using SQLite.
// Only raw fetched bars are stored, each entry with an expiry; indicators are never persisted.
type Cache struct {
	db     *sql.DB
	logger ports.Logger
	now    func() time.Time
}

// Config holds configuration for the SQLite cache.
type Config struct {
	DBPath string
	Logger ports.Logger
	Now    func() time.Time // Defaults to time.Now
}

// NewCache creates a new SQLite cache instance.
func NewCache(cfg Config) (*Cache, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite cache")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/bar_cache.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite cache initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite cache initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite cache initialization failed")
		return nil, err
	}

	// SQLite serialises writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	c := &Cache{db: db, logger: cfg.Logger, now: now}

	if err := c.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite cache initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite bar cache ready", map[string]interface{}{"path": dbPath})

	return c, nil
}

func (c *Cache) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS cache_entries (
		cache_key TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		stored_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cached_bars (
		cache_key TEXT NOT NULL,
		bar_date INTEGER NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		PRIMARY KEY (cache_key, bar_date)
	);
	CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries (expires_at);
	`
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		c.logger.Info(context.Background(), "Closing SQLite cache connection")
		return c.db.Close()
	}
	return nil
}

// Get returns the cached series for key when its entry has not expired.
func (c *Cache) Get(ctx context.Context, key string) (domain.BarSeries, bool, error) {
	const entryQuery = `SELECT symbol, expires_at FROM cache_entries WHERE cache_key = ?`

	var symbol string
	var expiresAt int64
	err := c.db.QueryRowContext(ctx, entryQuery, key).Scan(&symbol, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BarSeries{}, false, nil
	}
	if err != nil {
		return domain.BarSeries{}, false, fmt.Errorf("failed to query cache entry %s: %w: %w", key, ports.ErrCacheFailure, err)
	}
	if c.now().UnixNano() >= expiresAt {
		return domain.BarSeries{}, false, nil
	}

	const barsQuery = `
	SELECT bar_date, open, high, low, close, volume
	FROM cached_bars
	WHERE cache_key = ?
	ORDER BY bar_date ASC`

	rows, err := c.db.QueryContext(ctx, barsQuery, key)
	if err != nil {
		return domain.BarSeries{}, false, fmt.Errorf("failed to query cached bars %s: %w: %w", key, ports.ErrCacheFailure, err)
	}
	defer rows.Close()

	series := domain.BarSeries{Symbol: symbol, Bars: []domain.Bar{}}
	for rows.Next() {
		var b domain.Bar
		var date int64
		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return domain.BarSeries{}, false, fmt.Errorf("failed to scan cached bar %s: %w: %w", key, ports.ErrCacheFailure, err)
		}
		b.Date = time.Unix(date, 0).UTC()
		series.Bars = append(series.Bars, b)
	}
	if err := rows.Err(); err != nil {
		return domain.BarSeries{}, false, fmt.Errorf("error iterating cached bars %s: %w: %w", key, ports.ErrCacheFailure, err)
	}
	return series, true, nil
}

// Set replaces the entry for key in a single transaction.
func (c *Cache) Set(ctx context.Context, key string, series domain.BarSeries, ttl time.Duration) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w: %w", ports.ErrCacheFailure, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cached_bars WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("failed to clear cached bars %s: %w: %w", key, ports.ErrCacheFailure, err)
	}

	now := c.now()
	const upsert = `
	INSERT INTO cache_entries (cache_key, symbol, stored_at, expires_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(cache_key) DO UPDATE SET symbol = excluded.symbol, stored_at = excluded.stored_at, expires_at = excluded.expires_at`
	if _, err := tx.ExecContext(ctx, upsert, key, series.Symbol, now.UnixNano(), now.Add(ttl).UnixNano()); err != nil {
		return fmt.Errorf("failed to upsert cache entry %s: %w: %w", key, ports.ErrCacheFailure, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO cached_bars (cache_key, bar_date, open, high, low, close, volume)
	VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare bar insert: %w: %w", ports.ErrCacheFailure, err)
	}
	defer stmt.Close()

	for _, b := range series.Bars {
		if _, err := stmt.ExecContext(ctx, key, b.Date.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("failed to insert cached bar %s: %w: %w", key, ports.ErrCacheFailure, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache entry %s: %w: %w", key, ports.ErrCacheFailure, err)
	}
	c.logger.Debug(ctx, "Bar series cached", map[string]interface{}{"key": key, "bars": len(series.Bars), "ttl": ttl.String()})
	return nil
}

// PurgeExpired deletes expired entries and their bars, returning the number of entries removed.
func (c *Cache) PurgeExpired(ctx context.Context) (int64, error) {
	now := c.now().UnixNano()
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin purge transaction: %w: %w", ports.ErrCacheFailure, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
	DELETE FROM cached_bars WHERE cache_key IN (SELECT cache_key FROM cache_entries WHERE expires_at <= ?)`, now); err != nil {
		return 0, fmt.Errorf("failed to purge cached bars: %w: %w", ports.ErrCacheFailure, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache entries: %w: %w", ports.ErrCacheFailure, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for purge: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit purge: %w: %w", ports.ErrCacheFailure, err)
	}
	return n, nil
}
