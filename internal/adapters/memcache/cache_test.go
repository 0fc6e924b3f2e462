package memcache

import (
	"context"
	"testing"
	"time"

	"cryptoInsight/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Expiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := New(func() time.Time { return now })
	ctx := context.Background()
	series := domain.BarSeries{Symbol: "ETH", Bars: []domain.Bar{{Date: now, Close: 3000}}}

	_, ok, err := c.Get(ctx, "bars:ETH:30")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "bars:ETH:30", series, 10*time.Minute))

	got, ok, err := c.Get(ctx, "bars:ETH:30")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, series, got)

	now = now.Add(10 * time.Minute)
	_, ok, err = c.Get(ctx, "bars:ETH:30")
	require.NoError(t, err)
	assert.False(t, ok, "entries expire exactly at their TTL")

	n, err := c.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
