package barcache

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/dualbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func bars(n int, price float64) []domain.Bar {
	out := make([]domain.Bar, n)
	for i := range out {
		p := price + float64(i)
		out[i] = domain.Bar{Timestamp: t0.Add(time.Duration(i) * time.Minute), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 3}
	}
	return out
}

func TestParquetCache_MissReturnsNil(t *testing.T) {
	c := NewParquetCache(t.TempDir())
	got, err := c.Load(context.Background(), "ETH/USDT", "1m", t0, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParquetCache_RoundTripAndRange(t *testing.T) {
	ctx := context.Background()
	c := NewParquetCache(t.TempDir())

	require.NoError(t, c.Save(ctx, "ETH/USDT", "1m", bars(10, 100)))

	got, err := c.Load(ctx, "ETHUSDT", "1m", t0.Add(2*time.Minute), t0.Add(5*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, t0.Add(2*time.Minute), got[0].Timestamp)
	assert.InDelta(t, 102.0, got[0].Close, 1e-9)
	assert.InDelta(t, 3.0, got[0].Volume, 1e-9)
}

func TestParquetCache_SaveMergesAndOverwrites(t *testing.T) {
	ctx := context.Background()
	c := NewParquetCache(t.TempDir())

	require.NoError(t, c.Save(ctx, "ETHUSDT", "1m", bars(5, 100)))
	// solapa minutos 3..7 con precios distintos
	later := bars(8, 200)[3:]
	require.NoError(t, c.Save(ctx, "ETHUSDT", "1m", later))

	got, err := c.Load(ctx, "ETHUSDT", "1m", t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 8)
	assert.InDelta(t, 102.0, got[2].Close, 1e-9)
	assert.InDelta(t, 203.0, got[3].Close, 1e-9)
	assert.NoError(t, domain.ValidateBars(got))
}

func TestCovers(t *testing.T) {
	b := bars(60, 1)
	assert.True(t, Covers(b, t0, t0.Add(59*time.Minute), time.Minute))
	assert.False(t, Covers(b, t0.Add(-time.Hour), t0.Add(59*time.Minute), time.Minute))
	assert.False(t, Covers(b, t0, t0.Add(2*time.Hour), time.Minute))
	assert.False(t, Covers(nil, t0, t0, time.Minute))
}

func TestCovers_RejectsHoles(t *testing.T) {
	b := bars(60, 1)
	holed := append(append([]domain.Bar{}, b[:20]...), b[40:]...)
	require.Len(t, holed, 40)

	// mismos extremos que la serie completa, pero faltan 20 minutos en medio
	assert.False(t, Covers(holed, t0, t0.Add(59*time.Minute), time.Minute))
	assert.True(t, Covers(holed[:20], t0, t0.Add(19*time.Minute), time.Minute))
}
