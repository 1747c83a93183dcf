// Package resample agrega velas a un intervalo más grueso.
package resample

import (
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/dualbot/internal/domain"
)

var intervals = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// ParseInterval convierte un intervalo estilo Binance ("3m", "1h") a Duration.
func ParseInterval(s string) (time.Duration, error) {
	d, ok := intervals[s]
	if !ok {
		return 0, fmt.Errorf("resample.ParseInterval: unsupported interval %q", s)
	}
	return d, nil
}

// Resample agrupa las barras en buckets alineados a epoch de tamaño interval:
// open=primero, high=máximo, low=mínimo, close=último, volume=suma.
// Los buckets vacíos no se emiten. bars debe estar ordenado por timestamp.
func Resample(bars []domain.Bar, interval time.Duration) ([]domain.Bar, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("resample.Resample: interval must be > 0, got %s", interval)
	}

	out := make([]domain.Bar, 0, len(bars)/max(1, int(interval/time.Minute))+1)
	var cur domain.Bar
	open := false

	for i, b := range bars {
		if i > 0 && b.Timestamp.Before(bars[i-1].Timestamp) {
			return nil, fmt.Errorf("resample.Resample: %w: bar %d out of order", domain.ErrInputAlignment, i)
		}

		bucket := b.Timestamp.UTC().Truncate(interval)
		if open && bucket.Equal(cur.Timestamp) {
			cur.High = math.Max(cur.High, b.High)
			cur.Low = math.Min(cur.Low, b.Low)
			cur.Close = b.Close
			cur.Volume += b.Volume
			continue
		}

		if open {
			out = append(out, cur)
		}
		cur = domain.Bar{
			Timestamp: bucket,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
		open = true
	}
	if open {
		out = append(out, cur)
	}
	return out, nil
}
