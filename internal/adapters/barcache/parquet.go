// Package barcache guarda velas descargadas en ficheros Parquet locales:
//
//	<dir>/<SYMBOL>/<interval>.parquet
package barcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/alejandrodnm/dualbot/internal/adapters/binance"
	"github.com/alejandrodnm/dualbot/internal/domain"
	"github.com/alejandrodnm/dualbot/internal/ports"
)

var _ ports.BarCache = (*ParquetCache)(nil)

// barRecord es el schema on-disk de una vela.
type barRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// ParquetCache implementa ports.BarCache sobre un directorio local.
type ParquetCache struct {
	dir string
}

// NewParquetCache crea una cache en dir. El directorio se crea al primer Save.
func NewParquetCache(dir string) *ParquetCache {
	return &ParquetCache{dir: dir}
}

// Load devuelve las velas cacheadas cuyo timestamp está en [from, to].
// Si no hay fichero devuelve nil, nil.
func (c *ParquetCache) Load(_ context.Context, symbol, interval string, from, to time.Time) ([]domain.Bar, error) {
	records, err := c.read(symbol, interval)
	if err != nil {
		return nil, fmt.Errorf("barcache.Load: %w", err)
	}

	lo, hi := from.UnixMilli(), to.UnixMilli()
	var bars []domain.Bar
	for _, r := range records {
		if r.Timestamp < lo || r.Timestamp > hi {
			continue
		}
		bars = append(bars, domain.Bar{
			Timestamp: time.UnixMilli(r.Timestamp).UTC(),
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
		})
	}
	return bars, nil
}

// Save mezcla bars con el fichero existente. Las velas nuevas reemplazan a las
// cacheadas con el mismo timestamp.
func (c *ParquetCache) Save(_ context.Context, symbol, interval string, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	existing, err := c.read(symbol, interval)
	if err != nil {
		return fmt.Errorf("barcache.Save: %w", err)
	}

	incoming := make([]barRecord, len(bars))
	for i, b := range bars {
		incoming[i] = barRecord{
			Timestamp: b.Timestamp.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}

	path := c.path(symbol, interval)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("barcache.Save: mkdir: %w", err)
	}
	if err := parquet.WriteFile(path, mergeRecords(existing, incoming)); err != nil {
		return fmt.Errorf("barcache.Save: write %q: %w", path, err)
	}
	return nil
}

// Covers devuelve true si bars cubre [from, to] con tolerancia de un intervalo
// en cada extremo y sin huecos: dos barras consecutivas nunca distan más de
// step. Un hueco real del exchange fuerza un refetch, que es lo aceptable.
func Covers(bars []domain.Bar, from, to time.Time, step time.Duration) bool {
	if len(bars) == 0 {
		return false
	}
	first, last := bars[0].Timestamp, bars[len(bars)-1].Timestamp
	if first.After(from.Add(step)) || last.Before(to.Add(-step)) {
		return false
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].Timestamp.Sub(bars[i-1].Timestamp) > step {
			return false
		}
	}
	return true
}

func (c *ParquetCache) read(symbol, interval string) ([]barRecord, error) {
	path := c.path(symbol, interval)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	rows, err := parquet.ReadFile[barRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	return rows, nil
}

func (c *ParquetCache) path(symbol, interval string) string {
	return filepath.Join(c.dir, binance.NormalizeSymbol(symbol), interval+".parquet")
}

// mergeRecords deduplica por timestamp prefiriendo incoming, ordenado asc.
func mergeRecords(existing, incoming []barRecord) []barRecord {
	seen := make(map[int64]barRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]barRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
