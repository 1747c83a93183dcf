package runner

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/dualbot/internal/application/sweep"
	"github.com/alejandrodnm/dualbot/internal/domain"
	"github.com/alejandrodnm/dualbot/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	bars  []domain.Bar
	err   error
	calls int
}

func (f *fakeProvider) FetchBars(_ context.Context, _, _ string, since, until time.Time) ([]domain.Bar, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Bar
	for _, b := range f.bars {
		if !b.Timestamp.Before(since) && !b.Timestamp.After(until) {
			out = append(out, b)
		}
	}
	return out, nil
}

type memCache struct {
	mu    sync.Mutex
	bars  []domain.Bar
	saves int
}

func (c *memCache) Load(_ context.Context, _, _ string, from, to time.Time) ([]domain.Bar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Bar
	for _, b := range c.bars {
		if !b.Timestamp.Before(from) && !b.Timestamp.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (c *memCache) Save(_ context.Context, _, _ string, bars []domain.Bar) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bars = append([]domain.Bar(nil), bars...)
	c.saves++
	return nil
}

type memStorage struct {
	runs []domain.RunRecord
	err  error
}

func (s *memStorage) SaveRun(_ context.Context, run domain.RunRecord) error {
	if s.err != nil {
		return s.err
	}
	s.runs = append(s.runs, run)
	return nil
}

func (s *memStorage) GetRuns(context.Context, string, int) ([]domain.RunRecord, error) {
	return s.runs, nil
}

func (s *memStorage) GetTrades(context.Context, string) ([]domain.ClosedTrade, error) {
	return nil, nil
}

func (s *memStorage) Close() error { return nil }

type recordingNotifier struct {
	runs []domain.RunRecord
}

func (n *recordingNotifier) Report(_ context.Context, run domain.RunRecord) error {
	n.runs = append(n.runs, run)
	return nil
}

// minuteBars genera velas de 1m que terminan en now con una onda que
// produce cruces de RSI y tendencia suficiente para abrir trades.
func minuteBars(hours int) []domain.Bar {
	n := hours * 60
	start := now.Add(-time.Duration(hours) * time.Hour)
	bars := make([]domain.Bar, n+1)
	for i := range bars {
		mid := 1800 + 40*math.Sin(float64(i)/45) + 0.05*float64(i)
		bars[i] = domain.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      mid - 0.5,
			High:      mid + 1.5,
			Low:       mid - 1.5,
			Close:     mid + 0.5*math.Sin(float64(i)),
			Volume:    10,
		}
	}
	return bars
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Lookback = 24 * time.Hour
	return cfg
}

// newTestRunner evita pasar punteros nil como interfaces no-nil.
func newTestRunner(cfg Config, p *fakeProvider, c *memCache, s *memStorage, n *recordingNotifier) *Runner {
	var (
		cache    ports.BarCache
		storage  ports.RunStorage
		notifier ports.Notifier
	)
	if c != nil {
		cache = c
	}
	if s != nil {
		storage = s
	}
	if n != nil {
		notifier = n
	}
	r := New(cfg, p, cache, storage, notifier)
	r.SetClock(func() time.Time { return now })
	return r
}

func TestRunner_RunPersistsAndReports(t *testing.T) {
	p := &fakeProvider{bars: minuteBars(24)}
	s := &memStorage{}
	n := &recordingNotifier{}
	r := newTestRunner(testConfig(), p, &memCache{}, s, n)

	run, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "ETH/USDT", run.Symbol)
	assert.Equal(t, 24, run.LookbackHours)
	assert.Equal(t, 481, run.Bars, "24h de 1m agregado a 3m")
	assert.Equal(t, now, run.CreatedAt)
	assert.Equal(t, len(run.Trades), run.Stats.Trades)

	sum := run.InitialCapital
	for _, tr := range run.Trades {
		sum += tr.Profit
	}
	assert.InDelta(t, sum, run.FinalCapital, 1e-9)

	require.Len(t, s.runs, 1)
	assert.Equal(t, run.ID, s.runs[0].ID)
	require.Len(t, n.runs, 1)
	assert.Equal(t, run.ID, n.runs[0].ID)
}

func TestRunner_UsesCacheWhenItCoversWindow(t *testing.T) {
	p := &fakeProvider{bars: minuteBars(24)}
	c := &memCache{}
	r := newTestRunner(testConfig(), p, c, nil, nil)

	first, err := r.Prepare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, 1, c.saves)

	second, err := r.Prepare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls, "second prepare must be served by the cache")
	assert.Equal(t, first.Bars, second.Bars)
}

func TestRunner_FetchesWhenCacheIsStale(t *testing.T) {
	p := &fakeProvider{bars: minuteBars(24)}
	// cache con solo la primera hora
	c := &memCache{bars: minuteBars(24)[:60]}
	r := newTestRunner(testConfig(), p, c, nil, nil)

	_, err := r.Prepare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestRunner_IndicatorsAlignedWithBars(t *testing.T) {
	r := newTestRunner(testConfig(), &fakeProvider{bars: minuteBars(24)}, nil, nil, nil)

	ds, err := r.Prepare(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Indicators, len(ds.Bars))
	for i := r.cfg.WarmupBars; i < len(ds.Bars); i++ {
		assert.True(t, ds.Indicators[i].Defined(), "bar %d", i)
	}
}

func TestRunner_ProviderError(t *testing.T) {
	boom := errors.New("exchange down")
	r := newTestRunner(testConfig(), &fakeProvider{err: boom}, nil, nil, nil)

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fetch bars")
}

func TestRunner_StorageErrorIsNotFatal(t *testing.T) {
	s := &memStorage{err: errors.New("disk full")}
	n := &recordingNotifier{}
	r := newTestRunner(testConfig(), &fakeProvider{bars: minuteBars(24)}, nil, s, n)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, n.runs, 1)
}

func TestRunner_TooFewBars(t *testing.T) {
	r := newTestRunner(testConfig(), &fakeProvider{bars: minuteBars(24)[:30]}, nil, nil, nil)

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrInputAlignment)
}

func TestRunner_InvalidConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"bad interval":    func(c *Config) { c.BarInterval = "7m" },
		"short warm-up":   func(c *Config) { c.WarmupBars = 5 },
		"zero lookback":   func(c *Config) { c.Lookback = 0 },
		"invalid params":  func(c *Config) { c.Params.StopATRMult = 0 },
		"invalid windows": func(c *Config) { c.Indicators.RSIWindow = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			p := &fakeProvider{bars: minuteBars(24)}
			_, err := newTestRunner(cfg, p, nil, nil, nil).Run(context.Background())
			assert.Error(t, err)
			assert.Zero(t, p.calls, "no I/O on invalid config")
		})
	}
}

func TestRunner_Sweep(t *testing.T) {
	p := &fakeProvider{bars: minuteBars(24)}
	r := newTestRunner(testConfig(), p, nil, nil, nil)

	grid := sweep.Grid{ADXThreshold: []float64{15, 20, 25}, StopATRMult: []float64{1, 1.5}}
	out, err := r.Sweep(context.Background(), grid)
	require.NoError(t, err)
	require.Len(t, out, 6)
	assert.Equal(t, 1, p.calls, "data is prepared once for the whole grid")
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].FinalCapital, out[i].FinalCapital)
	}
}
