package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/dualbot/internal/adapters/barcache"
	"github.com/alejandrodnm/dualbot/internal/application/sweep"
	"github.com/alejandrodnm/dualbot/internal/backtest"
	"github.com/alejandrodnm/dualbot/internal/domain"
	"github.com/alejandrodnm/dualbot/internal/indicators"
	"github.com/alejandrodnm/dualbot/internal/ports"
	"github.com/alejandrodnm/dualbot/internal/resample"
	"github.com/google/uuid"
)

// Config contiene todo lo necesario para reproducir un backtest exactamente.
type Config struct {
	Symbol         string
	SourceInterval string // intervalo descargado del exchange
	BarInterval    string // intervalo tras resample
	Lookback       time.Duration
	WarmupBars     int // barras iniciales que no se evalúan
	InitialCapital float64
	Params         domain.StrategyParams
	Indicators     indicators.Config
	SweepWorkers   int // 0 = NumCPU
}

// DefaultConfig devuelve la política de referencia: ETH/USDT 1m → 3m, 7 días,
// warm-up 20, capital 10000.
func DefaultConfig() Config {
	return Config{
		Symbol:         "ETH/USDT",
		SourceInterval: "1m",
		BarInterval:    "3m",
		Lookback:       7 * 24 * time.Hour,
		WarmupBars:     20,
		InitialCapital: 10_000,
		Params:         domain.DefaultStrategyParams(),
		Indicators:     indicators.DefaultConfig(),
	}
}

// Dataset son las series ya alineadas que consume el motor.
type Dataset struct {
	Bars       []domain.Bar
	Indicators []domain.IndicatorSnapshot
	From       time.Time
	To         time.Time
}

// Runner orquesta fetch → resample → indicadores → backtest → persistir → notificar.
type Runner struct {
	cfg      Config
	bars     ports.BarProvider
	cache    ports.BarCache   // opcional
	storage  ports.RunStorage // opcional
	notifier ports.Notifier   // opcional
	now      func() time.Time
}

// New crea un Runner con las dependencias inyectadas. cache, storage y
// notifier pueden ser nil.
func New(cfg Config, bars ports.BarProvider, cache ports.BarCache, storage ports.RunStorage, notifier ports.Notifier) *Runner {
	return &Runner{
		cfg:      cfg,
		bars:     bars,
		cache:    cache,
		storage:  storage,
		notifier: notifier,
		now:      time.Now,
	}
}

// SetClock reemplaza el reloj (tests).
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// Run ejecuta un backtest completo y devuelve el registro persistido.
func (r *Runner) Run(ctx context.Context) (domain.RunRecord, error) {
	started := time.Now()

	ds, err := r.Prepare(ctx)
	if err != nil {
		return domain.RunRecord{}, err
	}

	res, err := backtest.RunContext(ctx, ds.Bars, ds.Indicators, r.cfg.WarmupBars, r.cfg.InitialCapital, r.cfg.Params)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("runner.Run: backtest: %w", err)
	}

	run := domain.RunRecord{
		ID:             uuid.New().String(),
		Symbol:         r.cfg.Symbol,
		SourceInterval: r.cfg.SourceInterval,
		BarInterval:    r.cfg.BarInterval,
		LookbackHours:  int(r.cfg.Lookback.Hours()),
		Params:         r.cfg.Params,
		InitialCapital: res.InitialCapital,
		FinalCapital:   res.FinalCapital,
		Stats:          domain.ComputeStats(res),
		Trades:         res.Trades,
		Open:           res.Open,
		Bars:           len(ds.Bars),
		From:           ds.From,
		To:             ds.To,
		CreatedAt:      r.now().UTC(),
	}

	if r.storage != nil {
		if err := r.storage.SaveRun(ctx, run); err != nil {
			slog.Warn("storage error", "err", err, "run_id", run.ID)
		}
	}

	if r.notifier != nil {
		if err := r.notifier.Report(ctx, run); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	slog.Info("backtest complete",
		"run_id", run.ID,
		"symbol", run.Symbol,
		"bars", run.Bars,
		"trades", run.Stats.Trades,
		"final_capital", run.FinalCapital,
		"win_rate", run.Stats.WinRate,
		"duration", time.Since(started).Round(time.Millisecond),
	)
	return run, nil
}

// Sweep prepara las series una sola vez y evalúa todas las combinaciones del grid.
func (r *Runner) Sweep(ctx context.Context, grid sweep.Grid) ([]domain.SweepOutcome, error) {
	ds, err := r.Prepare(ctx)
	if err != nil {
		return nil, err
	}

	combos := grid.Expand(r.cfg.Params)
	slog.Info("starting parameter sweep", "combinations", len(combos), "bars", len(ds.Bars))

	outcomes := sweep.Run(ctx, ds.Bars, ds.Indicators, r.cfg.WarmupBars, r.cfg.InitialCapital, combos, r.cfg.SweepWorkers)
	if err := ctx.Err(); err != nil {
		return outcomes, fmt.Errorf("runner.Sweep: %w", err)
	}
	return outcomes, nil
}

// Prepare descarga (o lee de cache) las velas de la ventana, las agrega al
// intervalo de barra y calcula los indicadores.
func (r *Runner) Prepare(ctx context.Context) (Dataset, error) {
	if err := r.validate(); err != nil {
		return Dataset{}, err
	}

	until := r.now().UTC()
	since := until.Add(-r.cfg.Lookback)

	raw, err := r.loadBars(ctx, since, until)
	if err != nil {
		return Dataset{}, fmt.Errorf("runner.Prepare: fetch bars: %w", err)
	}

	step, _ := resample.ParseInterval(r.cfg.BarInterval)
	bars, err := resample.Resample(raw, step)
	if err != nil {
		return Dataset{}, fmt.Errorf("runner.Prepare: resample: %w", err)
	}
	if len(bars) <= r.cfg.WarmupBars {
		return Dataset{}, fmt.Errorf("runner.Prepare: %w: %d bars after resample, warm-up needs > %d",
			domain.ErrInputAlignment, len(bars), r.cfg.WarmupBars)
	}

	inds, err := indicators.Compute(bars, r.cfg.Indicators)
	if err != nil {
		return Dataset{}, fmt.Errorf("runner.Prepare: indicators: %w", err)
	}

	slog.Debug("dataset ready",
		"raw_bars", len(raw),
		"bars", len(bars),
		"interval", r.cfg.BarInterval,
		"warmup", r.cfg.WarmupBars,
	)
	return Dataset{Bars: bars, Indicators: inds, From: since, To: until}, nil
}

// loadBars usa la cache si cubre la ventana; si no, descarga y actualiza la cache.
func (r *Runner) loadBars(ctx context.Context, since, until time.Time) ([]domain.Bar, error) {
	srcStep, err := resample.ParseInterval(r.cfg.SourceInterval)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		cached, err := r.cache.Load(ctx, r.cfg.Symbol, r.cfg.SourceInterval, since, until)
		if err != nil {
			slog.Warn("bar cache read failed", "err", err)
		} else if barcache.Covers(cached, since, until, srcStep) {
			slog.Info("using cached bars", "symbol", r.cfg.Symbol, "count", len(cached))
			return cached, nil
		}
	}

	slog.Info("fetching bars", "symbol", r.cfg.Symbol, "interval", r.cfg.SourceInterval,
		"since", since.Format(time.RFC3339), "until", until.Format(time.RFC3339))

	bars, err := r.bars.FetchBars(ctx, r.cfg.Symbol, r.cfg.SourceInterval, since, until)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Save(ctx, r.cfg.Symbol, r.cfg.SourceInterval, bars); err != nil {
			slog.Warn("bar cache write failed", "err", err)
		}
	}
	return bars, nil
}

// validate comprueba la configuración antes de hacer I/O.
func (r *Runner) validate() error {
	if _, err := resample.ParseInterval(r.cfg.SourceInterval); err != nil {
		return fmt.Errorf("runner: source interval: %w", err)
	}
	if _, err := resample.ParseInterval(r.cfg.BarInterval); err != nil {
		return fmt.Errorf("runner: bar interval: %w", err)
	}
	if r.cfg.Lookback <= 0 {
		return fmt.Errorf("runner: lookback must be > 0")
	}
	if err := r.cfg.Indicators.Validate(); err != nil {
		return fmt.Errorf("runner: %w", err)
	}
	if need := r.cfg.Indicators.WarmupBars(); r.cfg.WarmupBars < need {
		return fmt.Errorf("runner: warm-up %d < %d bars required by indicator windows",
			r.cfg.WarmupBars, need)
	}
	if err := r.cfg.Params.Validate(); err != nil {
		return fmt.Errorf("runner: %w", err)
	}
	return nil
}
