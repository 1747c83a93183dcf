package sweep

// sweep.go: worker pool para evaluar muchas combinaciones de parámetros.
//
// Cada combinación es una llamada independiente a backtest.RunContext sobre
// las mismas series (solo lectura); el motor sigue siendo secuencial por run.

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/alejandrodnm/dualbot/internal/backtest"
	"github.com/alejandrodnm/dualbot/internal/domain"
)

// Run evalúa todas las combinaciones en paralelo y devuelve los resultados
// ordenados por capital final desc (empates por índice de expansión).
// Si workers <= 0 usa runtime.NumCPU().
func Run(
	ctx context.Context,
	bars []domain.Bar,
	indicators []domain.IndicatorSnapshot,
	start int,
	initialCapital float64,
	params []domain.StrategyParams,
	workers int,
) []domain.SweepOutcome {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type work struct {
		idx    int
		params domain.StrategyParams
	}

	workCh := make(chan work, len(params))
	resultCh := make(chan domain.SweepOutcome, len(params))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				out := domain.SweepOutcome{Index: w.idx, Params: w.params}
				res, err := backtest.RunContext(ctx, bars, indicators, start, initialCapital, w.params)
				if err != nil {
					slog.Debug("sweep run failed", "params", w.params.String(), "err", err)
					out.Err = err
				} else {
					out.FinalCapital = res.FinalCapital
					out.Stats = domain.ComputeStats(res)
					out.Open = res.Open != nil
				}
				resultCh <- out
			}
		}()
	}

	for i, p := range params {
		workCh <- work{idx: i, params: p}
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	outcomes := make([]domain.SweepOutcome, 0, len(params))
	for o := range resultCh {
		outcomes = append(outcomes, o)
	}

	Rank(outcomes)

	slog.Debug("sweep complete",
		"combinations", len(params),
		"workers", workers,
	)
	return outcomes
}

// Rank ordena in-place: primero los runs sin error por capital final desc,
// después los fallidos; empates por Index.
func Rank(outcomes []domain.SweepOutcome) {
	sort.SliceStable(outcomes, func(i, j int) bool {
		a, b := outcomes[i], outcomes[j]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		if a.FinalCapital != b.FinalCapital {
			return a.FinalCapital > b.FinalCapital
		}
		return a.Index < b.Index
	})
}
