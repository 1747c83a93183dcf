package backtest

// engine.go: itera Step sobre la serie alineada de barras e indicadores.
//
// Precondiciones (fallan antes de evaluar ninguna barra):
//   - len(bars) == len(indicators)
//   - timestamps estrictamente crecientes, precios finitos
//   - 0 <= start <= len(bars)
//   - indicadores definidos desde start hasta el final
//
// Los parámetros no se validan aquí: son valores tal cual (config.Parse y
// sweep.Expand filtran combinaciones incoherentes).
//
// Una posición abierta en la última barra no se cierra: queda en Result.Open
// y su P&L no realizado no entra en el capital.

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/dualbot/internal/domain"
)

// cancelCheckEvery es cada cuántas barras RunContext consulta el contexto.
const cancelCheckEvery = 1024

// Run ejecuta el backtest desde el índice start.
func Run(
	bars []domain.Bar,
	indicators []domain.IndicatorSnapshot,
	start int,
	initialCapital float64,
	params domain.StrategyParams,
) (domain.Result, error) {
	return RunContext(context.Background(), bars, indicators, start, initialCapital, params)
}

// RunContext es Run con cancelación. Si ctx se cancela a mitad de la serie
// devuelve el resultado parcial (Partial=true) junto con ctx.Err().
func RunContext(
	ctx context.Context,
	bars []domain.Bar,
	indicators []domain.IndicatorSnapshot,
	start int,
	initialCapital float64,
	params domain.StrategyParams,
) (domain.Result, error) {
	if err := validate(bars, indicators, start); err != nil {
		return domain.Result{}, err
	}

	res := domain.Result{
		InitialCapital: initialCapital,
		FinalCapital:   initialCapital,
		Trades:         []domain.ClosedTrade{},
	}

	state := domain.FlatState()
	for i := start; i < len(bars); i++ {
		if (i-start)%cancelCheckEvery == 0 && ctx.Err() != nil {
			res.Partial = true
			res.Open = state.Position
			return res, ctx.Err()
		}

		var closed *domain.ClosedTrade
		state, closed = Step(state, i, bars[i], indicators[i], params)
		if closed != nil {
			res.Trades = append(res.Trades, *closed)
			res.FinalCapital += closed.Profit
		}
		res.BarsEvaluated++
	}

	res.Open = state.Position
	return res, nil
}

func validate(bars []domain.Bar, indicators []domain.IndicatorSnapshot, start int) error {
	if len(bars) != len(indicators) {
		return fmt.Errorf("backtest.Run: %w: %d bars vs %d indicator snapshots",
			domain.ErrInputAlignment, len(bars), len(indicators))
	}
	if start < 0 || start > len(bars) {
		return fmt.Errorf("backtest.Run: %w: start index %d outside [0,%d]",
			domain.ErrInputAlignment, start, len(bars))
	}
	if err := domain.ValidateBars(bars); err != nil {
		return fmt.Errorf("backtest.Run: %w", err)
	}
	for i := start; i < len(indicators); i++ {
		if field := indicators[i].UndefinedField(); field != "" {
			return fmt.Errorf("backtest.Run: %w", &domain.UndefinedIndicatorError{Index: i, Field: field})
		}
	}
	return nil
}
