package sweep

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/dualbot/internal/backtest"
	"github.com/alejandrodnm/dualbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(n int) ([]domain.Bar, []domain.IndicatorSnapshot) {
	t0 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, n)
	inds := make([]domain.IndicatorSnapshot, n)
	for i := range bars {
		mid := 200 + 15*math.Sin(float64(i)/9)
		bars[i] = domain.Bar{
			Timestamp: t0.Add(time.Duration(i) * 3 * time.Minute),
			Open:      mid, High: mid + 2, Low: mid - 2, Close: mid + math.Sin(float64(i)), Volume: 1,
		}
		inds[i] = domain.IndicatorSnapshot{
			Momentum:      50 + 40*math.Sin(float64(i)/4),
			TrendStrength: 25 + 10*math.Sin(float64(i)/6),
			Volatility:    1 + 0.5*math.Cos(float64(i)/5),
		}
	}
	return bars, inds
}

func TestGrid_ExpandCartesianAndSkipsInvalid(t *testing.T) {
	g := Grid{
		ADXThreshold:  []float64{15, 25},
		RSIOversold:   []float64{30, 80},
		RSIOverbought: []float64{70},
		StopATRMult:   []float64{1.5, 2},
	}
	combos := g.Expand(domain.DefaultStrategyParams())

	// oversold 80 >= overbought 70 se descarta → 2 × 1 × 1 × 2
	require.Len(t, combos, 4)
	assert.Equal(t, 15.0, combos[0].ADXThreshold)
	assert.Equal(t, 1.5, combos[0].StopATRMult)
	assert.Equal(t, 2.0, combos[1].StopATRMult)
	assert.Equal(t, 25.0, combos[2].ADXThreshold)
	for _, c := range combos {
		assert.Equal(t, 2.5, c.TargetATRMult, "empty list uses base value")
	}
}

func TestGrid_EmptyIsBase(t *testing.T) {
	base := domain.DefaultStrategyParams()
	assert.Equal(t, []domain.StrategyParams{base}, Grid{}.Expand(base))
}

func TestRun_MatchesSequentialAndIsRanked(t *testing.T) {
	bars, inds := series(800)
	combos := Grid{
		ADXThreshold:  []float64{15, 20, 25},
		StopATRMult:   []float64{1, 2, 3},
		TargetATRMult: []float64{1.5, 2.5},
	}.Expand(domain.DefaultStrategyParams())

	outcomes := Run(context.Background(), bars, inds, 20, 10_000, combos, 4)
	require.Len(t, outcomes, len(combos))

	for i, o := range outcomes {
		require.NoError(t, o.Err)
		want, err := backtest.Run(bars, inds, 20, 10_000, o.Params)
		require.NoError(t, err)
		assert.Equal(t, want.FinalCapital, o.FinalCapital)
		assert.Equal(t, len(want.Trades), o.Stats.Trades)
		if i > 0 {
			assert.GreaterOrEqual(t, outcomes[i-1].FinalCapital, o.FinalCapital)
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	bars, inds := series(400)
	combos := Grid{ADXThreshold: []float64{10, 20, 30}, StopATRMult: []float64{1, 2}}.Expand(domain.DefaultStrategyParams())

	a := Run(context.Background(), bars, inds, 20, 1_000, combos, 3)
	b := Run(context.Background(), bars, inds, 20, 1_000, combos, 1)
	assert.Equal(t, a, b)
}

func TestRank_ErrorsLast(t *testing.T) {
	outs := []domain.SweepOutcome{
		{Index: 0, Err: errors.New("boom")},
		{Index: 1, FinalCapital: 5},
		{Index: 2, FinalCapital: 7},
		{Index: 3, FinalCapital: 5},
	}
	Rank(outs)
	assert.Equal(t, []int{2, 1, 3, 0}, []int{outs[0].Index, outs[1].Index, outs[2].Index, outs[3].Index})
}

func TestRun_PropagatesPreconditionErrors(t *testing.T) {
	bars, inds := series(50)
	outs := Run(context.Background(), bars, inds[:49], 20, 0, []domain.StrategyParams{domain.DefaultStrategyParams()}, 0)
	require.Len(t, outs, 1)
	assert.ErrorIs(t, outs[0].Err, domain.ErrInputAlignment)
}
