package domain

import "math"

// Stats son las métricas agregadas de un backtest.
type Stats struct {
	Trades       int
	Wins         int
	Losses       int
	WinRate      float64 // 0..1; 0 si no hay trades
	NetProfit    float64
	GrossProfit  float64
	GrossLoss    float64 // valor absoluto
	ProfitFactor float64 // GrossProfit / GrossLoss; +Inf si no hubo pérdidas, 0 sin trades
	AvgTrade     float64
	Best         float64
	Worst        float64
	MaxDrawdown  float64 // caída máxima de la curva de capital realizada
}

// ComputeStats calcula las métricas a partir del resultado.
// Un trade con profit > 0 es ganador; profit == 0 no cuenta como pérdida.
// Sin trades devuelve Stats{}; nunca divide por cero.
func ComputeStats(r Result) Stats {
	var s Stats
	s.Trades = len(r.Trades)
	if s.Trades == 0 {
		return s
	}

	s.Best = math.Inf(-1)
	s.Worst = math.Inf(1)
	equity := r.InitialCapital
	peak := equity

	for _, t := range r.Trades {
		p := t.Profit
		s.NetProfit += p
		switch {
		case p > 0:
			s.Wins++
			s.GrossProfit += p
		case p < 0:
			s.Losses++
			s.GrossLoss += -p
		}
		s.Best = math.Max(s.Best, p)
		s.Worst = math.Min(s.Worst, p)

		equity += p
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > s.MaxDrawdown {
			s.MaxDrawdown = dd
		}
	}

	s.WinRate = float64(s.Wins) / float64(s.Trades)
	s.AvgTrade = s.NetProfit / float64(s.Trades)
	switch {
	case s.GrossLoss > 0:
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	case s.GrossProfit > 0:
		s.ProfitFactor = math.Inf(1)
	}
	return s
}
