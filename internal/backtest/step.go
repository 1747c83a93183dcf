package backtest

// step.go: función de transición de la máquina de estados Flat | Long | Short.
//
// En cada barra se ejecuta exactamente una rama:
//   - Flat: evaluar entrada (long primero, luego short).
//   - En posición: actualizar extreme y trailing stop, evaluar salida.
// La barra de entrada no evalúa salida; la barra de salida no evalúa entrada.

import (
	"math"

	"github.com/alejandrodnm/dualbot/internal/domain"
)

// Step avanza el estado una barra. Devuelve el nuevo estado y, si la posición
// se cerró en esta barra, el trade realizado.
// No modifica la Position del estado de entrada.
func Step(state domain.State, i int, bar domain.Bar, ind domain.IndicatorSnapshot, p domain.StrategyParams) (domain.State, *domain.ClosedTrade) {
	if state.Flat() {
		return enter(i, bar, ind, p), nil
	}
	return manage(*state.Position, i, bar, ind, p)
}

// enter evalúa las condiciones de entrada sobre el cierre de la barra.
func enter(i int, bar domain.Bar, ind domain.IndicatorSnapshot, p domain.StrategyParams) domain.State {
	if ind.TrendStrength <= p.ADXThreshold {
		return domain.FlatState()
	}

	atr := ind.Volatility
	price := bar.Close

	switch {
	case ind.Momentum < p.RSIOversold:
		return domain.State{Position: &domain.Position{
			Side:       domain.SideLong,
			EntryPrice: price,
			Extreme:    price,
			Stop:       price - p.StopATRMult*atr,
			Target:     price + p.TargetATRMult*atr,
			EntryIndex: i,
			EntryTime:  bar.Timestamp,
		}}
	case ind.Momentum > p.RSIOverbought:
		return domain.State{Position: &domain.Position{
			Side:       domain.SideShort,
			EntryPrice: price,
			Extreme:    price,
			Stop:       price + p.StopATRMult*atr,
			Target:     price - p.TargetATRMult*atr,
			EntryIndex: i,
			EntryTime:  bar.Timestamp,
		}}
	}
	return domain.FlatState()
}

// manage actualiza el trailing stop y evalúa stop/target.
// Si ambos se tocan en la misma barra gana el stop.
func manage(pos domain.Position, i int, bar domain.Bar, ind domain.IndicatorSnapshot, p domain.StrategyParams) (domain.State, *domain.ClosedTrade) {
	atr := ind.Volatility

	var stopHit, targetHit bool
	if pos.Side == domain.SideLong {
		pos.Extreme = math.Max(pos.Extreme, bar.High)
		pos.Stop = pos.Extreme - p.StopATRMult*atr
		stopHit = bar.Low <= pos.Stop
		targetHit = bar.High >= pos.Target
	} else {
		pos.Extreme = math.Min(pos.Extreme, bar.Low)
		pos.Stop = pos.Extreme + p.StopATRMult*atr
		stopHit = bar.High >= pos.Stop
		targetHit = bar.Low <= pos.Target
	}

	if !stopHit && !targetHit {
		return domain.State{Position: &pos}, nil
	}

	exitPrice, reason := pos.Target, domain.ExitTarget
	if stopHit {
		exitPrice, reason = pos.Stop, domain.ExitStop
	}

	trade := &domain.ClosedTrade{
		Side:       pos.Side,
		EntryIndex: pos.EntryIndex,
		ExitIndex:  i,
		EntryTime:  pos.EntryTime,
		ExitTime:   bar.Timestamp,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Reason:     reason,
		Profit:     pos.Unrealized(exitPrice),
	}
	return domain.FlatState(), trade
}
