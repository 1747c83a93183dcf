package domain

import "fmt"

// StrategyParams son los cinco parámetros de la regla RSI/ADX/ATR.
type StrategyParams struct {
	ADXThreshold  float64 `yaml:"adx_threshold"`   // entrada solo si ADX > umbral
	RSIOversold   float64 `yaml:"rsi_oversold"`    // long si RSI < oversold
	RSIOverbought float64 `yaml:"rsi_overbought"`  // short si RSI > overbought
	StopATRMult   float64 `yaml:"stop_atr_mult"`   // distancia del trailing stop en ATRs
	TargetATRMult float64 `yaml:"target_atr_mult"` // distancia del take-profit en ATRs
}

// DefaultStrategyParams devuelve la política de referencia: 20 / 30 / 70 / 2.0 / 2.5.
func DefaultStrategyParams() StrategyParams {
	return StrategyParams{
		ADXThreshold:  20,
		RSIOversold:   30,
		RSIOverbought: 70,
		StopATRMult:   2.0,
		TargetATRMult: 2.5,
	}
}

// Validate comprueba que los parámetros sean coherentes.
func (p StrategyParams) Validate() error {
	switch {
	case p.ADXThreshold < 0:
		return fmt.Errorf("%w: adx_threshold %.2f < 0", ErrInvalidParams, p.ADXThreshold)
	case p.RSIOversold < 0 || p.RSIOversold > 100:
		return fmt.Errorf("%w: rsi_oversold %.2f outside [0,100]", ErrInvalidParams, p.RSIOversold)
	case p.RSIOverbought < 0 || p.RSIOverbought > 100:
		return fmt.Errorf("%w: rsi_overbought %.2f outside [0,100]", ErrInvalidParams, p.RSIOverbought)
	case p.RSIOversold >= p.RSIOverbought:
		return fmt.Errorf("%w: rsi_oversold %.2f >= rsi_overbought %.2f",
			ErrInvalidParams, p.RSIOversold, p.RSIOverbought)
	case p.StopATRMult <= 0:
		return fmt.Errorf("%w: stop_atr_mult %.2f <= 0", ErrInvalidParams, p.StopATRMult)
	case p.TargetATRMult <= 0:
		return fmt.Errorf("%w: target_atr_mult %.2f <= 0", ErrInvalidParams, p.TargetATRMult)
	}
	return nil
}

// String devuelve una forma compacta para logs y tablas.
func (p StrategyParams) String() string {
	return fmt.Sprintf("adx>%.0f rsi<%.0f/>%.0f stop%.2gx tp%.2gx",
		p.ADXThreshold, p.RSIOversold, p.RSIOverbought, p.StopATRMult, p.TargetATRMult)
}
