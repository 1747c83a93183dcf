package domain

import "math"

// IndicatorSnapshot son los tres indicadores alineados 1:1 con una Bar.
// Un valor indefinido (warm-up) se representa como NaN.
type IndicatorSnapshot struct {
	Momentum      float64 // RSI, 0-100
	TrendStrength float64 // ADX, >= 0
	Volatility    float64 // ATR, mismas unidades que el precio
}

// Defined devuelve true si los tres valores son finitos.
func (s IndicatorSnapshot) Defined() bool {
	return s.UndefinedField() == ""
}

// UndefinedField devuelve el nombre del primer indicador indefinido, o "".
func (s IndicatorSnapshot) UndefinedField() string {
	switch {
	case !finite(s.Momentum):
		return "momentum"
	case !finite(s.TrendStrength):
		return "trend_strength"
	case !finite(s.Volatility):
		return "volatility"
	}
	return ""
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
