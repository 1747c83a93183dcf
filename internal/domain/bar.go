package domain

import (
	"fmt"
	"math"
	"time"
)

// Bar es una vela OHLCV a intervalo fijo. Inmutable una vez producida.
type Bar struct {
	Timestamp time.Time // apertura de la vela, UTC
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// ValidateBars verifica que la serie esté ordenada por timestamp estrictamente
// creciente y que todos los precios sean finitos y no negativos.
// Devuelve un error que envuelve ErrInputAlignment en caso contrario.
func ValidateBars(bars []Bar) error {
	for i, b := range bars {
		if !finiteNonNegative(b.Open, b.High, b.Low, b.Close, b.Volume) {
			return fmt.Errorf("%w: bar %d has non-finite or negative fields", ErrInputAlignment, i)
		}
		if i > 0 && !b.Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("%w: bar %d timestamp %s not after %s",
				ErrInputAlignment, i,
				b.Timestamp.Format(time.RFC3339), bars[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

func finiteNonNegative(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}
