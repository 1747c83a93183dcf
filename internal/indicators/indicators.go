// Package indicators calcula RSI, ADX y ATR sobre una serie de barras usando
// go-talib. TA-Lib rellena con ceros las primeras posiciones de cada serie
// (el lookback del indicador); aquí esas posiciones se devuelven como NaN
// para que el motor pueda distinguir warm-up de un valor real.
//
// El suavizado es el de Wilder con la semilla de TA-Lib (media simple de los
// primeros period valores). La librería ta de Python arranca la misma
// recursión desde la barra 0; la diferencia decae como ((w-1)/w)^k y por
// debajo de 0.05 puntos a partir de ~80 barras con ventana 10.
package indicators

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"github.com/alejandrodnm/dualbot/internal/domain"
)

var nan = math.NaN()

// Config son las ventanas de los tres indicadores.
type Config struct {
	RSIWindow int `yaml:"rsi_window"`
	ADXWindow int `yaml:"adx_window"`
	ATRWindow int `yaml:"atr_window"`
}

// DefaultConfig devuelve las ventanas de referencia: RSI 10, ADX 10, ATR 5.
func DefaultConfig() Config {
	return Config{RSIWindow: 10, ADXWindow: 10, ATRWindow: 5}
}

// Validate rechaza ventanas menores que 2 (TA-Lib no define RSI/ADX con 1).
func (c Config) Validate() error {
	if c.RSIWindow < 2 || c.ADXWindow < 2 || c.ATRWindow < 2 {
		return fmt.Errorf("indicators: windows must be >= 2 (rsi=%d adx=%d atr=%d)",
			c.RSIWindow, c.ADXWindow, c.ATRWindow)
	}
	return nil
}

// Lookbacks de TA-Lib: índice del primer valor definido.
func rsiLookback(period int) int { return period }
func atrLookback(period int) int { return period }
func adxLookback(period int) int { return 2*period - 1 }

// WarmupBars devuelve el primer índice en el que los tres indicadores están
// definidos (suponiendo serie suficientemente larga).
func (c Config) WarmupBars() int {
	return max(rsiLookback(c.RSIWindow), adxLookback(c.ADXWindow), atrLookback(c.ATRWindow))
}

// Compute calcula los tres indicadores alineados 1:1 con bars.
func Compute(bars []domain.Bar, cfg Config) ([]domain.IndicatorSnapshot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rsi := RSI(bars, cfg.RSIWindow)
	adx := ADX(bars, cfg.ADXWindow)
	atr := ATR(bars, cfg.ATRWindow)

	out := make([]domain.IndicatorSnapshot, len(bars))
	for i := range bars {
		out[i] = domain.IndicatorSnapshot{
			Momentum:      rsi[i],
			TrendStrength: adx[i],
			Volatility:    atr[i],
		}
	}
	return out, nil
}

// RSI calcula el Relative Strength Index sobre los cierres.
// Primer valor definido en el índice period.
func RSI(bars []domain.Bar, period int) []float64 {
	return masked(len(bars), rsiLookback(period), func() []float64 {
		_, _, closes := columns(bars)
		return talib.Rsi(closes, period)
	})
}

// ATR calcula el Average True Range. Primer valor definido en el índice period.
func ATR(bars []domain.Bar, period int) []float64 {
	return masked(len(bars), atrLookback(period), func() []float64 {
		highs, lows, closes := columns(bars)
		return talib.Atr(highs, lows, closes, period)
	})
}

// ADX calcula el Average Directional Index. Primer valor definido en 2·period−1.
func ADX(bars []domain.Bar, period int) []float64 {
	return masked(len(bars), adxLookback(period), func() []float64 {
		highs, lows, closes := columns(bars)
		return talib.Adx(highs, lows, closes, period)
	})
}

// masked llama a calc solo si la serie supera el lookback (go-talib indexa
// fuera de rango con series cortas) y pone NaN en el prefijo de warm-up.
func masked(n, lookback int, calc func() []float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = nan
	}
	if lookback < 1 || n <= lookback {
		return out
	}
	vals := calc()
	copy(out[lookback:], vals[lookback:])
	return out
}

func columns(bars []domain.Bar) (highs, lows, closes []float64) {
	highs = make([]float64, len(bars))
	lows = make([]float64, len(bars))
	closes = make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}
	return highs, lows, closes
}
