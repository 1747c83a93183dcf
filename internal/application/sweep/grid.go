package sweep

import (
	"github.com/alejandrodnm/dualbot/internal/domain"
)

// Grid lista los valores a probar para cada parámetro. Una lista vacía usa
// el valor de base.
type Grid struct {
	ADXThreshold  []float64 `yaml:"adx_threshold"`
	RSIOversold   []float64 `yaml:"rsi_oversold"`
	RSIOverbought []float64 `yaml:"rsi_overbought"`
	StopATRMult   []float64 `yaml:"stop_atr_mult"`
	TargetATRMult []float64 `yaml:"target_atr_mult"`
}

// Expand devuelve el producto cartesiano del grid sobre base, en orden
// determinista (ADX es el bucle exterior, TargetATRMult el interior).
// Las combinaciones que no pasan Validate se descartan.
func (g Grid) Expand(base domain.StrategyParams) []domain.StrategyParams {
	adx := orDefault(g.ADXThreshold, base.ADXThreshold)
	oversold := orDefault(g.RSIOversold, base.RSIOversold)
	overbought := orDefault(g.RSIOverbought, base.RSIOverbought)
	stop := orDefault(g.StopATRMult, base.StopATRMult)
	target := orDefault(g.TargetATRMult, base.TargetATRMult)

	out := make([]domain.StrategyParams, 0, len(adx)*len(oversold)*len(overbought)*len(stop)*len(target))
	for _, a := range adx {
		for _, lo := range oversold {
			for _, hi := range overbought {
				for _, s := range stop {
					for _, tp := range target {
						p := domain.StrategyParams{
							ADXThreshold:  a,
							RSIOversold:   lo,
							RSIOverbought: hi,
							StopATRMult:   s,
							TargetATRMult: tp,
						}
						if p.Validate() != nil {
							continue
						}
						out = append(out, p)
					}
				}
			}
		}
	}
	return out
}

func orDefault(vals []float64, def float64) []float64 {
	if len(vals) == 0 {
		return []float64{def}
	}
	return vals
}
