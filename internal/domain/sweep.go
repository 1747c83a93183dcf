package domain

// SweepOutcome es el resultado de una combinación de parámetros en un barrido.
type SweepOutcome struct {
	Index        int // posición en la expansión del grid
	Params       StrategyParams
	FinalCapital float64
	Stats        Stats
	Open         bool // quedó una posición abierta al final
	Err          error
}
