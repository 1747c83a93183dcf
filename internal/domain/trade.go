package domain

import "time"

// ExitReason indica qué condición cerró la posición.
type ExitReason string

const (
	ExitStop   ExitReason = "stop"
	ExitTarget ExitReason = "target"
)

// ClosedTrade es un par apertura→cierre realizado.
type ClosedTrade struct {
	Side       Side
	EntryIndex int
	ExitIndex  int
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Reason     ExitReason
	Profit     float64 // con signo, una unidad nocional
}

// Result es la salida de un backtest.
type Result struct {
	InitialCapital float64
	FinalCapital   float64
	Trades         []ClosedTrade // en orden cronológico de cierre
	Open           *Position     // posición abierta al final de la serie, no cuenta en el capital
	BarsEvaluated  int
	Partial        bool // true si la ejecución se interrumpió antes de la última barra
}

// TradeLog devuelve solo los profits realizados, en orden de cierre.
func (r Result) TradeLog() []float64 {
	log := make([]float64, len(r.Trades))
	for i, t := range r.Trades {
		log[i] = t.Profit
	}
	return log
}

// RunRecord es el resumen persistido de una ejecución completa.
type RunRecord struct {
	ID             string
	Symbol         string
	SourceInterval string // intervalo descargado, p.ej. "1m"
	BarInterval    string // intervalo tras resample, p.ej. "3m"
	LookbackHours  int
	Params         StrategyParams
	InitialCapital float64
	FinalCapital   float64
	Stats          Stats
	Trades         []ClosedTrade
	Open           *Position
	Bars           int
	From           time.Time
	To             time.Time
	CreatedAt      time.Time
}
