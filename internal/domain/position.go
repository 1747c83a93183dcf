package domain

import "time"

// Side es la dirección de una posición.
type Side int

const (
	SideLong Side = iota
	SideShort
)

// String devuelve "long" o "short".
func (s Side) String() string {
	if s == SideShort {
		return "short"
	}
	return "long"
}

// ParseSide es la inversa de String. Cualquier valor distinto de "short" es long.
func ParseSide(s string) Side {
	if s == "short" {
		return SideShort
	}
	return SideLong
}

// Position es la posición abierta del motor de backtest.
// EntryPrice y Target no cambian tras la apertura. Extreme solo se mueve en
// la dirección favorable; Stop se recalcula cada barra desde Extreme y el ATR
// de esa barra, así que puede alejarse si la volatilidad sube.
type Position struct {
	Side       Side
	EntryPrice float64
	Extreme    float64 // max high (long) o min low (short) desde la entrada
	Stop       float64 // trailing stop, recalculado cada barra
	Target     float64 // take-profit fijo
	EntryIndex int
	EntryTime  time.Time
}

// Unrealized devuelve el P&L no realizado al precio dado.
func (p Position) Unrealized(price float64) float64 {
	if p.Side == SideShort {
		return p.EntryPrice - price
	}
	return price - p.EntryPrice
}

// State es el estado del motor: Flat (Position == nil) o en posición.
type State struct {
	Position *Position
}

// FlatState devuelve el estado inicial sin posición.
func FlatState() State { return State{} }

// Flat devuelve true si no hay posición abierta.
func (s State) Flat() bool { return s.Position == nil }
