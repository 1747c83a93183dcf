package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInputAlignment: las series de barras e indicadores no coinciden
	// (longitud, orden de timestamps, índice de inicio fuera de rango).
	ErrInputAlignment = errors.New("input alignment error")

	// ErrUndefinedIndicator: un indicador necesario para decidir es NaN/Inf
	// dentro del rango evaluado. Casi siempre es un warm-up mal configurado.
	ErrUndefinedIndicator = errors.New("undefined indicator")

	// ErrInvalidParams: parámetros de estrategia fuera de rango.
	ErrInvalidParams = errors.New("invalid strategy params")
)

// UndefinedIndicatorError identifica la barra y el indicador indefinido.
type UndefinedIndicatorError struct {
	Index int
	Field string // momentum | trend_strength | volatility
}

func (e *UndefinedIndicatorError) Error() string {
	return fmt.Sprintf("%s: %s at bar %d", ErrUndefinedIndicator, e.Field, e.Index)
}

// Is permite errors.Is(err, ErrUndefinedIndicator).
func (e *UndefinedIndicatorError) Is(target error) bool {
	return target == ErrUndefinedIndicator
}
