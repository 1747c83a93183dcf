package ports

import (
	"context"

	"github.com/alejandrodnm/dualbot/internal/domain"
)

// RunStorage persiste el resultado de cada backtest.
type RunStorage interface {
	// SaveRun persiste el run y sus trades en una transacción.
	SaveRun(ctx context.Context, run domain.RunRecord) error

	// GetRuns devuelve los últimos runs (sin trades), más recientes primero.
	// symbol vacío devuelve todos.
	GetRuns(ctx context.Context, symbol string, limit int) ([]domain.RunRecord, error)

	// GetTrades devuelve los trades de un run en orden de cierre.
	GetTrades(ctx context.Context, runID string) ([]domain.ClosedTrade, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
