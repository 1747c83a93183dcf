package ports

import (
	"context"

	"github.com/alejandrodnm/dualbot/internal/domain"
)

// Notifier presenta el resultado de un backtest al usuario.
type Notifier interface {
	// Report muestra capital final, número de trades y win rate.
	Report(ctx context.Context, run domain.RunRecord) error
}
