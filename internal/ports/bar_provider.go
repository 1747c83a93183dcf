package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/dualbot/internal/domain"
)

// BarProvider descarga velas históricas de un exchange.
type BarProvider interface {
	// FetchBars devuelve las velas de symbol a intervalo interval cuyo open
	// está en [since, until], ordenadas y sin duplicados.
	// Pagina automáticamente hasta agotar el rango.
	FetchBars(ctx context.Context, symbol, interval string, since, until time.Time) ([]domain.Bar, error)
}

// BarCache guarda velas descargadas para no repetir la paginación.
type BarCache interface {
	// Load devuelve las velas cacheadas en [from, to]. Un cache miss devuelve
	// nil sin error.
	Load(ctx context.Context, symbol, interval string, from, to time.Time) ([]domain.Bar, error)

	// Save mezcla bars con lo ya cacheado, deduplicando por timestamp.
	Save(ctx context.Context, symbol, interval string, bars []domain.Bar) error
}
