package binance

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/dualbot/internal/domain"
)

const klinesPageLimit = 1000

// FetchBars implementa ports.BarProvider paginando /api/v3/klines hacia
// delante: cada página arranca en el open time de la última vela + 1ms y la
// paginación termina con una página vacía o más corta que el límite.
func (c *Client) FetchBars(ctx context.Context, symbol, interval string, since, until time.Time) ([]domain.Bar, error) {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return nil, fmt.Errorf("binance.FetchBars: empty symbol")
	}
	if !until.After(since) {
		return nil, fmt.Errorf("binance.FetchBars: until %s not after since %s",
			until.Format(time.RFC3339), since.Format(time.RFC3339))
	}

	var all []domain.Bar
	start := since.UnixMilli()
	end := until.UnixMilli()
	lastOpen := int64(-1)

	for page := 0; ; page++ {
		q := url.Values{}
		q.Set("symbol", sym)
		q.Set("interval", interval)
		q.Set("startTime", strconv.FormatInt(start, 10))
		q.Set("endTime", strconv.FormatInt(end, 10))
		q.Set("limit", strconv.Itoa(c.pageLimit))

		var resp []rawKline
		if err := c.get(ctx, c.base+"/api/v3/klines?"+q.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("binance.FetchBars: page %d: %w", page, err)
		}
		if len(resp) == 0 {
			break
		}

		for _, k := range resp {
			if k.OpenTime <= lastOpen {
				continue
			}
			all = append(all, mapKline(k))
			lastOpen = k.OpenTime
		}

		slog.Debug("fetched klines page",
			"symbol", sym,
			"interval", interval,
			"page", page,
			"count", len(resp),
			"total", len(all),
		)

		if len(resp) < c.pageLimit || lastOpen >= end {
			break
		}
		start = lastOpen + 1
	}

	return all, nil
}

// NormalizeSymbol convierte "ETH/USDT" o "eth-usdt" al formato de Binance "ETHUSDT".
func NormalizeSymbol(s string) string {
	r := strings.NewReplacer("/", "", "-", "", "_", "", " ", "")
	return strings.ToUpper(r.Replace(s))
}

func mapKline(k rawKline) domain.Bar {
	return domain.Bar{
		Timestamp: time.UnixMilli(k.OpenTime).UTC(),
		Open:      k.Open,
		High:      k.High,
		Low:       k.Low,
		Close:     k.Close,
		Volume:    k.Volume,
	}
}
