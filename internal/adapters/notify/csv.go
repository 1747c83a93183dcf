package notify

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alejandrodnm/dualbot/internal/domain"
)

// WriteTradesCSV exporta el trade log a path.
func WriteTradesCSV(path string, trades []domain.ClosedTrade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("notify.WriteTradesCSV: create %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"side", "entry_index", "exit_index", "entry_time", "exit_time",
		"entry_price", "exit_price", "reason", "profit",
	}); err != nil {
		return fmt.Errorf("notify.WriteTradesCSV: header: %w", err)
	}
	for _, t := range trades {
		if err := w.Write([]string{
			t.Side.String(),
			strconv.Itoa(t.EntryIndex),
			strconv.Itoa(t.ExitIndex),
			t.EntryTime.Format(time.RFC3339),
			t.ExitTime.Format(time.RFC3339),
			formatF(t.EntryPrice),
			formatF(t.ExitPrice),
			string(t.Reason),
			formatF(t.Profit),
		}); err != nil {
			return fmt.Errorf("notify.WriteTradesCSV: row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
