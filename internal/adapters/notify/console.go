package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/dualbot/internal/domain"
	"github.com/alejandrodnm/dualbot/internal/ports"
	"github.com/olekukonko/tablewriter"
)

var _ ports.Notifier = (*Console)(nil)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
// Con table=true imprime además la tabla de trades.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Report imprime el resumen del run: capital final, trades y win rate,
// seguido del bloque de métricas.
func (c *Console) Report(_ context.Context, run domain.RunRecord) error {
	st := run.Stats

	fmt.Fprintf(c.out, "\n=== BACKTEST %s %s→%s | %s → %s ===\n",
		run.Symbol, run.SourceInterval, run.BarInterval,
		run.From.Format("2006-01-02 15:04"), run.To.Format("2006-01-02 15:04"))
	fmt.Fprintf(c.out, "  Params: %s\n", run.Params)
	fmt.Fprintf(c.out, "  Bars:   %d\n\n", run.Bars)

	fmt.Fprintf(c.out, "Final capital: %.4f\n", run.FinalCapital)
	fmt.Fprintf(c.out, "Trades: %d\n", st.Trades)
	fmt.Fprintf(c.out, "Winrate: %.4f\n", st.WinRate)

	if st.Trades > 0 {
		fmt.Fprintf(c.out, "\n  Net P&L:       %+.4f (%+.2f%%)\n", st.NetProfit, pct(st.NetProfit, run.InitialCapital))
		fmt.Fprintf(c.out, "  W/L:           %d/%d\n", st.Wins, st.Losses)
		fmt.Fprintf(c.out, "  Avg trade:     %+.4f\n", st.AvgTrade)
		fmt.Fprintf(c.out, "  Best / worst:  %+.4f / %+.4f\n", st.Best, st.Worst)
		fmt.Fprintf(c.out, "  Profit factor: %s\n", profitFactorLabel(st.ProfitFactor))
		fmt.Fprintf(c.out, "  Max drawdown:  %.4f\n", st.MaxDrawdown)
	}

	if run.Open != nil {
		fmt.Fprintf(c.out, "\n  Open at end: %s @ %.4f (stop %.4f, target %.4f) (not counted)\n",
			run.Open.Side, run.Open.EntryPrice, run.Open.Stop, run.Open.Target)
	}

	if c.table && len(run.Trades) > 0 {
		fmt.Fprintln(c.out)
		c.printTrades(run.Trades)
	}
	fmt.Fprintln(c.out)
	return nil
}

// printTrades imprime un trade por fila.
func (c *Console) printTrades(trades []domain.ClosedTrade) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Side", "Entry time", "Exit time", "Entry", "Exit", "Reason", "Profit")

	for i, t := range trades {
		table.Append(
			fmt.Sprintf("%d", i+1),
			t.Side.String(),
			t.EntryTime.Format("01-02 15:04"),
			t.ExitTime.Format("01-02 15:04"),
			fmt.Sprintf("%.4f", t.EntryPrice),
			fmt.Sprintf("%.4f", t.ExitPrice),
			string(t.Reason),
			fmt.Sprintf("%+.4f", t.Profit),
		)
	}
	table.Render()
}

// ReportSweep imprime el ranking de un barrido de parámetros.
// outcomes ya viene ordenado; se muestran como máximo top filas (0 = todas).
// Las combinaciones con Err (p.ej. no evaluadas por cancelación) no entran en
// el ranking: solo se cuentan.
func (c *Console) ReportSweep(outcomes []domain.SweepOutcome, top int) {
	ok := make([]domain.SweepOutcome, 0, len(outcomes))
	var failed []domain.SweepOutcome
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
			continue
		}
		ok = append(ok, o)
	}
	defer func() {
		if len(failed) > 0 {
			fmt.Fprintf(c.out, "  %d combinations failed (first: %v)\n\n", len(failed), failed[0].Err)
		}
	}()

	outcomes = ok
	if len(outcomes) == 0 {
		fmt.Fprintln(c.out, "\n  No sweep results.")
		return
	}
	if top > 0 && len(outcomes) > top {
		outcomes = outcomes[:top]
	}

	fmt.Fprintf(c.out, "\n=== PARAMETER SWEEP (top %d) ===\n", len(outcomes))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "ADX>", "RSI<", "RSI>", "Stop×", "TP×", "Final", "Trades", "Winrate", "PF", "MaxDD")
	for i, o := range outcomes {
		p := o.Params
		table.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.0f", p.ADXThreshold),
			fmt.Sprintf("%.0f", p.RSIOversold),
			fmt.Sprintf("%.0f", p.RSIOverbought),
			fmt.Sprintf("%.2f", p.StopATRMult),
			fmt.Sprintf("%.2f", p.TargetATRMult),
			fmt.Sprintf("%.4f", o.FinalCapital),
			fmt.Sprintf("%d", o.Stats.Trades),
			fmt.Sprintf("%.2f", o.Stats.WinRate),
			profitFactorLabel(o.Stats.ProfitFactor),
			fmt.Sprintf("%.4f", o.Stats.MaxDrawdown),
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
}

// PrintHistory imprime los runs persistidos.
func (c *Console) PrintHistory(runs []domain.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "\n  No runs stored yet.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Run", "When", "Symbol", "TF", "Params", "Final", "Trades", "Winrate", "Open")
	for _, r := range runs {
		table.Append(
			shortID(r.ID),
			r.CreatedAt.Local().Format(time.DateTime),
			r.Symbol,
			r.BarInterval,
			r.Params.String(),
			fmt.Sprintf("%.4f", r.FinalCapital),
			fmt.Sprintf("%d", r.Stats.Trades),
			fmt.Sprintf("%.2f", r.Stats.WinRate),
			openLabel(r.Open),
		)
	}
	table.Render()
}

// --- helpers ---

func profitFactorLabel(pf float64) string {
	if math.IsInf(pf, 1) {
		return "INF"
	}
	return fmt.Sprintf("%.2f", pf)
}

func openLabel(p *domain.Position) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%s@%.4f", p.Side, p.EntryPrice)
}

func pct(v, base float64) float64 {
	if base == 0 {
		return 0
	}
	return v / base * 100
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
