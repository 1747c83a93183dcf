package storage

// sqlite.go: historial de backtests.
//
//   - `runs`: una fila por ejecución con parámetros y métricas agregadas.
//     Las columnas open_* son NULL salvo que quedara una posición abierta.
//   - `trades`: una fila por trade cerrado, ordenadas por seq dentro del run.
//   - Prune automático al arrancar: runs de más de 90 días.
//
// Los timestamps se guardan como Unix ms (INTEGER) para no depender del
// formato de texto del driver.

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/dualbot/internal/domain"
	"github.com/alejandrodnm/dualbot/internal/ports"
	_ "modernc.org/sqlite"
)

var _ ports.RunStorage = (*SQLiteStorage)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    symbol          TEXT    NOT NULL,
    source_interval TEXT    NOT NULL,
    bar_interval    TEXT    NOT NULL,
    lookback_hours  INTEGER NOT NULL DEFAULT 0,
    adx_threshold   REAL    NOT NULL,
    rsi_oversold    REAL    NOT NULL,
    rsi_overbought  REAL    NOT NULL,
    stop_atr_mult   REAL    NOT NULL,
    target_atr_mult REAL    NOT NULL,
    initial_capital REAL    NOT NULL,
    final_capital   REAL    NOT NULL,
    trades          INTEGER NOT NULL DEFAULT 0,
    wins            INTEGER NOT NULL DEFAULT 0,
    losses          INTEGER NOT NULL DEFAULT 0,
    gross_profit    REAL    NOT NULL DEFAULT 0,
    gross_loss      REAL    NOT NULL DEFAULT 0,
    best            REAL    NOT NULL DEFAULT 0,
    worst           REAL    NOT NULL DEFAULT 0,
    max_drawdown    REAL    NOT NULL DEFAULT 0,
    bars            INTEGER NOT NULL DEFAULT 0,
    from_ms         INTEGER NOT NULL,
    to_ms           INTEGER NOT NULL,
    created_ms      INTEGER NOT NULL,
    open_side        TEXT,
    open_entry_price REAL,
    open_extreme     REAL,
    open_stop        REAL,
    open_target      REAL,
    open_entry_index INTEGER,
    open_entry_ms    INTEGER
);

CREATE TABLE IF NOT EXISTS trades (
    run_id      TEXT    NOT NULL,
    seq         INTEGER NOT NULL,
    side        TEXT    NOT NULL,
    entry_index INTEGER NOT NULL,
    exit_index  INTEGER NOT NULL,
    entry_ms    INTEGER NOT NULL,
    exit_ms     INTEGER NOT NULL,
    entry_price REAL    NOT NULL,
    exit_price  REAL    NOT NULL,
    reason      TEXT    NOT NULL,
    profit      REAL    NOT NULL,
    PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_symbol  ON runs(symbol, created_ms DESC);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_ms DESC);
`

// migrations añade columnas a bases creadas con un schema anterior.
// SQLite no soporta ADD COLUMN IF NOT EXISTS: el error de columna duplicada
// se ignora.
var migrations = []string{
	`ALTER TABLE runs ADD COLUMN open_side TEXT`,
	`ALTER TABLE runs ADD COLUMN open_entry_price REAL`,
	`ALTER TABLE runs ADD COLUMN open_extreme REAL`,
	`ALTER TABLE runs ADD COLUMN open_stop REAL`,
	`ALTER TABLE runs ADD COLUMN open_target REAL`,
	`ALTER TABLE runs ADD COLUMN open_entry_index INTEGER`,
	`ALTER TABLE runs ADD COLUMN open_entry_ms INTEGER`,
}

const retentionRuns = 90 * 24 * time.Hour

// SQLiteStorage implementa ports.RunStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada,
// aplica el schema y limpia runs antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	for _, m := range migrations {
		db.Exec(m) //nolint:errcheck
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveRun persiste el run y todos sus trades en una transacción.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run domain.RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("storage.SaveRun: empty run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	st := run.Stats
	open := openColumns(run.Open)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(id, symbol, source_interval, bar_interval, lookback_hours,
			 adx_threshold, rsi_oversold, rsi_overbought, stop_atr_mult, target_atr_mult,
			 initial_capital, final_capital, trades, wins, losses,
			 gross_profit, gross_loss, best, worst, max_drawdown,
			 bars, from_ms, to_ms, created_ms,
			 open_side, open_entry_price, open_extreme, open_stop, open_target,
			 open_entry_index, open_entry_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		        ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Symbol, run.SourceInterval, run.BarInterval, run.LookbackHours,
		run.Params.ADXThreshold, run.Params.RSIOversold, run.Params.RSIOverbought,
		run.Params.StopATRMult, run.Params.TargetATRMult,
		run.InitialCapital, run.FinalCapital, st.Trades, st.Wins, st.Losses,
		st.GrossProfit, st.GrossLoss, finiteOrZero(st.Best), finiteOrZero(st.Worst), st.MaxDrawdown,
		run.Bars, run.From.UnixMilli(), run.To.UnixMilli(), run.CreatedAt.UnixMilli(),
		open.side, open.entryPrice, open.extreme, open.stop, open.target,
		open.entryIndex, open.entryMs,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run %s: %w", run.ID, err)
	}

	if len(run.Trades) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO trades
				(run_id, seq, side, entry_index, exit_index, entry_ms, exit_ms,
				 entry_price, exit_price, reason, profit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("storage.SaveRun: prepare: %w", err)
		}
		defer stmt.Close()

		for i, t := range run.Trades {
			if _, err := stmt.ExecContext(ctx,
				run.ID, i, t.Side.String(), t.EntryIndex, t.ExitIndex,
				t.EntryTime.UnixMilli(), t.ExitTime.UnixMilli(),
				t.EntryPrice, t.ExitPrice, string(t.Reason), t.Profit,
			); err != nil {
				return fmt.Errorf("storage.SaveRun: insert trade %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// GetRuns devuelve los últimos limit runs, más recientes primero.
// Los trades no se cargan; usar GetTrades.
func (s *SQLiteStorage) GetRuns(ctx context.Context, symbol string, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, source_interval, bar_interval, lookback_hours,
		       adx_threshold, rsi_oversold, rsi_overbought, stop_atr_mult, target_atr_mult,
		       initial_capital, final_capital, trades, wins, losses,
		       gross_profit, gross_loss, best, worst, max_drawdown,
		       bars, from_ms, to_ms, created_ms,
		       open_side, open_entry_price, open_extreme, open_stop, open_target,
		       open_entry_index, open_entry_ms
		FROM runs
		WHERE ? = '' OR symbol = ?
		ORDER BY created_ms DESC, id
		LIMIT ?
	`, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		var r domain.RunRecord
		var fromMs, toMs, createdMs int64
		var open openRow
		if err := rows.Scan(
			&r.ID, &r.Symbol, &r.SourceInterval, &r.BarInterval, &r.LookbackHours,
			&r.Params.ADXThreshold, &r.Params.RSIOversold, &r.Params.RSIOverbought,
			&r.Params.StopATRMult, &r.Params.TargetATRMult,
			&r.InitialCapital, &r.FinalCapital, &r.Stats.Trades, &r.Stats.Wins, &r.Stats.Losses,
			&r.Stats.GrossProfit, &r.Stats.GrossLoss, &r.Stats.Best, &r.Stats.Worst, &r.Stats.MaxDrawdown,
			&r.Bars, &fromMs, &toMs, &createdMs,
			&open.side, &open.entryPrice, &open.extreme, &open.stop, &open.target,
			&open.entryIndex, &open.entryMs,
		); err != nil {
			return nil, fmt.Errorf("storage.GetRuns: scan row: %w", err)
		}
		r.From = time.UnixMilli(fromMs).UTC()
		r.To = time.UnixMilli(toMs).UTC()
		r.CreatedAt = time.UnixMilli(createdMs).UTC()
		r.Open = open.position()
		fillDerivedStats(&r)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetTrades devuelve los trades de un run en orden de cierre.
func (s *SQLiteStorage) GetTrades(ctx context.Context, runID string) ([]domain.ClosedTrade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT side, entry_index, exit_index, entry_ms, exit_ms,
		       entry_price, exit_price, reason, profit
		FROM trades
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTrades: query: %w", err)
	}
	defer rows.Close()

	var trades []domain.ClosedTrade
	for rows.Next() {
		var t domain.ClosedTrade
		var side, reason string
		var entryMs, exitMs int64
		if err := rows.Scan(&side, &t.EntryIndex, &t.ExitIndex, &entryMs, &exitMs,
			&t.EntryPrice, &t.ExitPrice, &reason, &t.Profit); err != nil {
			return nil, fmt.Errorf("storage.GetTrades: scan row: %w", err)
		}
		t.Side = domain.ParseSide(side)
		t.Reason = domain.ExitReason(reason)
		t.EntryTime = time.UnixMilli(entryMs).UTC()
		t.ExitTime = time.UnixMilli(exitMs).UTC()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina runs antiguos y sus trades.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns).UnixMilli()
	s.db.ExecContext(ctx, `DELETE FROM trades WHERE run_id IN (SELECT id FROM runs WHERE created_ms < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_ms < ?`, cutoff)
}

// openRow son las columnas open_* de runs; todas NULL si el run terminó flat.
type openRow struct {
	side       sql.NullString
	entryPrice sql.NullFloat64
	extreme    sql.NullFloat64
	stop       sql.NullFloat64
	target     sql.NullFloat64
	entryIndex sql.NullInt64
	entryMs    sql.NullInt64
}

func openColumns(p *domain.Position) openRow {
	if p == nil {
		return openRow{}
	}
	return openRow{
		side:       sql.NullString{String: p.Side.String(), Valid: true},
		entryPrice: sql.NullFloat64{Float64: p.EntryPrice, Valid: true},
		extreme:    sql.NullFloat64{Float64: p.Extreme, Valid: true},
		stop:       sql.NullFloat64{Float64: p.Stop, Valid: true},
		target:     sql.NullFloat64{Float64: p.Target, Valid: true},
		entryIndex: sql.NullInt64{Int64: int64(p.EntryIndex), Valid: true},
		entryMs:    sql.NullInt64{Int64: p.EntryTime.UnixMilli(), Valid: true},
	}
}

func (o openRow) position() *domain.Position {
	if !o.side.Valid {
		return nil
	}
	return &domain.Position{
		Side:       domain.ParseSide(o.side.String),
		EntryPrice: o.entryPrice.Float64,
		Extreme:    o.extreme.Float64,
		Stop:       o.stop.Float64,
		Target:     o.target.Float64,
		EntryIndex: int(o.entryIndex.Int64),
		EntryTime:  time.UnixMilli(o.entryMs.Int64).UTC(),
	}
}

// fillDerivedStats recalcula las métricas que no se persisten.
func fillDerivedStats(r *domain.RunRecord) {
	st := &r.Stats
	st.NetProfit = r.FinalCapital - r.InitialCapital
	if st.Trades == 0 {
		return
	}
	st.WinRate = float64(st.Wins) / float64(st.Trades)
	st.AvgTrade = st.NetProfit / float64(st.Trades)
	switch {
	case st.GrossLoss > 0:
		st.ProfitFactor = st.GrossProfit / st.GrossLoss
	case st.GrossProfit > 0:
		st.ProfitFactor = math.Inf(1)
	}
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
