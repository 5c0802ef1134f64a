package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	apperrors "github.com/Syair/Free-US-Investment-Agent-System/internal/errors"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

// SQLiteStore implements ResultStore using SQLite. Monetary values are stored
// as decimal strings to avoid float drift on round-trip.
type SQLiteStore struct {
	db *sql.DB
}

const dateLayout = "2006-01-02"

// NewSQLiteStore opens (or creates) a SQLite-backed result store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Concurrent readers while the engine appends.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Backtest runs
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		ticker TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		initial_capital TEXT NOT NULL,
		num_of_news INTEGER NOT NULL,
		show_reasoning INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	-- One decision record per processed trading date
	CREATE TABLE IF NOT EXISTS decisions (
		run_id TEXT NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		date DATE NOT NULL,
		decision TEXT NOT NULL,
		reasoning TEXT,
		cash TEXT NOT NULL,
		stock INTEGER NOT NULL,
		stock_value TEXT NOT NULL,
		portfolio_value TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	-- Analyst signals behind each decision
	CREATE TABLE IF NOT EXISTS signals (
		run_id TEXT NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		date DATE NOT NULL,
		agent TEXT NOT NULL,
		decision TEXT NOT NULL,
		confidence REAL NOT NULL,
		reasoning TEXT,
		metrics TEXT,
		PRIMARY KEY (run_id, seq, agent)
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_run_date ON decisions(run_id, date);
	CREATE INDEX IF NOT EXISTS idx_signals_run_date ON signals(run_id, date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateRun persists a new run.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.BacktestRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, ticker, start_date, end_date, initial_capital,
			num_of_news, show_reasoning, status, error, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Params.Ticker,
		run.Params.StartDate.Format(dateLayout), run.Params.EndDate.Format(dateLayout),
		run.Params.InitialCapital.String(), run.Params.NumOfNews,
		boolToInt(run.Params.ShowReasoning), string(run.Status), run.Error, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// UpdateStatus moves the run to the given status, enforcing monotone
// transitions in the same transaction that reads the current status.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, runID string, status models.RunStatus, errMsg string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM runs WHERE id = ?`, runID).Scan(&current); err != nil {
		if err == sql.ErrNoRows {
			return apperrors.ErrRunNotFound
		}
		return fmt.Errorf("failed to read run status: %w", err)
	}
	if !models.RunStatus(current).CanTransition(status) {
		return apperrors.Wrapf(apperrors.ErrStatusTransition, "%s -> %s", current, status)
	}

	var finished interface{}
	if status.Terminal() {
		finished = time.Now()
	}
	if status != models.StatusFailed {
		errMsg = ""
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), errMsg, finished, runID); err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return tx.Commit()
}

// AppendDecision writes the decision record and its signal set in one
// transaction, so a reader never observes one without the other.
func (s *SQLiteStore) AppendDecision(ctx context.Context, runID string, record models.DecisionRecord, signals models.SignalSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check run: %w", err)
	}
	if exists == 0 {
		return apperrors.ErrRunNotFound
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM decisions WHERE run_id = ?`, runID).Scan(&seq); err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	snap := record.Snapshot
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO decisions (run_id, seq, date, decision, reasoning,
			cash, stock, stock_value, portfolio_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, seq, record.Date.Format(dateLayout), string(record.Decision), record.Reasoning,
		snap.Cash.String(), snap.Stock, snap.StockValue.String(), snap.PortfolioValue.String()); err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}

	for _, sig := range signals.Signals {
		metrics, err := json.Marshal(sig.Metrics)
		if err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO signals (run_id, seq, date, agent, decision, confidence, reasoning, metrics)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, seq, sig.Date.Format(dateLayout), string(sig.AgentName),
			string(sig.Decision), sig.Confidence, sig.Reasoning, string(metrics)); err != nil {
			return fmt.Errorf("failed to insert signal: %w", err)
		}
	}
	return tx.Commit()
}

// GetRun returns the full run including all decisions and signals.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*models.BacktestRun, error) {
	run, err := s.scanRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Decisions, err = s.scanDecisions(ctx, runID); err != nil {
		return nil, err
	}
	if run.Signals, err = s.scanSignals(ctx, runID); err != nil {
		return nil, err
	}
	return run, nil
}

// LatestDecision returns the most recent decision record, or nil.
func (s *SQLiteStore) LatestDecision(ctx context.Context, runID string) (*models.DecisionRecord, error) {
	if _, err := s.scanRun(ctx, runID); err != nil {
		return nil, err
	}
	records, err := s.scanDecisions(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[len(records)-1], nil
}

// LatestSignals returns the signal set for the most recently processed date, or nil.
func (s *SQLiteStore) LatestSignals(ctx context.Context, runID string) (*models.SignalSet, error) {
	if _, err := s.scanRun(ctx, runID); err != nil {
		return nil, err
	}
	sets, err := s.scanSignals(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, nil
	}
	return &sets[len(sets)-1], nil
}

// History returns the portfolio snapshots in chronological order.
func (s *SQLiteStore) History(ctx context.Context, runID string) ([]models.PortfolioSnapshot, error) {
	if _, err := s.scanRun(ctx, runID); err != nil {
		return nil, err
	}
	records, err := s.scanDecisions(ctx, runID)
	if err != nil {
		return nil, err
	}
	history := make([]models.PortfolioSnapshot, len(records))
	for i, r := range records {
		history[i] = r.Snapshot
	}
	return history, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) scanRun(ctx context.Context, runID string) (*models.BacktestRun, error) {
	var (
		run                    models.BacktestRun
		start, end, capital    string
		showReasoning          int
		errMsg                 sql.NullString
		finishedAt             sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, ticker, start_date, end_date, initial_capital, num_of_news,
			show_reasoning, status, error, started_at, finished_at
		FROM runs WHERE id = ?`, runID).Scan(
		&run.ID, &run.Params.Ticker, &start, &end, &capital, &run.Params.NumOfNews,
		&showReasoning, (*string)(&run.Status), &errMsg, &run.StartedAt, &finishedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	if run.Params.StartDate, err = time.Parse(dateLayout, start); err != nil {
		return nil, fmt.Errorf("failed to parse start_date: %w", err)
	}
	if run.Params.EndDate, err = time.Parse(dateLayout, end); err != nil {
		return nil, fmt.Errorf("failed to parse end_date: %w", err)
	}
	if run.Params.InitialCapital, err = decimal.NewFromString(capital); err != nil {
		return nil, fmt.Errorf("failed to parse initial_capital: %w", err)
	}
	run.Params.ShowReasoning = showReasoning != 0
	run.Error = errMsg.String
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return &run, nil
}

func (s *SQLiteStore) scanDecisions(ctx context.Context, runID string) ([]models.DecisionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, decision, reasoning, cash, stock, stock_value, portfolio_value
		FROM decisions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var records []models.DecisionRecord
	for rows.Next() {
		var (
			r                      models.DecisionRecord
			date, cash, sv, pv     string
			reasoning              sql.NullString
		)
		if err := rows.Scan(&date, (*string)(&r.Decision), &reasoning, &cash, &r.Snapshot.Stock, &sv, &pv); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		if r.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("failed to parse decision date: %w", err)
		}
		r.Snapshot.Date = r.Date
		r.Reasoning = reasoning.String
		if r.Snapshot.Cash, err = decimal.NewFromString(cash); err != nil {
			return nil, fmt.Errorf("failed to parse cash: %w", err)
		}
		if r.Snapshot.StockValue, err = decimal.NewFromString(sv); err != nil {
			return nil, fmt.Errorf("failed to parse stock_value: %w", err)
		}
		if r.Snapshot.PortfolioValue, err = decimal.NewFromString(pv); err != nil {
			return nil, fmt.Errorf("failed to parse portfolio_value: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) scanSignals(ctx context.Context, runID string) ([]models.SignalSet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, date, agent, decision, confidence, reasoning, metrics
		FROM signals WHERE run_id = ? ORDER BY seq, agent`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var (
		sets    []models.SignalSet
		lastSeq int64 = -1
	)
	for rows.Next() {
		var (
			seq            int64
			date, metrics  string
			reasoning      sql.NullString
			sig            models.AnalystSignal
		)
		if err := rows.Scan(&seq, &date, (*string)(&sig.AgentName), (*string)(&sig.Decision),
			&sig.Confidence, &reasoning, &metrics); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		if sig.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("failed to parse signal date: %w", err)
		}
		sig.Reasoning = reasoning.String
		if metrics != "" && metrics != "null" {
			if err := json.Unmarshal([]byte(metrics), &sig.Metrics); err != nil {
				return nil, fmt.Errorf("failed to decode metrics: %w", err)
			}
		}
		if seq != lastSeq {
			sets = append(sets, models.SignalSet{Date: sig.Date})
			lastSeq = seq
		}
		sets[len(sets)-1].Signals = append(sets[len(sets)-1].Signals, sig)
	}
	return sets, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
