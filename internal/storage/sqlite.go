package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/pkg/logger"
)

// timeLayout is fixed-width so TEXT timestamps compare in time order
const timeLayout = "2006-01-02T15:04:05.000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS screening_runs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	run_uuid         TEXT    NOT NULL DEFAULT '',
	timestamp        TEXT    NOT NULL,
	strategy_name    TEXT    NOT NULL,
	symbols_count    INTEGER NOT NULL,
	matches_count    INTEGER NOT NULL,
	duration_seconds REAL    NOT NULL
);

CREATE TABLE IF NOT EXISTS screening_results (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id                INTEGER NOT NULL,
	symbol                TEXT    NOT NULL,
	timestamp             TEXT    NOT NULL,
	matches               BOOLEAN NOT NULL,
	signal_strength       REAL    NOT NULL,
	conditions_met        TEXT,
	conditions_missed     TEXT,
	quote_data            TEXT,
	indicators_data       TEXT,
	option_recommendation TEXT,
	error_message         TEXT,
	FOREIGN KEY (run_id) REFERENCES screening_runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_results_run_id ON screening_results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_symbol ON screening_results(symbol);
CREATE INDEX IF NOT EXISTS idx_results_timestamp ON screening_results(timestamp);
CREATE INDEX IF NOT EXISTS idx_results_matches ON screening_results(matches);
CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON screening_runs(timestamp);
`

const sqliteResultColumns = `
	sr.id, sr.run_id, r.strategy_name, sr.symbol, sr.timestamp, sr.matches, sr.signal_strength,
	sr.conditions_met, sr.conditions_missed, sr.quote_data, sr.indicators_data,
	sr.option_recommendation, sr.error_message`

// SQLiteRepository stores results in a local SQLite file (WAL mode)
type SQLiteRepository struct {
	db     *sql.DB
	logger *logger.Logger
	now    func() time.Time
}

var _ contracts.ResultRepository = (*SQLiteRepository)(nil)

// OpenSQLite opens (creating if needed) the database at path and its schema
func OpenSQLite(ctx context.Context, path string, log *logger.Logger) (*SQLiteRepository, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.WithField("path", path).Debug("SQLite repository opened")
	return &SQLiteRepository{db: db, logger: log, now: time.Now}, nil
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("sqlite path is empty")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// rows written by other tools
		if t2, err2 := time.Parse(time.RFC3339Nano, s); err2 == nil {
			return t2.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// Close closes the database
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// sqlExecer is satisfied by *sql.DB and *sql.Tx
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// SaveRun inserts the run summary
func (r *SQLiteRepository) SaveRun(ctx context.Context, stats contracts.ScreeningStats, strategyName string) (int64, error) {
	id, err := r.insertRun(ctx, r.db, stats, strategyName)
	if err != nil {
		return 0, err
	}
	r.logRun(id, stats, strategyName)
	return id, nil
}

// SaveResults inserts every result in one transaction
func (r *SQLiteRepository) SaveResults(ctx context.Context, runID int64, results []contracts.ScreeningResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	if err := insertSQLiteResults(ctx, tx, runID, results); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"run_id": runID,
		"count":  len(results),
	}).Debug("Results saved")
	return nil
}

// SaveRunWithResults inserts the run and its results in one transaction
func (r *SQLiteRepository) SaveRunWithResults(ctx context.Context, stats contracts.ScreeningStats, strategyName string, results []contracts.ScreeningResult) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	id, err := r.insertRun(ctx, tx, stats, strategyName)
	if err != nil {
		return 0, err
	}
	if err := insertSQLiteResults(ctx, tx, id, results); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite commit: %w", err)
	}

	r.logRun(id, stats, strategyName)
	return id, nil
}

func (r *SQLiteRepository) insertRun(ctx context.Context, ex sqlExecer, stats contracts.ScreeningStats, strategyName string) (int64, error) {
	ts := stats.StartTime
	if ts.IsZero() {
		ts = r.now()
	}

	res, err := ex.ExecContext(ctx, `
		INSERT INTO screening_runs (run_uuid, timestamp, strategy_name, symbols_count, matches_count, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?)
	`, stats.RunID, formatTime(ts), strategyName, stats.TotalSymbols, stats.Matches, stats.DurationSeconds)
	if err != nil {
		return 0, fmt.Errorf("sqlite insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite run id: %w", err)
	}
	return id, nil
}

func insertSQLiteResults(ctx context.Context, ex sqlExecer, runID int64, results []contracts.ScreeningResult) error {
	stmt, err := ex.PrepareContext(ctx, `
		INSERT INTO screening_results
			(run_id, symbol, timestamp, matches, signal_strength, conditions_met, conditions_missed,
			 quote_data, indicators_data, option_recommendation, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		rec, err := encodeResult(res)
		if err != nil {
			return fmt.Errorf("encode result %s: %w", res.Symbol, err)
		}
		if _, err := stmt.ExecContext(ctx,
			runID, rec.Symbol, formatTime(rec.Timestamp), rec.Matches, rec.SignalStrength,
			rec.ConditionsMet, rec.ConditionsMissed, rec.Quote, rec.Indicators, rec.Option, rec.Error,
		); err != nil {
			return fmt.Errorf("sqlite insert result %s: %w", res.Symbol, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) logRun(id int64, stats contracts.ScreeningStats, strategyName string) {
	r.logger.WithFields(map[string]interface{}{
		"run_id":   id,
		"strategy": strategyName,
		"symbols":  stats.TotalSymbols,
		"matches":  stats.Matches,
		"results":  stats.Successful + stats.Failed,
	}).Info("Run saved")
}

// GetResultsBySymbol returns a symbol's results from the last days, newest first
func (r *SQLiteRepository) GetResultsBySymbol(ctx context.Context, symbol string, days int) ([]contracts.StoredResult, error) {
	cutoff := r.now().AddDate(0, 0, -orDefault(days, DefaultHistoryDays))
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+sqliteResultColumns+`
		FROM screening_results sr
		JOIN screening_runs r ON sr.run_id = r.id
		WHERE sr.symbol = ? AND sr.timestamp >= ?
		ORDER BY sr.timestamp DESC, sr.id DESC
	`, strings.ToUpper(symbol), formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("sqlite query results by symbol: %w", err)
	}
	return scanSQLiteResults(rows)
}

// GetRecentMatches returns matching results from the last days, newest first
func (r *SQLiteRepository) GetRecentMatches(ctx context.Context, days, limit int) ([]contracts.StoredResult, error) {
	cutoff := r.now().AddDate(0, 0, -orDefault(days, DefaultHistoryDays))
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+sqliteResultColumns+`
		FROM screening_results sr
		JOIN screening_runs r ON sr.run_id = r.id
		WHERE sr.matches = 1 AND sr.timestamp >= ?
		ORDER BY sr.timestamp DESC, sr.id DESC
		LIMIT ?
	`, formatTime(cutoff), orDefault(limit, DefaultMatchLimit))
	if err != nil {
		return nil, fmt.Errorf("sqlite query recent matches: %w", err)
	}
	return scanSQLiteResults(rows)
}

func scanSQLiteResults(rows *sql.Rows) ([]contracts.StoredResult, error) {
	defer rows.Close()

	out := []contracts.StoredResult{}
	for rows.Next() {
		var row resultRow
		var ts string
		if err := rows.Scan(
			&row.ID, &row.RunID, &row.StrategyName, &row.Symbol, &ts, &row.Matches, &row.SignalStrength,
			&row.ConditionsMet, &row.ConditionsMissed, &row.Quote, &row.Indicators, &row.Option, &row.Error,
		); err != nil {
			return nil, fmt.Errorf("sqlite scan result: %w", err)
		}

		var err error
		if row.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		stored, err := row.toStored()
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, rows.Err()
}

// GetRecentRuns returns the latest runs, newest first
func (r *SQLiteRepository) GetRecentRuns(ctx context.Context, limit int) ([]contracts.StoredRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_uuid, timestamp, strategy_name, symbols_count, matches_count, duration_seconds
		FROM screening_runs
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, orDefault(limit, DefaultRunLimit))
	if err != nil {
		return nil, fmt.Errorf("sqlite query runs: %w", err)
	}
	defer rows.Close()

	runs := []contracts.StoredRun{}
	for rows.Next() {
		var run contracts.StoredRun
		var ts string
		if err := rows.Scan(&run.ID, &run.RunUUID, &ts, &run.StrategyName, &run.SymbolsCount, &run.MatchesCount, &run.DurationSeconds); err != nil {
			return nil, fmt.Errorf("sqlite scan run: %w", err)
		}
		if run.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetStatistics aggregates the stored history
func (r *SQLiteRepository) GetStatistics(ctx context.Context) (*contracts.RepositoryStats, error) {
	stats := &contracts.RepositoryStats{}
	cutoff := formatTime(r.now().AddDate(0, 0, -30))

	var lastRun sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM screening_runs),
			(SELECT COUNT(*) FROM screening_results),
			(SELECT COUNT(*) FROM screening_results WHERE matches = 1 AND timestamp >= ?),
			(SELECT MAX(timestamp) FROM screening_runs),
			(SELECT COALESCE(AVG(matches_count), 0) FROM screening_runs)
	`, cutoff).Scan(&stats.TotalRuns, &stats.TotalResults, &stats.RecentMatches, &lastRun, &stats.AvgMatchesPerRun)
	if err != nil {
		return nil, fmt.Errorf("sqlite statistics: %w", err)
	}

	if lastRun.Valid {
		ts, err := parseTime(lastRun.String)
		if err != nil {
			return nil, err
		}
		stats.LastRun = &ts
	}
	stats.AvgMatchesPerRun = round2(stats.AvgMatchesPerRun)
	return stats, nil
}
