package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/pkg/database"
	"github.com/wonny/orion/pkg/logger"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS screening_runs (
	id               BIGSERIAL PRIMARY KEY,
	run_uuid         TEXT             NOT NULL DEFAULT '',
	timestamp        TIMESTAMPTZ      NOT NULL,
	strategy_name    TEXT             NOT NULL,
	symbols_count    INTEGER          NOT NULL,
	matches_count    INTEGER          NOT NULL,
	duration_seconds DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS screening_results (
	id                    BIGSERIAL PRIMARY KEY,
	run_id                BIGINT           NOT NULL REFERENCES screening_runs(id) ON DELETE CASCADE,
	symbol                TEXT             NOT NULL,
	timestamp             TIMESTAMPTZ      NOT NULL,
	matches               BOOLEAN          NOT NULL,
	signal_strength       DOUBLE PRECISION NOT NULL,
	conditions_met        JSONB,
	conditions_missed     JSONB,
	quote_data            JSONB,
	indicators_data       JSONB,
	option_recommendation JSONB,
	error_message         TEXT
);

CREATE INDEX IF NOT EXISTS idx_results_run_id ON screening_results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_symbol ON screening_results(symbol);
CREATE INDEX IF NOT EXISTS idx_results_timestamp ON screening_results(timestamp);
CREATE INDEX IF NOT EXISTS idx_results_matches ON screening_results(matches);
CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON screening_runs(timestamp);
`

const postgresResultColumns = `
	sr.id, sr.run_id, r.strategy_name, sr.symbol, sr.timestamp, sr.matches, sr.signal_strength,
	sr.conditions_met, sr.conditions_missed, sr.quote_data, sr.indicators_data,
	sr.option_recommendation, sr.error_message`

// PostgresRepository stores results in PostgreSQL
// ⭐ SSOT: 스크리닝 결과 PostgreSQL 저장/조회는 여기서만
type PostgresRepository struct {
	db     *database.DB
	logger *logger.Logger
	now    func() time.Time
}

var _ contracts.ResultRepository = (*PostgresRepository)(nil)

// NewPostgres creates a repository on an open pool
func NewPostgres(db *database.DB, log *logger.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, logger: log, now: time.Now}
}

// Migrate creates tables and indexes if missing
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the pool
func (r *PostgresRepository) Close() error {
	r.db.Close()
	return nil
}

// rowQuerier is satisfied by *pgxpool.Pool and pgx.Tx
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SaveRun inserts the run summary
func (r *PostgresRepository) SaveRun(ctx context.Context, stats contracts.ScreeningStats, strategyName string) (int64, error) {
	id, err := r.insertRun(ctx, r.db.Pool, stats, strategyName)
	if err != nil {
		return 0, err
	}
	r.logRun(id, stats, strategyName)
	return id, nil
}

// SaveResults inserts every result in one transaction
func (r *PostgresRepository) SaveResults(ctx context.Context, runID int64, results []contracts.ScreeningResult) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertPostgresResults(ctx, tx, runID, results); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"run_id": runID,
		"count":  len(results),
	}).Debug("Results saved")
	return nil
}

// SaveRunWithResults inserts the run and its results in one transaction
func (r *PostgresRepository) SaveRunWithResults(ctx context.Context, stats contracts.ScreeningStats, strategyName string, results []contracts.ScreeningResult) (int64, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	id, err := r.insertRun(ctx, tx, stats, strategyName)
	if err != nil {
		return 0, err
	}
	if err := insertPostgresResults(ctx, tx, id, results); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logRun(id, stats, strategyName)
	return id, nil
}

func (r *PostgresRepository) insertRun(ctx context.Context, q rowQuerier, stats contracts.ScreeningStats, strategyName string) (int64, error) {
	ts := stats.StartTime
	if ts.IsZero() {
		ts = r.now()
	}

	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO screening_runs (run_uuid, timestamp, strategy_name, symbols_count, matches_count, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, stats.RunID, ts.UTC(), strategyName, stats.TotalSymbols, stats.Matches, stats.DurationSeconds).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

func insertPostgresResults(ctx context.Context, tx pgx.Tx, runID int64, results []contracts.ScreeningResult) error {
	batch := &pgx.Batch{}
	for _, res := range results {
		rec, err := encodeResult(res)
		if err != nil {
			return fmt.Errorf("encode result %s: %w", res.Symbol, err)
		}
		batch.Queue(`
			INSERT INTO screening_results
				(run_id, symbol, timestamp, matches, signal_strength, conditions_met, conditions_missed,
				 quote_data, indicators_data, option_recommendation, error_message)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8::jsonb, $9::jsonb, $10::jsonb, $11)
		`, runID, rec.Symbol, rec.Timestamp, rec.Matches, rec.SignalStrength,
			rec.ConditionsMet, rec.ConditionsMissed, rec.Quote, rec.Indicators, rec.Option, rec.Error)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert results: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) logRun(id int64, stats contracts.ScreeningStats, strategyName string) {
	r.logger.WithFields(map[string]interface{}{
		"run_id":   id,
		"strategy": strategyName,
		"symbols":  stats.TotalSymbols,
		"matches":  stats.Matches,
		"results":  stats.Successful + stats.Failed,
	}).Info("Run saved")
}

// GetResultsBySymbol returns a symbol's results from the last days, newest first
func (r *PostgresRepository) GetResultsBySymbol(ctx context.Context, symbol string, days int) ([]contracts.StoredResult, error) {
	cutoff := r.now().AddDate(0, 0, -orDefault(days, DefaultHistoryDays))
	rows, err := r.db.Pool.Query(ctx, `
		SELECT`+postgresResultColumns+`
		FROM screening_results sr
		JOIN screening_runs r ON sr.run_id = r.id
		WHERE sr.symbol = $1 AND sr.timestamp >= $2
		ORDER BY sr.timestamp DESC, sr.id DESC
	`, strings.ToUpper(symbol), cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query results by symbol: %w", err)
	}
	return scanPostgresResults(rows)
}

// GetRecentMatches returns matching results from the last days, newest first
func (r *PostgresRepository) GetRecentMatches(ctx context.Context, days, limit int) ([]contracts.StoredResult, error) {
	cutoff := r.now().AddDate(0, 0, -orDefault(days, DefaultHistoryDays))
	rows, err := r.db.Pool.Query(ctx, `
		SELECT`+postgresResultColumns+`
		FROM screening_results sr
		JOIN screening_runs r ON sr.run_id = r.id
		WHERE sr.matches AND sr.timestamp >= $1
		ORDER BY sr.timestamp DESC, sr.id DESC
		LIMIT $2
	`, cutoff.UTC(), orDefault(limit, DefaultMatchLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to query recent matches: %w", err)
	}
	return scanPostgresResults(rows)
}

func scanPostgresResults(rows pgx.Rows) ([]contracts.StoredResult, error) {
	defer rows.Close()

	out := []contracts.StoredResult{}
	for rows.Next() {
		var row resultRow
		if err := rows.Scan(
			&row.ID, &row.RunID, &row.StrategyName, &row.Symbol, &row.Timestamp, &row.Matches, &row.SignalStrength,
			&row.ConditionsMet, &row.ConditionsMissed, &row.Quote, &row.Indicators, &row.Option, &row.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		row.Timestamp = row.Timestamp.UTC()

		stored, err := row.toStored()
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// GetRecentRuns returns the latest runs, newest first
func (r *PostgresRepository) GetRecentRuns(ctx context.Context, limit int) ([]contracts.StoredRun, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, run_uuid, timestamp, strategy_name, symbols_count, matches_count, duration_seconds
		FROM screening_runs
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`, orDefault(limit, DefaultRunLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []contracts.StoredRun{}
	for rows.Next() {
		var run contracts.StoredRun
		if err := rows.Scan(&run.ID, &run.RunUUID, &run.Timestamp, &run.StrategyName, &run.SymbolsCount, &run.MatchesCount, &run.DurationSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Timestamp = run.Timestamp.UTC()
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return runs, nil
}

// GetStatistics aggregates the stored history
func (r *PostgresRepository) GetStatistics(ctx context.Context) (*contracts.RepositoryStats, error) {
	stats := &contracts.RepositoryStats{}
	cutoff := r.now().AddDate(0, 0, -30).UTC()

	var lastRun *time.Time
	err := r.db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM screening_runs),
			(SELECT COUNT(*) FROM screening_results),
			(SELECT COUNT(*) FROM screening_results WHERE matches AND timestamp >= $1),
			(SELECT MAX(timestamp) FROM screening_runs),
			(SELECT COALESCE(AVG(matches_count), 0)::float8 FROM screening_runs)
	`, cutoff).Scan(&stats.TotalRuns, &stats.TotalResults, &stats.RecentMatches, &lastRun, &stats.AvgMatchesPerRun)
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}

	if lastRun != nil {
		ts := lastRun.UTC()
		stats.LastRun = &ts
	}
	stats.AvgMatchesPerRun = round2(stats.AvgMatchesPerRun)
	return stats, nil
}
