package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// ResultRepository persists completed screening runs and their results
type ResultRepository interface {
	// SaveRun stores the run summary and returns its numeric id
	SaveRun(ctx context.Context, stats ScreeningStats, strategyName string) (int64, error)
	// SaveResults stores results for a run in one transaction
	SaveResults(ctx context.Context, runID int64, results []ScreeningResult) error
	// SaveRunWithResults stores a run and its results in one transaction
	SaveRunWithResults(ctx context.Context, stats ScreeningStats, strategyName string, results []ScreeningResult) (int64, error)

	GetResultsBySymbol(ctx context.Context, symbol string, days int) ([]StoredResult, error)
	GetRecentMatches(ctx context.Context, days, limit int) ([]StoredResult, error)
	GetRecentRuns(ctx context.Context, limit int) ([]StoredRun, error)
	GetStatistics(ctx context.Context) (*RepositoryStats, error)

	Close() error
}

// StoredRun is a persisted run summary
type StoredRun struct {
	ID              int64     `json:"id"`
	RunUUID         string    `json:"run_uuid"`
	Timestamp       time.Time `json:"timestamp"`
	StrategyName    string    `json:"strategy_name"`
	SymbolsCount    int       `json:"symbols_count"`
	MatchesCount    int       `json:"matches_count"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// StoredResult is a persisted per-symbol result
type StoredResult struct {
	ID           int64  `json:"id"`
	RunID        int64  `json:"run_id"`
	StrategyName string `json:"strategy_name"`
	ScreeningResult
}

// RepositoryStats aggregates stored history
type RepositoryStats struct {
	TotalRuns        int        `json:"total_runs"`
	TotalResults     int        `json:"total_results"`
	RecentMatches    int        `json:"recent_matches_30d"`
	LastRun          *time.Time `json:"last_run,omitempty"`
	AvgMatchesPerRun float64    `json:"avg_matches_per_run"`
}
