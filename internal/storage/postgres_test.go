package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/orion/pkg/config"
	"github.com/wonny/orion/pkg/database"
	"github.com/wonny/orion/pkg/logger"
)

func newTestPostgres(t *testing.T) *PostgresRepository {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, &config.Config{Database: config.DatabaseConfig{URL: url, MaxConns: 2}})
	require.NoError(t, err)

	repo := NewPostgres(db, logger.Nop())
	require.NoError(t, repo.Migrate(ctx))

	// isolate from earlier runs
	_, err = db.Pool.Exec(ctx, "TRUNCATE screening_results, screening_runs RESTART IDENTITY")
	require.NoError(t, err)

	repo.now = func() time.Time { return now }
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestPostgres_RoundTrip(t *testing.T) {
	repo := newTestPostgres(t)
	ctx := context.Background()

	ts := now.Add(-time.Hour)
	runID := saveRun(t, repo, ts, "uptrend_puts", matched("AAPL", ts), unmatched("MSFT", ts), failed("TSLA", ts))

	got, err := repo.GetResultsBySymbol(ctx, "AAPL", 30)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, runID, got[0].RunID)
	assert.Equal(t, "uptrend_puts", got[0].StrategyName)
	require.NotNil(t, got[0].OptionRecommendation)
	assert.Equal(t, 35, got[0].OptionRecommendation.DaysToExpiration)

	matches, err := repo.GetRecentMatches(ctx, 30, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	runs, err := repo.GetRecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].SymbolsCount)
	assert.Equal(t, 1, runs[0].MatchesCount)

	stats, err := repo.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 3, stats.TotalResults)
	assert.Equal(t, 1, stats.RecentMatches)
	assert.Equal(t, 1.0, stats.AvgMatchesPerRun)
	require.NotNil(t, stats.LastRun)
	assert.True(t, stats.LastRun.Equal(ts))
}
