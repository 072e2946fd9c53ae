package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/pkg/config"
	"github.com/wonny/orion/pkg/database"
	"github.com/wonny/orion/pkg/logger"
)

// Drivers accepted in STORAGE_DRIVER
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Defaults for history queries
const (
	DefaultHistoryDays = 30
	DefaultMatchLimit  = 50
	DefaultRunLimit    = 10
)

// Open creates the configured result repository and prepares its schema
// ⭐ SSOT: Repository 생성은 여기서만
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (contracts.ResultRepository, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case DriverSQLite, "":
		return OpenSQLite(ctx, cfg.Storage.SQLitePath, log)
	case DriverPostgres:
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		repo := NewPostgres(db, log)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// SaveRun persists a completed run and all of its results atomically:
// if any result fails to insert, no run row is left behind.
// Callers only invoke it after a run finished without cancellation.
func SaveRun(ctx context.Context, repo contracts.ResultRepository, stats contracts.ScreeningStats, strategyName string, results []contracts.ScreeningResult) (int64, error) {
	return repo.SaveRunWithResults(ctx, stats, strategyName, results)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
