package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/internal/storage"
	"github.com/wonny/orion/pkg/logger"
)

// maxLimit caps list sizes requested over HTTP
const maxLimit = 500

// ResultsHandler serves stored screening history
// ⭐ SSOT: 스크리닝 이력 API 핸들러는 이 구조체에서만
type ResultsHandler struct {
	repo   contracts.ResultRepository
	logger *logger.Logger
}

// NewResultsHandler creates a new results handler
func NewResultsHandler(repo contracts.ResultRepository, log *logger.Logger) *ResultsHandler {
	return &ResultsHandler{repo: repo, logger: log}
}

// GetRuns returns the latest runs
// GET /api/runs?limit=10
func (h *ResultsHandler) GetRuns(w http.ResponseWriter, r *http.Request) {
	limit := capLimit(queryInt(r, "limit", storage.DefaultRunLimit))

	runs, err := h.repo.GetRecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).WithField("limit", limit).Error("Failed to get runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(runs),
		"data":    runs,
	})
}

// GetResultsBySymbol returns one symbol's history
// GET /api/results/{symbol}?days=30
func (h *ResultsHandler) GetResultsBySymbol(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["symbol"]))
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	days := queryInt(r, "days", storage.DefaultHistoryDays)

	results, err := h.repo.GetResultsBySymbol(r.Context(), symbol, days)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"symbol": symbol,
			"days":   days,
		}).Error("Failed to get results")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve results")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"symbol":  symbol,
		"days":    days,
		"count":   len(results),
		"data":    results,
	})
}

// GetMatches returns recent matching results
// GET /api/matches?days=30&limit=50
func (h *ResultsHandler) GetMatches(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", storage.DefaultHistoryDays)
	limit := capLimit(queryInt(r, "limit", storage.DefaultMatchLimit))

	results, err := h.repo.GetRecentMatches(r.Context(), days, limit)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"days":  days,
			"limit": limit,
		}).Error("Failed to get matches")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve matches")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"days":    days,
		"count":   len(results),
		"data":    results,
	})
}

// GetStatistics returns aggregate history statistics
// GET /api/statistics
func (h *ResultsHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStatistics(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get statistics")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve statistics")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    stats,
	})
}

func capLimit(n int) int {
	if n > maxLimit {
		return maxLimit
	}
	return n
}
