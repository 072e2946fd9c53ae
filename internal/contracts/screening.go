package contracts

import "time"

// ScreeningResult is the outcome of screening one symbol.
// Either the payload (quote, indicators, evaluation) or Error is populated.
// ⭐ SSOT: Screener → Storage/Notification/CLI 결과 전달
type ScreeningResult struct {
	Symbol               string                `json:"symbol"`
	Timestamp            time.Time             `json:"timestamp"`
	Matches              bool                  `json:"matches"`
	SignalStrength       float64               `json:"signal_strength"`
	ConditionsMet        []string              `json:"conditions_met"`
	ConditionsMissed     []string              `json:"conditions_missed"`
	Quote                *Quote                `json:"quote,omitempty"`
	Indicators           *TechnicalIndicators  `json:"indicators,omitempty"`
	OptionRecommendation *OptionRecommendation `json:"option_recommendation,omitempty"`
	Error                string                `json:"error,omitempty"`
}

// Failed reports whether the symbol pipeline failed
func (r *ScreeningResult) Failed() bool {
	return r.Error != ""
}

// ScreeningStats summarizes a screening run.
// Successful + Failed == TotalSymbols and Matches <= Successful.
type ScreeningStats struct {
	RunID           string    `json:"run_id"`
	TotalSymbols    int       `json:"total_symbols"`
	Successful      int       `json:"successful"`
	Failed          int       `json:"failed"`
	Matches         int       `json:"matches"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// Add folds one result into the counters
func (s *ScreeningStats) Add(r *ScreeningResult) {
	if r.Failed() {
		s.Failed++
		return
	}
	s.Successful++
	if r.Matches {
		s.Matches++
	}
}

// Finish stamps the end time and duration
func (s *ScreeningStats) Finish(end time.Time) {
	s.EndTime = end
	s.DurationSeconds = end.Sub(s.StartTime).Seconds()
}
