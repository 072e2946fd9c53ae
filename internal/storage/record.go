package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/wonny/orion/internal/contracts"
)

// record is a ScreeningResult flattened into column values
type record struct {
	Symbol           string
	Timestamp        time.Time
	Matches          bool
	SignalStrength   float64
	ConditionsMet    string
	ConditionsMissed string
	Quote            *string
	Indicators       *string
	Option           *string
	Error            *string
}

func encodeResult(r contracts.ScreeningResult) (record, error) {
	rec := record{
		Symbol:         r.Symbol,
		Timestamp:      r.Timestamp.UTC(),
		Matches:        r.Matches,
		SignalStrength: r.SignalStrength,
	}

	var err error
	if rec.ConditionsMet, err = jsonList(r.ConditionsMet); err != nil {
		return rec, err
	}
	if rec.ConditionsMissed, err = jsonList(r.ConditionsMissed); err != nil {
		return rec, err
	}
	if r.Quote != nil {
		if rec.Quote, err = jsonValue(r.Quote); err != nil {
			return rec, err
		}
	}
	if r.Indicators != nil {
		if rec.Indicators, err = jsonValue(r.Indicators); err != nil {
			return rec, err
		}
	}
	if r.OptionRecommendation != nil {
		if rec.Option, err = jsonValue(r.OptionRecommendation); err != nil {
			return rec, err
		}
	}
	if r.Error != "" {
		msg := r.Error
		rec.Error = &msg
	}
	return rec, nil
}

func jsonList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("marshal conditions: %w", err)
	}
	return string(b), nil
}

func jsonValue(v interface{}) (*string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	s := string(b)
	return &s, nil
}

// resultRow is what both backends scan a joined result row into
type resultRow struct {
	ID               int64
	RunID            int64
	StrategyName     string
	Symbol           string
	Timestamp        time.Time
	Matches          bool
	SignalStrength   float64
	ConditionsMet    []byte
	ConditionsMissed []byte
	Quote            []byte
	Indicators       []byte
	Option           []byte
	Error            *string
}

func (row resultRow) toStored() (contracts.StoredResult, error) {
	out := contracts.StoredResult{
		ID:           row.ID,
		RunID:        row.RunID,
		StrategyName: row.StrategyName,
		ScreeningResult: contracts.ScreeningResult{
			Symbol:           row.Symbol,
			Timestamp:        row.Timestamp,
			Matches:          row.Matches,
			SignalStrength:   row.SignalStrength,
			ConditionsMet:    []string{},
			ConditionsMissed: []string{},
		},
	}
	if row.Error != nil {
		out.Error = *row.Error
	}

	if err := unmarshalIf(row.ConditionsMet, &out.ConditionsMet); err != nil {
		return out, err
	}
	if err := unmarshalIf(row.ConditionsMissed, &out.ConditionsMissed); err != nil {
		return out, err
	}
	if len(row.Quote) > 0 {
		out.Quote = &contracts.Quote{}
		if err := unmarshalIf(row.Quote, out.Quote); err != nil {
			return out, err
		}
	}
	if len(row.Indicators) > 0 {
		out.Indicators = &contracts.TechnicalIndicators{}
		if err := unmarshalIf(row.Indicators, out.Indicators); err != nil {
			return out, err
		}
	}
	if len(row.Option) > 0 {
		out.OptionRecommendation = &contracts.OptionRecommendation{}
		if err := unmarshalIf(row.Option, out.OptionRecommendation); err != nil {
			return out, err
		}
	}
	return out, nil
}

func unmarshalIf(data []byte, dest interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal stored %T: %w", dest, err)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
