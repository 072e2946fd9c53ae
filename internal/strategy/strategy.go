package strategy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Combination decides how condition outcomes become a match
type Combination string

const (
	CombineAll      Combination = "ALL"
	CombineAny      Combination = "ANY"
	CombineWeighted Combination = "WEIGHTED"
)

// Strategy is a parsed, normalized strategy. It is immutable: accessors
// hand out copies, so one Strategy is shared read-only by every worker.
// ⭐ SSOT: 전략 정의는 Parse를 통해서만 생성
type Strategy struct {
	doc         Document
	combination Combination
	conditions  []Condition
	totalWeight float64
}

// Name returns the strategy name
func (s *Strategy) Name() string { return s.doc.Name }

// Description returns the optional description
func (s *Strategy) Description() string { return s.doc.Description }

// Combination returns the combination mode
func (s *Strategy) Combination() Combination { return s.combination }

// MinSignalStrength returns the WEIGHTED threshold, if configured
func (s *Strategy) MinSignalStrength() (float64, bool) {
	if s.doc.MinSignalStrength == nil {
		return 0, false
	}
	return *s.doc.MinSignalStrength, true
}

// Conditions returns the ordered conditions
func (s *Strategy) Conditions() []Condition {
	return append([]Condition(nil), s.conditions...)
}

// TotalWeight is the sum of all condition weights
func (s *Strategy) TotalWeight() float64 { return s.totalWeight }

// OptionSelection returns the option recommendation settings, if any
func (s *Strategy) OptionSelection() (OptionSelection, bool) {
	if s.doc.OptionSelection == nil {
		return OptionSelection{}, false
	}
	return *s.doc.OptionSelection, true
}

// Document returns the normalized document
func (s *Strategy) Document() Document {
	return s.doc.clone()
}

// MarshalYAML renders the normalized document. Parsing the output
// yields an identical Strategy.
func (s *Strategy) MarshalYAML() ([]byte, error) {
	out, err := yaml.Marshal(s.doc)
	if err != nil {
		return nil, fmt.Errorf("marshal strategy %s: %w", s.doc.Name, err)
	}
	return out, nil
}

// Hash is the SHA256 of the normalized document's canonical JSON
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func (s *Strategy) Hash() (string, error) {
	jsonBytes, err := json.Marshal(s.doc)
	if err != nil {
		return "", fmt.Errorf("hash strategy %s: %w", s.doc.Name, err)
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
