package strategy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// weightTolerance decides when weights already sum to 1
const weightTolerance = 1e-9

// ParseError reports an invalid strategy document. Screening never
// starts when a strategy fails to parse.
type ParseError struct {
	Field   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid strategy: %s: %s", e.Field, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseErr(field, format string, args ...interface{}) *ParseError {
	return &ParseError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report yaml names (max_dte) instead of Go names (MaxDTE)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// ParseFile reads and parses a strategy YAML file
func ParseFile(path string) (*Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML strategy document.
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Parse(data []byte) (*Strategy, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, parseErr("document", "empty document")
		}
		return nil, &ParseError{Field: "document", Message: err.Error(), Err: err}
	}

	return FromDocument(doc)
}

// FromDocument validates and normalizes a decoded document
func FromDocument(in Document) (*Strategy, error) {
	doc := in.clone()

	doc.Name = strings.TrimSpace(doc.Name)
	if doc.Name == "" {
		return nil, parseErr("name", "required")
	}

	combination, err := parseCombination(doc.Combination)
	if err != nil {
		return nil, err
	}
	doc.Combination = string(combination)

	if len(doc.Conditions) == 0 {
		return nil, parseErr("conditions", "at least one condition is required")
	}

	if doc.MinSignalStrength != nil {
		v := *doc.MinSignalStrength
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, parseErr("min_signal_strength", "must be in [0, 1], got %v", v)
		}
	} else if combination == CombineWeighted {
		return nil, parseErr("min_signal_strength", "required for WEIGHTED combination")
	}

	total, err := resolveWeights(doc.Conditions, combination)
	if err != nil {
		return nil, err
	}

	conditions := make([]Condition, 0, len(doc.Conditions))
	labels := make(map[string]int, len(doc.Conditions))
	for i := range doc.Conditions {
		field := fmt.Sprintf("conditions[%d]", i)

		cond, err := buildCondition(&doc.Conditions[i], field)
		if err != nil {
			return nil, err
		}
		if j, dup := labels[cond.Label()]; dup {
			return nil, parseErr(field+".label", "duplicate label %q (also conditions[%d]); set an explicit label", cond.Label(), j)
		}
		labels[cond.Label()] = i
		conditions = append(conditions, cond)
	}

	if doc.OptionSelection != nil {
		if err := normalizeOptionSelection(doc.OptionSelection); err != nil {
			return nil, err
		}
	}

	return &Strategy{
		doc:         doc,
		combination: combination,
		conditions:  conditions,
		totalWeight: total,
	}, nil
}

func parseCombination(raw string) (Combination, error) {
	switch c := Combination(strings.ToUpper(strings.TrimSpace(raw))); c {
	case CombineAll, CombineAny, CombineWeighted:
		return c, nil
	case "":
		return "", parseErr("combination", "required (ALL, ANY or WEIGHTED)")
	default:
		return "", parseErr("combination", "unknown combination %q (want ALL, ANY or WEIGHTED)", raw)
	}
}

// resolveWeights fills default weights and, for WEIGHTED, scales them to sum to 1.
// Weights already summing to 1 are kept as-is so re-parsing is stable.
func resolveWeights(specs []ConditionSpec, combination Combination) (float64, error) {
	total := 0.0
	for i := range specs {
		w := 1.0
		if specs[i].Weight != nil {
			w = *specs[i].Weight
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			field := fmt.Sprintf("conditions[%d].weight", i)
			if combination == CombineWeighted {
				return 0, parseErr(field, "WEIGHTED combination requires positive weights, got %v", w)
			}
			return 0, parseErr(field, "must be positive, got %v", w)
		}
		specs[i].Weight = &w
		total += w
	}

	if combination != CombineWeighted || math.Abs(total-1) <= weightTolerance {
		return total, nil
	}

	normalized := 0.0
	for i := range specs {
		w := *specs[i].Weight / total
		specs[i].Weight = &w
		normalized += w
	}
	return normalized, nil
}

func buildCondition(spec *ConditionSpec, field string) (Condition, error) {
	kind := Kind(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(spec.Kind), "-", "_")))
	spec.Kind = string(kind)
	spec.Label = strings.TrimSpace(spec.Label)

	var (
		cond Condition
		cmp  Comparison
		err  error
	)

	switch kind {
	case KindPriceVsSMA, KindPriceVsEMA:
		if err = onlyFields(spec, field, "period"); err != nil {
			return nil, err
		}
		ema := kind == KindPriceVsEMA
		if !validPeriod(spec.Period, ema) {
			return nil, parseErr(field+".period", "unsupported period %d for %s", spec.Period, kind)
		}
		if cmp, err = parseComparison(spec, field, true); err != nil {
			return nil, err
		}
		cond = PriceVsMA{base: newBase(spec, kind, cmp), EMA: ema, Period: spec.Period, Compare: cmp}

	case KindBollingerPosition:
		if err = onlyFields(spec, field, "band"); err != nil {
			return nil, err
		}
		band := Band(strings.ToLower(strings.TrimSpace(spec.Band)))
		if band != BandUpper && band != BandMiddle && band != BandLower {
			return nil, parseErr(field+".band", "must be upper, middle or lower, got %q", spec.Band)
		}
		spec.Band = string(band)
		if cmp, err = parseComparison(spec, field, true); err != nil {
			return nil, err
		}
		cond = BollingerPosition{base: newBase(spec, kind, cmp), Band: band, Compare: cmp}

	case KindRSIThreshold, KindVolumeSpike, KindMACDHistogram, KindATRPercent, KindChangePercent:
		if err = onlyFields(spec, field); err != nil {
			return nil, err
		}
		if cmp, err = parseComparison(spec, field, false); err != nil {
			return nil, err
		}
		b := newBase(spec, kind, cmp)
		switch kind {
		case KindRSIThreshold:
			cond = RSIThreshold{base: b, Compare: cmp}
		case KindVolumeSpike:
			cond = VolumeSpike{base: b, Compare: cmp}
		case KindMACDHistogram:
			cond = MACDHistogram{base: b, Compare: cmp}
		case KindATRPercent:
			cond = ATRPercent{base: b, Compare: cmp}
		default:
			cond = ChangePercent{base: b, Compare: cmp}
		}

	case KindCrossesAbove, KindCrossesBelow:
		if err = onlyFields(spec, field, "fast", "slow"); err != nil {
			return nil, err
		}
		if spec.Operator != "" || spec.Threshold != nil || len(spec.Thresholds) > 0 {
			return nil, parseErr(field, "%s takes fast and slow series, not operator/threshold", kind)
		}
		fast, err := parseSeries(spec.Fast, field+".fast")
		if err != nil {
			return nil, err
		}
		slow, err := parseSeries(spec.Slow, field+".slow")
		if err != nil {
			return nil, err
		}
		if fast == slow {
			return nil, parseErr(field, "fast and slow series must differ")
		}
		spec.Fast, spec.Slow = string(fast), string(slow)
		cond = Crossover{base: newBase(spec, kind, cmp), Above: kind == KindCrossesAbove, Fast: fast, Slow: slow}

	case "":
		return nil, parseErr(field+".kind", "required")
	default:
		return nil, parseErr(field+".kind", "unknown condition kind %q", spec.Kind)
	}

	return cond, nil
}

func newBase(spec *ConditionSpec, kind Kind, cmp Comparison) base {
	label := spec.Label
	if label == "" {
		label = defaultLabel(kind, *spec, cmp)
	}
	return base{label: label, weight: *spec.Weight}
}

// parseComparison reads operator and threshold(s). Ratio kinds default
// the single threshold to 1 (price vs average, price vs band).
func parseComparison(spec *ConditionSpec, field string, ratio bool) (Comparison, error) {
	raw := strings.ToLower(strings.TrimSpace(spec.Operator))
	if raw == "" {
		return Comparison{}, parseErr(field+".operator", "required")
	}
	op, ok := operatorAliases[raw]
	if !ok {
		return Comparison{}, parseErr(field+".operator", "unknown operator %q", spec.Operator)
	}
	spec.Operator = string(op)

	for _, v := range spec.Thresholds {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Comparison{}, parseErr(field+".thresholds", "must be finite")
		}
	}
	if spec.Threshold != nil && (math.IsNaN(*spec.Threshold) || math.IsInf(*spec.Threshold, 0)) {
		return Comparison{}, parseErr(field+".threshold", "must be finite")
	}

	if op == OpBetween {
		if spec.Threshold != nil || len(spec.Thresholds) != 2 {
			return Comparison{}, parseErr(field+".thresholds", "between requires thresholds: [low, high]")
		}
		low, high := spec.Thresholds[0], spec.Thresholds[1]
		if low > high {
			return Comparison{}, parseErr(field+".thresholds", "low %v is greater than high %v", low, high)
		}
		return Comparison{Op: op, Low: low, High: high}, nil
	}

	var value float64
	switch {
	case spec.Threshold != nil && len(spec.Thresholds) > 0:
		return Comparison{}, parseErr(field, "set threshold or thresholds, not both")
	case spec.Threshold != nil:
		value = *spec.Threshold
	case len(spec.Thresholds) == 1:
		value = spec.Thresholds[0]
	case len(spec.Thresholds) > 1:
		return Comparison{}, parseErr(field+".thresholds", "%s takes a single threshold", op)
	case ratio:
		value = 1
	default:
		return Comparison{}, parseErr(field+".threshold", "required")
	}

	spec.Threshold = &value
	spec.Thresholds = nil
	return Comparison{Op: op, Low: value}, nil
}

func parseSeries(raw, field string) (Series, error) {
	s := Series(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return "", parseErr(field, "required")
	}
	if !knownSeries[s] {
		return "", parseErr(field, "unknown series %q", raw)
	}
	return s, nil
}

func validPeriod(period int, ema bool) bool {
	if ema {
		return period == 12 || period == 26
	}
	switch period {
	case 20, 50, 60, 200:
		return true
	}
	return false
}

// onlyFields rejects kind-specific operands that do not belong to this kind
func onlyFields(spec *ConditionSpec, field string, allowed ...string) error {
	allow := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allow[a] = true
	}

	set := map[string]bool{
		"period": spec.Period != 0,
		"band":   spec.Band != "",
		"fast":   spec.Fast != "",
		"slow":   spec.Slow != "",
	}
	for _, name := range []string{"period", "band", "fast", "slow"} {
		if set[name] && !allow[name] {
			return parseErr(field+"."+name, "not applicable to %s", spec.Kind)
		}
	}
	return nil
}

func normalizeOptionSelection(sel *OptionSelection) error {
	sel.OptionType = strings.ToLower(strings.TrimSpace(sel.OptionType))
	if err := defaults.Set(sel); err != nil {
		return &ParseError{Field: "option_selection", Message: err.Error(), Err: err}
	}

	if err := validate.Struct(sel); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			msg := "must satisfy " + fe.Tag()
			if fe.Param() != "" {
				msg += "=" + fe.Param()
			}
			return &ParseError{Field: "option_selection." + fe.Field(), Message: msg, Err: err}
		}
		return &ParseError{Field: "option_selection", Message: err.Error(), Err: err}
	}
	return nil
}
