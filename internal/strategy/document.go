package strategy

// Document is the YAML form of a strategy.
// Parse returns a Strategy whose Document() is the normalized form:
// canonical names, explicit weights (summing to 1 for WEIGHTED),
// and defaults filled in.
type Document struct {
	Name              string           `yaml:"name" json:"name"`
	Description       string           `yaml:"description,omitempty" json:"description,omitempty"`
	Combination       string           `yaml:"combination" json:"combination"`
	MinSignalStrength *float64         `yaml:"min_signal_strength,omitempty" json:"min_signal_strength,omitempty"`
	Conditions        []ConditionSpec  `yaml:"conditions" json:"conditions"`
	OptionSelection   *OptionSelection `yaml:"option_selection,omitempty" json:"option_selection,omitempty"`
}

// ConditionSpec is one entry of the conditions list
type ConditionSpec struct {
	Kind       string    `yaml:"kind" json:"kind"`
	Label      string    `yaml:"label,omitempty" json:"label,omitempty"`
	Operator   string    `yaml:"operator,omitempty" json:"operator,omitempty"`
	Threshold  *float64  `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Thresholds []float64 `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`
	Period     int       `yaml:"period,omitempty" json:"period,omitempty"`
	Band       string    `yaml:"band,omitempty" json:"band,omitempty"`
	Fast       string    `yaml:"fast,omitempty" json:"fast,omitempty"`
	Slow       string    `yaml:"slow,omitempty" json:"slow,omitempty"`
	Weight     *float64  `yaml:"weight,omitempty" json:"weight,omitempty"`
}

// OptionSelection configures the option recommendation for matches.
// Zero values of the optional bands mean "not filtered".
type OptionSelection struct {
	OptionType      string  `yaml:"option_type" json:"option_type" default:"put" validate:"oneof=put call"`
	MinDTE          int     `yaml:"min_dte" json:"min_dte" default:"21" validate:"gte=1"`
	MaxDTE          int     `yaml:"max_dte" json:"max_dte" default:"45" validate:"gtefield=MinDTE"`
	MinVolume       int64   `yaml:"min_volume" json:"min_volume" validate:"gte=0"`
	MinOpenInterest int64   `yaml:"min_open_interest" json:"min_open_interest" validate:"gte=0"`
	MinDelta        float64 `yaml:"min_delta,omitempty" json:"min_delta,omitempty" validate:"gte=0,lte=1"`
	MaxDelta        float64 `yaml:"max_delta,omitempty" json:"max_delta,omitempty" validate:"omitempty,lte=1,gtefield=MinDelta"`
	TargetDelta     float64 `yaml:"target_delta" json:"target_delta" default:"0.3" validate:"gte=0,lte=1"`
	MinStrikeRatio  float64 `yaml:"min_strike_ratio,omitempty" json:"min_strike_ratio,omitempty" validate:"gte=0"`
	MaxStrikeRatio  float64 `yaml:"max_strike_ratio,omitempty" json:"max_strike_ratio,omitempty" validate:"omitempty,gtefield=MinStrikeRatio"`
}

func (d Document) clone() Document {
	out := d
	out.MinSignalStrength = cloneFloat(d.MinSignalStrength)
	out.Conditions = make([]ConditionSpec, len(d.Conditions))
	for i, c := range d.Conditions {
		c.Threshold = cloneFloat(c.Threshold)
		c.Weight = cloneFloat(c.Weight)
		if c.Thresholds != nil {
			c.Thresholds = append([]float64(nil), c.Thresholds...)
		}
		out.Conditions[i] = c
	}
	if d.OptionSelection != nil {
		sel := *d.OptionSelection
		out.OptionSelection = &sel
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
