package eligibility

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Validation is the outcome of ValidateConsumption.
type Validation struct {
	Valid bool
	// Value is the consumption rounded to whole kWh when Valid.
	Value float64
	// Raw is the parsed consumption before rounding.
	Raw    float64
	Reason string
}

// ReasonNotPositive is returned for non-numeric, non-finite or non-positive
// consumption.
const ReasonNotPositive = "consumption must be a positive number"

// ValidateConsumption checks raw against the global bounds of the loaded
// configuration. Numbers of any Go numeric kind, json.Number and numeric
// strings are accepted. Comma decimal separators are allowed in strings.
func (r *Resolver) ValidateConsumption(raw any) Validation {
	v, ok := toFloat(raw)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return Validation{Reason: ReasonNotPositive}
	}

	cfg := r.tables.Config()
	if lo := cfg.MinConsumption(); v < lo {
		return Validation{Reason: "consumption must be at least " + formatKWh(lo) + " kWh"}
	}
	if hi := cfg.MaxConsumption(); v > hi {
		return Validation{Reason: "consumption must be at most " + formatKWh(hi) + " kWh"}
	}
	return Validation{Valid: true, Value: math.Round(v), Raw: v}
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		return f, err == nil
	}
	return 0, false
}

func formatKWh(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
