package wizard

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Normalize converts raw input into the field's storage type: string for
// categorical, int for integer and float64 for float fields.
func (f Field) Normalize(raw any) (any, error) {
	switch f.Kind {
	case KindCategorical:
		return f.normalizeCategorical(raw)
	case KindInteger:
		n, err := toFloat(raw)
		if err != nil {
			return nil, f.invalid(raw, err.Error())
		}
		if n != math.Trunc(n) {
			return nil, f.invalid(raw, "must be a whole number")
		}
		if err := f.checkRange(raw, n); err != nil {
			return nil, err
		}
		return int(n), nil
	case KindFloat:
		n, err := toFloat(raw)
		if err != nil {
			return nil, f.invalid(raw, err.Error())
		}
		if err := f.checkRange(raw, n); err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, f.invalid(raw, fmt.Sprintf("field kind %q is not supported", f.Kind))
	}
}

func (f Field) normalizeCategorical(raw any) (any, error) {
	text, ok := raw.(string)
	if !ok {
		return nil, f.invalid(raw, "must be one of "+f.optionList())
	}
	text = strings.TrimSpace(text)
	values := make([]string, 0, len(f.Options))
	for _, option := range f.Options {
		if strings.EqualFold(option.Value, text) || strings.EqualFold(option.Label, text) {
			return option.Value, nil
		}
		values = append(values, option.Value)
	}
	err := f.invalid(raw, "must be one of "+f.optionList())
	err.Suggestion = suggest(text, values)
	return nil, err
}

func (f Field) checkRange(raw any, n float64) error {
	if n < f.Min || n > f.Max {
		return f.invalid(raw, fmt.Sprintf("must be between %v and %v", f.Min, f.Max))
	}
	return nil
}

func (f Field) optionList() string {
	values := make([]string, len(f.Options))
	for i, option := range f.Options {
		values[i] = option.Value
	}
	return strings.Join(values, ", ")
}

func (f Field) invalid(raw any, reason string) *ValidationError {
	return &ValidationError{Field: f.Name, Value: raw, Reason: reason}
}

func toFloat(raw any) (float64, error) {
	var n float64
	switch v := raw.(type) {
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case float64:
		n = v
	case float32:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v.String())
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		n = f
	default:
		return 0, fmt.Errorf("expected a number, got %T", raw)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("must be a finite number")
	}
	return n, nil
}
