package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValidationError reports a field that failed boundary validation.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Range is a closed numeric interval [Min, Max].
// It travels over JSON in the stored "min-max" form.
type Range struct {
	Min float64
	Max float64
}

// ParseRange converts the stored "min-max" form into a Range. The string must split
// on '-' into exactly two numeric tokens.
func ParseRange(field, raw string) (Range, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 {
		return Range{}, &ValidationError{Field: field, Value: raw, Reason: "expected \"min-max\""}
	}

	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Range{}, &ValidationError{Field: field, Value: raw, Reason: "min is not a number"}
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Range{}, &ValidationError{Field: field, Value: raw, Reason: "max is not a number"}
	}

	r := Range{Min: lo, Max: hi}
	if err := r.Validate(field); err != nil {
		return Range{}, err
	}
	return r, nil
}

// MustParseRange is ParseRange for compile-time constants.
func MustParseRange(raw string) Range {
	r, err := ParseRange("range", raw)
	if err != nil {
		panic(err)
	}
	return r
}

// Validate rejects NaN/Inf bounds and inverted ranges.
func (r Range) Validate(field string) error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return &ValidationError{Field: field, Value: r.String(), Reason: "bounds must be finite"}
	}
	if r.Min > r.Max {
		return &ValidationError{Field: field, Value: r.String(), Reason: "min exceeds max"}
	}
	return nil
}

// Contains reports whether v lies inside the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// String renders the range in its stored "min-max" form.
func (r Range) String() string {
	return strconv.FormatFloat(r.Min, 'f', -1, 64) + "-" + strconv.FormatFloat(r.Max, 'f', -1, 64)
}

// MarshalText implements encoding.TextMarshaler.
func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and validates the input.
func (r *Range) UnmarshalText(text []byte) error {
	parsed, err := ParseRange("range", string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
