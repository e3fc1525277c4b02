package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// #region state
// State is an ordered tuple of integral features, usable as a map key.
// The zero State has no features.
type State struct {
	key string
}

// NewState builds a state from feature values in order.
func NewState(values ...int64) State {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return State{key: strings.Join(parts, ",")}
}

// Values returns a fresh copy of the feature tuple.
func (s State) Values() []int64 {
	if s.key == "" {
		return nil
	}
	parts := strings.Split(s.key, ",")
	out := make([]int64, len(parts))
	for i, p := range parts {
		// key is only ever built by NewState
		out[i], _ = strconv.ParseInt(p, 10, 64)
	}
	return out
}

// Len is the arity of the tuple.
func (s State) Len() int {
	if s.key == "" {
		return 0
	}
	return strings.Count(s.key, ",") + 1
}

func (s State) IsZero() bool { return s.key == "" }

func (s State) String() string { return "(" + s.key + ")" }
// #endregion state

// #region state-json
// MarshalJSON encodes the state as an array, e.g. [0,0,1].
func (s State) MarshalJSON() ([]byte, error) {
	return []byte("[" + s.key + "]"), nil
}

// UnmarshalJSON accepts an array of integral numbers.
func (s *State) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = State{}
		return nil
	}
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	st, err := stateFromFloats(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseState decodes the JSON array form written to the experience log.
func ParseState(text string) (State, error) {
	var s State
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return State{}, err
	}
	return s, nil
}
// #endregion state-json

func stateFromFloats(raw []float64) (State, error) {
	vals := make([]int64, len(raw))
	for i, f := range raw {
		v, err := integral(f)
		if err != nil {
			return State{}, fmt.Errorf("feature %d: %w", i, err)
		}
		vals[i] = v
	}
	return NewState(vals...), nil
}

func integral(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: non-finite value %v", ErrInvalidMetric, f)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: non-integral value %v", ErrInvalidMetric, f)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f >= 1<<63 || f < -(1<<63) {
		return 0, fmt.Errorf("%w: value %v out of range", ErrInvalidMetric, f)
	}
	return int64(f), nil
}

// #region schema
// Schema fixes the names and order of the metric features that precede the
// comparison flag in every state.
type Schema struct {
	Fields []string
}

// DefaultSchema observes tests_passed then lint_errors.
func DefaultSchema() Schema {
	return Schema{Fields: []string{"tests_passed", "lint_errors"}}
}

// Observe orders named metrics by the schema. Missing or unknown names are rejected.
func (sc Schema) Observe(metrics map[string]float64) ([]float64, error) {
	if len(metrics) != len(sc.Fields) {
		for name := range metrics {
			if !sc.has(name) {
				return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidMetric, name)
			}
		}
	}
	out := make([]float64, len(sc.Fields))
	for i, name := range sc.Fields {
		v, ok := metrics[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing field %q", ErrInvalidMetric, name)
		}
		out[i] = v
	}
	return out, nil
}

func (sc Schema) has(name string) bool {
	for _, f := range sc.Fields {
		if f == name {
			return true
		}
	}
	return false
}
// #endregion schema
