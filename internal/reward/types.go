package reward

import "errors"

// ErrInvalidMetric is returned when a metric is negative, non-integral or otherwise
// outside the domain the reward function is defined on.
var ErrInvalidMetric = errors.New("invalid metric")

// ErrUnknownPreset is returned by WeightsFor for a name with no preset.
var ErrUnknownPreset = errors.New("unknown reward preset")

// #region weights
// Weights parameterizes the reward function.
type Weights struct {
	Comparison        int `json:"comparison"`
	Tests             int `json:"tests"`
	ComplexityLow     int `json:"complexity_low"`
	ComplexityHigh    int `json:"complexity_high"`
	ComplexityBonus   int `json:"complexity_bonus"`
	ComplexityPenalty int `json:"complexity_penalty"`
	Min               int `json:"min"`
	Max               int `json:"max"`
}

// StandardWeights is the 10/20 preset.
func StandardWeights() Weights {
	return Weights{
		Comparison:        10,
		Tests:             20,
		ComplexityLow:     10,
		ComplexityHigh:    20,
		ComplexityBonus:   5,
		ComplexityPenalty: 5,
		Min:               -100,
		Max:               100,
	}
}

// LightWeights is the 5/10 preset used by the task runner.
func LightWeights() Weights {
	w := StandardWeights()
	w.Comparison = 5
	w.Tests = 10
	return w
}

// WeightsFor resolves a preset by name ("standard" or "light").
func WeightsFor(name string) (Weights, error) {
	switch name {
	case "", "standard":
		return StandardWeights(), nil
	case "light":
		return LightWeights(), nil
	}
	return Weights{}, ErrUnknownPreset
}
// #endregion weights

// #region input
// QualityMetrics are the optional code-quality measurements.
type QualityMetrics struct {
	CyclomaticComplexity int `json:"cyclomatic_complexity"`
	CodeDuplication      int `json:"code_duplication"`
}

// Input is one observation of a generation's outcome.
type Input struct {
	TestsPassed bool            `json:"tests_passed"`
	LintErrors  int             `json:"lint_errors"`
	Comparison  bool            `json:"comparison"`
	Quality     *QualityMetrics `json:"quality,omitempty"`
}
// #endregion input
