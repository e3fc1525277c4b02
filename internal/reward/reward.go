package reward

import "fmt"

// #region compute
// Compute scores an observation. Pass and comparison earn their weight or lose it,
// each lint error and duplicated line costs one point, complexity adjusts the
// total when quality metrics are present, and the result is clamped to [w.Min, w.Max].
func Compute(in Input, w Weights) (int, error) {
	if in.LintErrors < 0 {
		return 0, fmt.Errorf("%w: lint errors %d", ErrInvalidMetric, in.LintErrors)
	}

	total := signed(in.Comparison, w.Comparison) + signed(in.TestsPassed, w.Tests)

	duplication := 0
	if q := in.Quality; q != nil {
		if q.CyclomaticComplexity < 0 {
			return 0, fmt.Errorf("%w: complexity %d", ErrInvalidMetric, q.CyclomaticComplexity)
		}
		if q.CodeDuplication < 0 {
			return 0, fmt.Errorf("%w: duplication %d", ErrInvalidMetric, q.CodeDuplication)
		}
		switch {
		case q.CyclomaticComplexity <= w.ComplexityLow:
			total += w.ComplexityBonus
		case q.CyclomaticComplexity > w.ComplexityHigh:
			total -= w.ComplexityPenalty
		}
		duplication = q.CodeDuplication
	}

	// Counts are unbounded; subtract them last so a huge count saturates at w.Min.
	total = drain(total, in.LintErrors, w.Min)
	total = drain(total, duplication, w.Min)
	return clamp(total, w.Min, w.Max), nil
}

// Standard is Compute with the standard preset.
func Standard(testsPassed bool, lintErrors int, comparison bool) (int, error) {
	return Compute(Input{TestsPassed: testsPassed, LintErrors: lintErrors, Comparison: comparison}, StandardWeights())
}
// #endregion compute

func signed(ok bool, weight int) int {
	if ok {
		return weight
	}
	return -weight
}

// drain returns v-n, or lo when that would fall below lo.
func drain(v, n, lo int) int {
	if v < lo || n > v-lo {
		return lo
	}
	return v - n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
