package quality

import (
	"context"
	"strings"
)

// #region outcome
// Outcome is everything the decision loop needs from one generation.
type Outcome struct {
	Report     Report
	Diff       Comparison
	Comparison bool
}

// Evaluate analyzes generated against original. The comparison flag holds when
// the generated file is non-empty, parses cleanly and differs from the original.
func Evaluate(ctx context.Context, original, generated string) (Outcome, error) {
	report, err := Analyze(ctx, generated)
	if err != nil {
		return Outcome{}, err
	}
	diff := Compare(original, generated)
	return Outcome{
		Report:     report,
		Diff:       diff,
		Comparison: strings.TrimSpace(generated) != "" && report.SyntaxErrors == 0 && diff.Changed,
	}, nil
}
// #endregion outcome
