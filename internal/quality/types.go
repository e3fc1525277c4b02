package quality

import "github.com/danielpatrickdp/codeloop/internal/reward"

// #region report
// Report is the static analysis of one generated file.
type Report struct {
	Complexity   int
	Duplication  int
	SyntaxErrors int
}

// Metrics converts the report to the reward function's quality input.
func (r Report) Metrics() *reward.QualityMetrics {
	return &reward.QualityMetrics{
		CyclomaticComplexity: r.Complexity,
		CodeDuplication:      r.Duplication,
	}
}
// #endregion report

// #region comparison
// Comparison is the line diff between the original and generated file.
type Comparison struct {
	Insertions int
	Deletions  int
	Changed    bool
}
// #endregion comparison
