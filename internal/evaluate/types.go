package evaluate

import "github.com/danielpatrickdp/codeloop/internal/agent"

// #region config
// Config holds the thresholds a report is judged against.
type Config struct {
	MinSuccessRate float64 // percent of requests whose last reward was positive
	MinAvgReward   float64
}

// DefaultConfig passes any report with a majority of successful requests.
func DefaultConfig() Config {
	return Config{MinSuccessRate: 50, MinAvgReward: 0}
}
// #endregion config

// #region report
// ActionShare is one row of the action distribution.
type ActionShare struct {
	Action  agent.Action
	Count   int
	Percent float64
}

// Report summarizes logged performance across requests.
type Report struct {
	TotalRequests         int
	Successful            int
	AvgVersionsPerRequest float64
	SuccessRate           float64
	AvgReward             float64
	Actions               []ActionShare

	Passed  bool
	Reasons []string
}
// #endregion report
