package evaluate

import (
	"fmt"
	"sort"

	"github.com/danielpatrickdp/codeloop/internal/agent"
	"github.com/danielpatrickdp/codeloop/internal/store"
)

// #region analyze
// Analyze aggregates per-request outcomes. A request counts as successful when
// its last logged reward is positive.
func Analyze(rows []store.PerformanceRow, cfg Config) Report {
	r := Report{TotalRequests: len(rows)}

	var versions, rewards int
	var rewardSum float64
	counts := make(map[agent.Action]int)
	for _, row := range rows {
		versions += row.Versions
		if n := len(row.Rewards); n > 0 && row.Rewards[n-1] > 0 {
			r.Successful++
		}
		for _, v := range row.Rewards {
			rewardSum += v
		}
		rewards += len(row.Rewards)
		for _, a := range row.Actions {
			counts[a]++
		}
	}

	if r.TotalRequests > 0 {
		r.AvgVersionsPerRequest = float64(versions) / float64(r.TotalRequests)
		r.SuccessRate = float64(r.Successful) / float64(r.TotalRequests) * 100
	}
	if rewards > 0 {
		r.AvgReward = rewardSum / float64(rewards)
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	for a, c := range counts {
		r.Actions = append(r.Actions, ActionShare{Action: a, Count: c, Percent: float64(c) / float64(total) * 100})
	}
	sort.Slice(r.Actions, func(i, j int) bool {
		if r.Actions[i].Count != r.Actions[j].Count {
			return r.Actions[i].Count > r.Actions[j].Count
		}
		return r.Actions[i].Action < r.Actions[j].Action
	})

	r.Passed = true
	if r.SuccessRate < cfg.MinSuccessRate {
		r.Passed = false
		r.Reasons = append(r.Reasons, fmt.Sprintf("success rate %.2f%% below %.2f%%", r.SuccessRate, cfg.MinSuccessRate))
	}
	if r.AvgReward < cfg.MinAvgReward {
		r.Passed = false
		r.Reasons = append(r.Reasons, fmt.Sprintf("average reward %.2f below %.2f", r.AvgReward, cfg.MinAvgReward))
	}
	return r
}
// #endregion analyze
