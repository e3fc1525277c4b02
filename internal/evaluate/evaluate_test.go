package evaluate

import (
	"testing"

	"github.com/danielpatrickdp/codeloop/internal/agent"
	"github.com/danielpatrickdp/codeloop/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	rows := []store.PerformanceRow{
		{RequestID: "a", Versions: 2, Rewards: []float64{-5, 30}, Actions: []agent.Action{agent.ActionModify, agent.ActionProceed}},
		{RequestID: "b", Versions: 1, Rewards: []float64{-35}, Actions: []agent.Action{agent.ActionRegenerate}},
		{RequestID: "c", Versions: 3, Rewards: []float64{10}, Actions: []agent.Action{agent.ActionProceed}},
		{RequestID: "d"},
	}
	r := Analyze(rows, DefaultConfig())

	assert.Equal(t, 4, r.TotalRequests)
	assert.Equal(t, 2, r.Successful)
	assert.InDelta(t, 1.5, r.AvgVersionsPerRequest, 1e-9)
	assert.InDelta(t, 50, r.SuccessRate, 1e-9)
	assert.InDelta(t, 0, r.AvgReward, 1e-9)
	assert.True(t, r.Passed)

	assert.Equal(t, []ActionShare{
		{Action: agent.ActionProceed, Count: 2, Percent: 50},
		{Action: agent.ActionModify, Count: 1, Percent: 25},
		{Action: agent.ActionRegenerate, Count: 1, Percent: 25},
	}, r.Actions)
}

func TestAnalyze_Empty(t *testing.T) {
	r := Analyze(nil, Config{})
	assert.Zero(t, r.TotalRequests)
	assert.Zero(t, r.SuccessRate)
	assert.Empty(t, r.Actions)
	assert.True(t, r.Passed)
}

func TestAnalyze_BelowThreshold(t *testing.T) {
	rows := []store.PerformanceRow{{RequestID: "a", Versions: 1, Rewards: []float64{-30}, Actions: []agent.Action{agent.ActionProceed}}}
	r := Analyze(rows, DefaultConfig())
	assert.False(t, r.Passed)
	assert.Len(t, r.Reasons, 2)
}
