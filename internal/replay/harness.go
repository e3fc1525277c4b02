package replay

import (
	"fmt"
	"math"
	"sort"

	"github.com/danielpatrickdp/codeloop/internal/agent"
)

// #region replay
// Replay builds a fresh agent from cfg and feeds it the transitions in order,
// passes times over. Nothing is logged or persisted.
func Replay(cfg agent.Config, transitions []agent.Transition, passes int) (*agent.Agent, error) {
	if passes < 1 {
		passes = 1
	}
	a, err := agent.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("new agent: %w", err)
	}
	for p := 0; p < passes; p++ {
		if err := a.LearnFromExperiences(transitions); err != nil {
			return nil, fmt.Errorf("pass %d: %w", p+1, err)
		}
	}
	return a, nil
}
// #endregion replay

// #region compare
// Mismatch is one expected value the replayed table does not reproduce.
type Mismatch struct {
	State    agent.State
	Action   agent.Action
	Expected float64
	Actual   float64
	Missing  bool
}

func (m Mismatch) String() string {
	if m.Missing {
		return fmt.Sprintf("%s %s: state not materialized (expected %.6f)", m.State, m.Action, m.Expected)
	}
	return fmt.Sprintf("%s %s: expected %.6f, got %.6f", m.State, m.Action, m.Expected, m.Actual)
}

// Compare checks every expected entry against a within tol. States the agent
// has that the fixture does not mention are ignored.
func Compare(a *agent.Agent, expected []FixtureEntry, tol float64) []Mismatch {
	var out []Mismatch
	for _, e := range expected {
		acts := make([]string, 0, len(e.Values))
		for act := range e.Values {
			acts = append(acts, act)
		}
		sort.Strings(acts)
		for _, act := range acts {
			want := e.Values[act]
			got, ok := a.Value(e.State, agent.Action(act))
			if !ok {
				out = append(out, Mismatch{State: e.State, Action: agent.Action(act), Expected: want, Missing: true})
				continue
			}
			if math.Abs(got-want) > tol {
				out = append(out, Mismatch{State: e.State, Action: agent.Action(act), Expected: want, Actual: got})
			}
		}
	}
	return out
}
// #endregion compare

// #region summarize
// Summary provides aggregate stats over a transition log.
type Summary struct {
	Transitions    int
	DistinctStates int
	ActionCounts   map[agent.Action]int
	TotalReward    float64
	MeanReward     float64
	Requests       int
}

// Summarize computes aggregate stats over transitions.
func Summarize(transitions []agent.Transition) Summary {
	s := Summary{
		Transitions:  len(transitions),
		ActionCounts: make(map[agent.Action]int),
	}
	states := make(map[agent.State]bool)
	requests := make(map[string]bool)
	for _, t := range transitions {
		states[t.State] = true
		states[t.NextState] = true
		requests[t.RequestID] = true
		s.ActionCounts[t.Action]++
		s.TotalReward += t.Reward
	}
	s.DistinctStates = len(states)
	s.Requests = len(requests)
	if s.Transitions > 0 {
		s.MeanReward = s.TotalReward / float64(s.Transitions)
	}
	return s
}
// #endregion summarize
