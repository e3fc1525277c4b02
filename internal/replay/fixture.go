package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/codeloop/internal/agent"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string              `json:"description"`
	Config      FixtureConfig       `json:"config"`
	Transitions []FixtureTransition `json:"transitions"`
	Expected    []FixtureEntry      `json:"expected"`
}

// FixtureConfig holds the agent parameters the transitions are replayed under.
type FixtureConfig struct {
	Actions []string `json:"actions"`
	Alpha   float64  `json:"alpha"`
	Gamma   float64  `json:"gamma"`
	Passes  int      `json:"passes,omitempty"`
}

// FixtureTransition mirrors agent.Transition with JSON tags.
type FixtureTransition struct {
	RequestID string      `json:"request_id"`
	State     agent.State `json:"state"`
	Action    string      `json:"action"`
	Reward    float64     `json:"reward"`
	NextState agent.State `json:"next_state"`
}

// FixtureEntry is one expected value-table row after replay.
type FixtureEntry struct {
	State  agent.State        `json:"state"`
	Values map[string]float64 `json:"values"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToAgentConfig converts a FixtureConfig to an agent.Config.
func (fc *FixtureConfig) ToAgentConfig() agent.Config {
	actions := make([]agent.Action, len(fc.Actions))
	for i, a := range fc.Actions {
		actions[i] = agent.Action(a)
	}
	return agent.Config{Actions: actions, Alpha: fc.Alpha, Gamma: fc.Gamma}
}

// ToTransitions converts every fixture transition to the agent shape.
func (f *Fixture) ToTransitions() []agent.Transition {
	out := make([]agent.Transition, len(f.Transitions))
	for i, ft := range f.Transitions {
		out[i] = agent.Transition{
			RequestID: ft.RequestID,
			State:     ft.State,
			Action:    agent.Action(ft.Action),
			Reward:    ft.Reward,
			NextState: ft.NextState,
		}
	}
	return out
}

// NewFixture captures transitions and the table they produce under cfg.
func NewFixture(description string, cfg agent.Config, ts []agent.Transition) (*Fixture, error) {
	a, err := Replay(cfg, ts, 1)
	if err != nil {
		return nil, err
	}
	f := &Fixture{
		Description: description,
		Config:      FixtureConfig{Alpha: cfg.Alpha, Gamma: cfg.Gamma, Passes: 1},
	}
	for _, act := range cfg.Actions {
		f.Config.Actions = append(f.Config.Actions, string(act))
	}
	for _, t := range ts {
		f.Transitions = append(f.Transitions, FixtureTransition{
			RequestID: t.RequestID,
			State:     t.State,
			Action:    string(t.Action),
			Reward:    t.Reward,
			NextState: t.NextState,
		})
	}
	for _, s := range a.States() {
		entry := FixtureEntry{State: s, Values: map[string]float64{}}
		for act, v := range a.Row(s) {
			entry.Values[string(act)] = v
		}
		f.Expected = append(f.Expected, entry)
	}
	return f, nil
}

// #endregion fixture-loader
