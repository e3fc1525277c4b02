package orchestrator

// #region imports
import (
	"context"

	"github.com/danielpatrickdp/codeloop/internal/agent"
	"github.com/danielpatrickdp/codeloop/internal/discovery"
	"github.com/danielpatrickdp/codeloop/internal/quality"
	"github.com/danielpatrickdp/codeloop/internal/reward"
	"github.com/danielpatrickdp/codeloop/internal/runner"
	"github.com/danielpatrickdp/codeloop/internal/store"
)

// #endregion

// #region collaborators

// Generator produces file content from a task.
type Generator interface {
	Plan(ctx context.Context, task string, files map[string]string) (string, error)
	Generate(ctx context.Context, task, content string) (string, error)
	Modify(ctx context.Context, task, code string) (string, error)
}

// Checker runs the project's tests and linter.
type Checker interface {
	RunTests(ctx context.Context, dir string) (runner.TestResult, error)
	RunLinter(ctx context.Context, dir string) (runner.LintResult, error)
}

// Recorder persists requests and each generated version.
type Recorder interface {
	InsertRequest(ctx context.Context, req store.Request) (string, error)
	InsertGeneration(ctx context.Context, g store.Generation) error
}

// Presenter shows progress to the operator.
type Presenter interface {
	ShowCode(title, code string)
	ShowPlan(plan string)
	Status(format string, args ...any)
	Warn(format string, args ...any)
	Success(format string, args ...any)
}

// Prompter asks yes/no questions. Optional.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// #endregion

// #region config

// Config controls one decision loop.
type Config struct {
	Epsilon       float64
	MaxIterations int
	Plan          bool // ask for an implementation plan before generating
	Schema        agent.Schema
	Weights       reward.Weights
	Discovery     discovery.Config
}

// DefaultConfig observes tests and lint with the standard reward weights.
func DefaultConfig() Config {
	return Config{
		Epsilon:       agent.DefaultEpsilon,
		MaxIterations: 3,
		Schema:        agent.DefaultSchema(),
		Weights:       reward.StandardWeights(),
		Discovery:     discovery.DefaultConfig(),
	}
}

// #endregion

// #region request-result

// Request is one feature request against a project directory.
type Request struct {
	ProjectDir string
	Task       string
}

// Result summarizes a finished loop.
type Result struct {
	RequestID   string
	FilePath    string
	Content     string
	Versions    int
	Accepted    bool // the agent chose proceed before the iteration limit
	Transitions []agent.Transition
}

// FinalReward is the reward of the last transition, or zero when none ran.
func (r Result) FinalReward() float64 {
	if len(r.Transitions) == 0 {
		return 0
	}
	return r.Transitions[len(r.Transitions)-1].Reward
}

// Observation is the measured state of one version of the file.
type Observation struct {
	Tests   runner.TestResult
	Lint    runner.LintResult
	Quality quality.Outcome
}

// #endregion
