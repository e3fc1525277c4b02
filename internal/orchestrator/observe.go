package orchestrator

// #region imports
import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/codeloop/internal/agent"
	"github.com/danielpatrickdp/codeloop/internal/quality"
	"github.com/danielpatrickdp/codeloop/internal/reward"
)

// #endregion

// observableMetrics names every value a schema may select.
var observableMetrics = map[string]func(Observation) float64{
	"tests_passed":  func(o Observation) float64 { return boolMetric(o.Tests.Passed) },
	"lint_errors":   func(o Observation) float64 { return float64(o.Lint.Errors) },
	"complexity":    func(o Observation) float64 { return float64(o.Quality.Report.Complexity) },
	"duplication":   func(o Observation) float64 { return float64(o.Quality.Report.Duplication) },
	"syntax_errors": func(o Observation) float64 { return float64(o.Quality.Report.SyntaxErrors) },
}

func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// #region observe

// observe runs tests, lint and static analysis over the current version.
func (d *Driver) observe(ctx context.Context, c *cycle) (Observation, error) {
	tests, err := d.checker.RunTests(ctx, c.projectDir)
	if err != nil {
		return Observation{}, fmt.Errorf("run tests: %w", err)
	}
	lint, err := d.checker.RunLinter(ctx, c.projectDir)
	if err != nil {
		return Observation{}, fmt.Errorf("run linter: %w", err)
	}
	if !lint.Ran {
		d.presenter.Warn("linter unavailable; counting zero lint errors")
		lint.Errors = 0
	}
	q, err := quality.Evaluate(ctx, c.original, c.current)
	if err != nil {
		return Observation{}, fmt.Errorf("analyze: %w", err)
	}

	obs := Observation{Tests: tests, Lint: lint, Quality: q}
	d.logger.Debug("observed",
		zap.String("request_id", c.requestID),
		zap.Bool("tests_passed", tests.Passed),
		zap.Int("lint_errors", lint.Errors),
		zap.Bool("comparison", q.Comparison),
		zap.Int("complexity", q.Report.Complexity))
	return obs, nil
}

// state maps an observation onto the agent's state space via the schema.
func (d *Driver) state(obs Observation) (agent.State, error) {
	named := make(map[string]float64, len(d.cfg.Schema.Fields))
	for _, f := range d.cfg.Schema.Fields {
		named[f] = observableMetrics[f](obs)
	}
	vals, err := d.cfg.Schema.Observe(named)
	if err != nil {
		return agent.State{}, err
	}
	return d.agent.GetState(vals, obs.Quality.Comparison)
}

func (d *Driver) reward(obs Observation) (float64, error) {
	r, err := reward.Compute(reward.Input{
		TestsPassed: obs.Tests.Passed,
		LintErrors:  obs.Lint.Errors,
		Comparison:  obs.Quality.Comparison,
		Quality:     obs.Quality.Report.Metrics(),
	}, d.cfg.Weights)
	if err != nil {
		return 0, err
	}
	return float64(r), nil
}

// #endregion
