package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/danielpatrickdp/codeloop/internal/agent"
	"github.com/danielpatrickdp/codeloop/internal/metrics"
	"github.com/danielpatrickdp/codeloop/internal/runner"
	"github.com/danielpatrickdp/codeloop/internal/snapshot"
	"github.com/danielpatrickdp/codeloop/internal/store"
)

// #region fakes

const (
	goodCode   = "export default function Login() {\n  return <div>login</div>;\n}\n"
	brokenCode = "const broken = 1;\nexport default broken;\n"
)

type fakeGenerator struct {
	generated []string // returned in order by Generate; the last one repeats
	modified  string
	plans     int
	generates int
	modifies  int
}

func (g *fakeGenerator) Plan(context.Context, string, map[string]string) (string, error) {
	g.plans++
	return "1. Add a login form", nil
}

func (g *fakeGenerator) Generate(context.Context, string, string) (string, error) {
	i := min(g.generates, len(g.generated)-1)
	g.generates++
	return g.generated[i], nil
}

func (g *fakeGenerator) Modify(context.Context, string, string) (string, error) {
	g.modifies++
	return g.modified, nil
}

// fakeChecker fails tests and reports lint errors while target contains "broken".
type fakeChecker struct {
	target  string
	lintErr error
}

func (c *fakeChecker) RunTests(context.Context, string) (runner.TestResult, error) {
	data, _ := os.ReadFile(c.target)
	return runner.TestResult{Passed: !strings.Contains(string(data), "broken")}, nil
}

func (c *fakeChecker) RunLinter(context.Context, string) (runner.LintResult, error) {
	if c.lintErr != nil {
		return runner.LintResult{Ran: true}, c.lintErr
	}
	data, _ := os.ReadFile(c.target)
	if strings.Contains(string(data), "broken") {
		return runner.LintResult{Errors: 2, Ran: true}, nil
	}
	return runner.LintResult{Ran: true}, nil
}

type fakePrompter struct {
	answer bool
	asked  int
}

func (p *fakePrompter) Confirm(string) (bool, error) {
	p.asked++
	return p.answer, nil
}

type failingLog struct{}

func (failingLog) AppendTransition(context.Context, agent.Transition) error {
	return errors.New("disk full")
}

func (failingLog) Transitions(context.Context) ([]agent.Transition, error) { return nil, nil }

// #endregion

// #region helpers

type fixture struct {
	dir      string
	target   string
	db       *store.Store
	snapPath string
	agent    *agent.Agent
	gen      *fakeGenerator
	checker  *fakeChecker
}

func newFixture(t *testing.T, cfg agent.Config, opts ...agent.Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	target := filepath.Join(dir, "components", "Login.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("export default function Login() { return null; }\n"), 0o644))

	db, err := store.NewStore(filepath.Join(t.TempDir(), "codeloop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	snapPath := filepath.Join(t.TempDir(), "q_table.json")
	base := []agent.Option{
		agent.WithRand(rand.New(rand.NewPCG(7, 11))),
		agent.WithLog(db),
		agent.WithSnapshots(snapshot.NewFileStore(snapPath)),
	}
	ag, err := agent.New(cfg, append(base, opts...)...)
	require.NoError(t, err)

	return &fixture{
		dir:      dir,
		target:   target,
		db:       db,
		snapPath: snapPath,
		agent:    ag,
		gen:      &fakeGenerator{generated: []string{goodCode}, modified: goodCode},
		checker:  &fakeChecker{target: target},
	}
}

func (f *fixture) driver(t *testing.T, cfg Config, deps Deps) *Driver {
	t.Helper()
	deps.Generator = f.gen
	deps.Checker = f.checker
	if deps.Recorder == nil {
		deps.Recorder = f.db
	}
	d, err := NewDriver(cfg, f.agent, deps)
	require.NoError(t, err)
	return d
}

func greedy() Config {
	cfg := DefaultConfig()
	cfg.Epsilon = 0
	return cfg
}

// prefer seeds a positive value for action in s so a greedy choice picks it.
func prefer(t *testing.T, a *agent.Agent, s agent.State, action agent.Action) {
	t.Helper()
	require.NoError(t, a.LearnFromExperiences([]agent.Transition{
		{State: s, Action: action, Reward: 10, NextState: s},
	}))
}

// #endregion

func TestRun_ProceedOnFirstIteration(t *testing.T) {
	f := newFixture(t, agent.DefaultConfig())
	passing := agent.NewState(1, 0, 1)
	prefer(t, f.agent, passing, agent.ActionProceed)

	rec := metrics.New()
	d := f.driver(t, greedy(), Deps{Metrics: rec})

	res, err := d.Run(context.Background(), Request{ProjectDir: f.dir, Task: "add a login form"})
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.Equal(t, 1, res.Versions)
	assert.Equal(t, f.target, res.FilePath)
	require.Len(t, res.Transitions, 1)
	tr := res.Transitions[0]
	assert.Equal(t, agent.ActionProceed, tr.Action)
	assert.Equal(t, 35.0, tr.Reward)
	assert.Equal(t, passing, tr.State)
	assert.Equal(t, passing, tr.NextState)
	assert.Equal(t, 35.0, res.FinalReward())

	// 1 + 0.1*(35 + 0.9*1 - 1)
	v, ok := f.agent.Value(passing, agent.ActionProceed)
	require.True(t, ok)
	assert.InDelta(t, 4.49, v, 1e-9)

	written, err := os.ReadFile(f.target)
	require.NoError(t, err)
	assert.Equal(t, goodCode, string(written))

	ctx := context.Background()
	gens, err := f.db.Generations(ctx, res.RequestID)
	require.NoError(t, err)
	require.Len(t, gens, 1)
	assert.Equal(t, 1, gens[0].Version)

	logged, err := f.db.TransitionsForRequest(ctx, res.RequestID)
	require.NoError(t, err)
	assert.Len(t, logged, 1)

	_, err = os.Stat(f.snapPath)
	assert.NoError(t, err, "value table persisted")
	assert.Equal(t, 0, f.gen.plans)
}

func TestRun_ModifyThenProceed(t *testing.T) {
	f := newFixture(t, agent.DefaultConfig())
	f.gen.generated = []string{brokenCode}
	prefer(t, f.agent, agent.NewState(0, 2, 1), agent.ActionModify)
	prefer(t, f.agent, agent.NewState(1, 0, 1), agent.ActionProceed)

	d := f.driver(t, greedy(), Deps{})
	res, err := d.Run(context.Background(), Request{ProjectDir: f.dir, Task: "fix the login form"})
	require.NoError(t, err)

	require.Len(t, res.Transitions, 2)
	first := res.Transitions[0]
	assert.Equal(t, agent.ActionModify, first.Action)
	assert.Equal(t, agent.NewState(0, 2, 1), first.State)
	assert.Equal(t, agent.NewState(1, 0, 1), first.NextState)
	assert.Equal(t, 35.0, first.Reward)
	assert.Equal(t, agent.ActionProceed, res.Transitions[1].Action)

	assert.True(t, res.Accepted)
	assert.Equal(t, 2, res.Versions)
	assert.Equal(t, goodCode, res.Content)
	assert.Equal(t, 1, f.gen.modifies)

	gens, err := f.db.Generations(context.Background(), res.RequestID)
	require.NoError(t, err)
	require.Len(t, gens, 2)
	assert.Equal(t, agent.Action(""), gens[0].Action)
	assert.Equal(t, agent.ActionModify, gens[1].Action)
}

func TestRun_StopsAtIterationLimit(t *testing.T) {
	f := newFixture(t, agent.Config{Actions: []agent.Action{agent.ActionRegenerate}, Alpha: 0.1, Gamma: 0.9})
	rec := metrics.New()
	cfg := greedy()
	cfg.MaxIterations = 2
	d := f.driver(t, cfg, Deps{Metrics: rec})

	res, err := d.Run(context.Background(), Request{ProjectDir: f.dir, Task: "add a login form"})
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Len(t, res.Transitions, 2)
	assert.Equal(t, 3, res.Versions)
	assert.Equal(t, 3, f.gen.generates)
}

func TestRun_PlansWhenEnabled(t *testing.T) {
	f := newFixture(t, agent.Config{Actions: []agent.Action{agent.ActionProceed}, Alpha: 0.1, Gamma: 0.9})
	cfg := greedy()
	cfg.Plan = true
	d := f.driver(t, cfg, Deps{})

	res, err := d.Run(context.Background(), Request{ProjectDir: f.dir, Task: "add a login form"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.gen.plans)

	req, err := f.db.GetRequest(context.Background(), res.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "add a login form", req.HumanRequest)
	assert.Equal(t, "1. Add a login form", req.TaskDescription)
	assert.Equal(t, filepath.Join("components", "Login.js"), req.FilePath)
}

func TestRun_RegeneratesOnFrameworkIssuesWhenConfirmed(t *testing.T) {
	f := newFixture(t, agent.Config{Actions: []agent.Action{agent.ActionProceed}, Alpha: 0.1, Gamma: 0.9})
	f.gen.generated = []string{
		"export default function Login() {\n  router.replace('/home');\n  return null;\n}\n",
		goodCode,
	}
	p := &fakePrompter{answer: true}
	d := f.driver(t, greedy(), Deps{Prompter: p})

	res, err := d.Run(context.Background(), Request{ProjectDir: f.dir, Task: "add a login form"})
	require.NoError(t, err)
	assert.Equal(t, 1, p.asked)
	assert.Equal(t, 2, f.gen.generates)
	assert.Equal(t, goodCode, res.Content)
	assert.Equal(t, 1, res.Versions)
}

func TestRun_LogFailureKeepsLearning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := newFixture(t, agent.Config{Actions: []agent.Action{agent.ActionProceed}, Alpha: 0.1, Gamma: 0.9},
		agent.WithLog(failingLog{}), agent.WithLogger(zap.New(core)))
	d := f.driver(t, greedy(), Deps{})

	res, err := d.Run(context.Background(), Request{ProjectDir: f.dir, Task: "add a login form"})
	require.NoError(t, err)
	require.Len(t, res.Transitions, 1)

	v, ok := f.agent.Value(agent.NewState(1, 0, 1), agent.ActionProceed)
	require.True(t, ok)
	assert.InDelta(t, 3.5, v, 1e-9)
	assert.Equal(t, 1, logs.FilterMessage("experience log append failed").Len())
}

func TestRun_NewFileWhenProjectHasNoCandidates(t *testing.T) {
	f := newFixture(t, agent.Config{Actions: []agent.Action{agent.ActionProceed}, Alpha: 0.1, Gamma: 0.9})
	require.NoError(t, os.RemoveAll(filepath.Join(f.dir, "components")))
	d := f.driver(t, greedy(), Deps{})

	res, err := d.Run(context.Background(), Request{ProjectDir: f.dir, Task: "add a login form"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.FilePath, filepath.Join(f.dir, "components")+string(filepath.Separator)))
	data, err := os.ReadFile(res.FilePath)
	require.NoError(t, err)
	assert.Equal(t, goodCode, string(data))
}

func TestRun_LinterTimeoutFailsTheRun(t *testing.T) {
	f := newFixture(t, agent.DefaultConfig())
	f.checker.lintErr = fmt.Errorf("npx: %w after 2m0s", runner.ErrTimeout)
	rec := metrics.New()
	d := f.driver(t, greedy(), Deps{Metrics: rec})

	res, err := d.Run(context.Background(), Request{ProjectDir: f.dir, Task: "add a login form"})
	require.ErrorIs(t, err, runner.ErrTimeout)
	assert.Empty(t, res.Transitions)
	assert.Empty(t, f.agent.States())

	logged, err := f.db.TransitionsForRequest(context.Background(), res.RequestID)
	require.NoError(t, err)
	assert.Empty(t, logged)
}

func TestRun_ConcurrentRunsRecoverFromLog(t *testing.T) {
	ctx := context.Background()
	cfg := agent.Config{Actions: []agent.Action{agent.ActionProceed}, Alpha: 0.1, Gamma: 0.9}
	f := newFixture(t, cfg)
	original, err := os.ReadFile(f.target)
	require.NoError(t, err)

	// Both agents start from the same empty table, as two processes would.
	other, err := agent.New(cfg, agent.WithLog(f.db), agent.WithSnapshots(snapshot.NewFileStore(f.snapPath)))
	require.NoError(t, err)
	second, err := NewDriver(greedy(), other, Deps{Generator: f.gen, Checker: f.checker, Recorder: f.db})
	require.NoError(t, err)

	_, err = f.driver(t, greedy(), Deps{}).Run(ctx, Request{ProjectDir: f.dir, Task: "add a login form"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.target, original, 0o644))
	_, err = second.Run(ctx, Request{ProjectDir: f.dir, Task: "add a login form"})
	require.NoError(t, err)

	passing := agent.NewState(1, 0, 1)
	loaded, err := agent.New(cfg, agent.WithLog(f.db), agent.WithSnapshots(snapshot.NewFileStore(f.snapPath)))
	require.NoError(t, err)
	require.NoError(t, loaded.LoadSnapshot(ctx))
	v, ok := loaded.Value(passing, agent.ActionProceed)
	require.True(t, ok)
	assert.InDelta(t, 3.5, v, 1e-9, "last writer wins")

	fresh, err := agent.New(cfg, agent.WithLog(f.db))
	require.NoError(t, err)
	n, err := fresh.Retrain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	// 3.5 + 0.1*(35 + 0.9*3.5 - 3.5)
	v, ok = fresh.Value(passing, agent.ActionProceed)
	require.True(t, ok)
	assert.InDelta(t, 6.965, v, 1e-9)
}

func TestRun_EmptyTask(t *testing.T) {
	f := newFixture(t, agent.DefaultConfig())
	d := f.driver(t, greedy(), Deps{})
	_, err := d.Run(context.Background(), Request{ProjectDir: f.dir, Task: "   "})
	assert.ErrorIs(t, err, ErrEmptyTask)
}

func TestNewDriver_Invalid(t *testing.T) {
	f := newFixture(t, agent.DefaultConfig())
	deps := Deps{Generator: f.gen, Checker: f.checker, Recorder: f.db}

	unknown, err := agent.New(agent.Config{Actions: []agent.Action{agent.ActionProceed, "deploy"}, Alpha: 0.1, Gamma: 0.9})
	require.NoError(t, err)
	_, err = NewDriver(greedy(), unknown, deps)
	assert.ErrorIs(t, err, agent.ErrInvalidConfiguration)

	badSchema := greedy()
	badSchema.Schema = agent.Schema{Fields: []string{"tests_passed", "coverage"}}
	_, err = NewDriver(badSchema, f.agent, deps)
	assert.ErrorIs(t, err, agent.ErrInvalidConfiguration)

	noIter := greedy()
	noIter.MaxIterations = 0
	_, err = NewDriver(noIter, f.agent, deps)
	assert.ErrorIs(t, err, agent.ErrInvalidConfiguration)

	_, err = NewDriver(greedy(), f.agent, Deps{Checker: f.checker, Recorder: f.db})
	assert.ErrorIs(t, err, agent.ErrInvalidConfiguration)
}

func TestState_CustomSchema(t *testing.T) {
	f := newFixture(t, agent.DefaultConfig())
	cfg := greedy()
	cfg.Schema = agent.Schema{Fields: []string{"tests_passed", "lint_errors", "complexity"}}
	d := f.driver(t, cfg, Deps{})

	obs := Observation{Tests: runner.TestResult{Passed: true}, Lint: runner.LintResult{Errors: 4, Ran: true}}
	obs.Quality.Report.Complexity = 3
	obs.Quality.Comparison = true
	s, err := d.state(obs)
	require.NoError(t, err)
	assert.Equal(t, agent.NewState(1, 4, 3, 1), s)
}
