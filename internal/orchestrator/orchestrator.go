package orchestrator

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/codeloop/internal/agent"
	"github.com/danielpatrickdp/codeloop/internal/discovery"
	"github.com/danielpatrickdp/codeloop/internal/framework"
	"github.com/danielpatrickdp/codeloop/internal/metrics"
	"github.com/danielpatrickdp/codeloop/internal/store"
)

// #endregion

// ErrEmptyTask is returned by Run when the request has no task text.
var ErrEmptyTask = errors.New("empty task")

// #region driver-struct

// Deps are the collaborators a Driver calls. Presenter, Prompter, Metrics and
// Logger are optional.
type Deps struct {
	Generator Generator
	Checker   Checker
	Recorder  Recorder
	Presenter Presenter
	Prompter  Prompter
	Metrics   *metrics.Recorder
	Logger    *zap.Logger
}

// Driver runs the generate, observe, decide and learn loop for one request at a time.
type Driver struct {
	cfg       Config
	agent     *agent.Agent
	gen       Generator
	checker   Checker
	recorder  Recorder
	presenter Presenter
	prompter  Prompter
	metrics   *metrics.Recorder
	logger    *zap.Logger
	handlers  map[agent.Action]actionFunc
}

// cycle is the mutable state of one Run.
type cycle struct {
	requestID  string
	task       string
	projectDir string
	path       string
	relPath    string
	original   string
	current    string
	version    int
	obs        Observation
}

// #endregion

// #region constructor

// NewDriver checks that every configured action has a handler and every schema
// field is observable.
func NewDriver(cfg Config, ag *agent.Agent, deps Deps) (*Driver, error) {
	switch {
	case ag == nil:
		return nil, fmt.Errorf("%w: nil agent", agent.ErrInvalidConfiguration)
	case deps.Generator == nil, deps.Checker == nil, deps.Recorder == nil:
		return nil, fmt.Errorf("%w: generator, checker and recorder are required", agent.ErrInvalidConfiguration)
	case cfg.MaxIterations < 1:
		return nil, fmt.Errorf("%w: max iterations %d", agent.ErrInvalidConfiguration, cfg.MaxIterations)
	case cfg.Epsilon < 0 || cfg.Epsilon > 1:
		return nil, fmt.Errorf("%w: epsilon %v outside [0,1]", agent.ErrInvalidConfiguration, cfg.Epsilon)
	case len(cfg.Schema.Fields) == 0:
		return nil, fmt.Errorf("%w: empty state schema", agent.ErrInvalidConfiguration)
	}
	for _, f := range cfg.Schema.Fields {
		if _, ok := observableMetrics[f]; !ok {
			return nil, fmt.Errorf("%w: unknown state field %q", agent.ErrInvalidConfiguration, f)
		}
	}
	handlers, err := handlersFor(ag.Config().Actions)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		cfg:       cfg,
		agent:     ag,
		gen:       deps.Generator,
		checker:   deps.Checker,
		recorder:  deps.Recorder,
		presenter: deps.Presenter,
		prompter:  deps.Prompter,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		handlers:  handlers,
	}
	if d.presenter == nil {
		d.presenter = nopPresenter{}
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d, nil
}

// #endregion

// #region run

// Run handles one request end to end and persists the value table at the end.
// A transition that cannot be logged is kept in memory and the loop continues.
func (d *Driver) Run(ctx context.Context, req Request) (Result, error) {
	res, err := d.run(ctx, req)
	switch {
	case err != nil:
		d.metrics.Cycle(metrics.OutcomeFailed)
	case res.Accepted:
		d.metrics.Cycle(metrics.OutcomeAccepted)
	default:
		d.metrics.Cycle(metrics.OutcomeExhausted)
	}
	d.metrics.States(len(d.agent.States()))
	return res, err
}

func (d *Driver) run(ctx context.Context, req Request) (Result, error) {
	task := strings.TrimSpace(req.Task)
	if task == "" {
		return Result{}, ErrEmptyTask
	}

	found, err := discovery.Find(req.ProjectDir, task, d.cfg.Discovery)
	if err != nil {
		return Result{}, err
	}
	rel, err := filepath.Rel(req.ProjectDir, found.Path)
	if err != nil {
		rel = found.Path
	}
	if found.Exists {
		d.presenter.Status("using %s", rel)
	} else {
		d.presenter.Status("no matching file; creating %s", rel)
	}

	c := &cycle{
		task:       task,
		projectDir: req.ProjectDir,
		path:       found.Path,
		relPath:    rel,
		original:   found.Content,
		current:    found.Content,
	}

	description := task
	if d.cfg.Plan {
		files := map[string]string{}
		if found.Exists {
			files[rel] = found.Content
		}
		plan, err := d.gen.Plan(ctx, task, files)
		if err != nil {
			return Result{}, err
		}
		d.presenter.ShowPlan(plan)
		description = plan
	}

	c.requestID, err = d.recorder.InsertRequest(ctx, store.Request{
		HumanRequest:    task,
		TaskDescription: description,
		FilePath:        rel,
		OriginalContent: found.Content,
	})
	if err != nil {
		return Result{}, err
	}
	log := d.logger.With(zap.String("request_id", c.requestID))
	log.Info("request recorded", zap.String("file", rel), zap.Bool("exists", found.Exists))

	code, err := d.initialGeneration(ctx, c)
	if err != nil {
		return d.result(c, nil, false), err
	}
	if err := d.commit(ctx, c, code, ""); err != nil {
		return d.result(c, nil, false), err
	}
	if c.obs, err = d.observe(ctx, c); err != nil {
		return d.result(c, nil, false), err
	}

	var transitions []agent.Transition
	accepted := false
	for i := 1; i <= d.cfg.MaxIterations && !accepted; i++ {
		t, done, err := d.step(ctx, c, i)
		if err != nil {
			return d.result(c, transitions, false), err
		}
		transitions = append(transitions, t)
		accepted = done
	}
	if !accepted {
		d.presenter.Warn("stopped after %d iterations without acceptance", d.cfg.MaxIterations)
	}

	if err := d.agent.SaveSnapshot(ctx); err != nil {
		return d.result(c, transitions, accepted), fmt.Errorf("save value table: %w", err)
	}
	log.Info("request finished",
		zap.Int("versions", c.version),
		zap.Int("transitions", len(transitions)),
		zap.Bool("accepted", accepted))
	return d.result(c, transitions, accepted), nil
}

// #endregion

// #region step

// step chooses and executes one action, then learns from the outcome.
func (d *Driver) step(ctx context.Context, c *cycle, iteration int) (agent.Transition, bool, error) {
	s, err := d.state(c.obs)
	if err != nil {
		return agent.Transition{}, false, err
	}
	action, err := d.agent.ChooseAction(s, d.cfg.Epsilon)
	if err != nil {
		return agent.Transition{}, false, err
	}
	d.metrics.Action(string(action))
	d.presenter.Status("iteration %d: state %s, action %s", iteration, s, action)

	done, err := d.handlers[action](ctx, d, c)
	if err != nil {
		return agent.Transition{}, false, fmt.Errorf("%s: %w", action, err)
	}
	if !done {
		if c.obs, err = d.observe(ctx, c); err != nil {
			return agent.Transition{}, false, err
		}
	}

	r, err := d.reward(c.obs)
	if err != nil {
		return agent.Transition{}, false, err
	}
	next, err := d.state(c.obs)
	if err != nil {
		return agent.Transition{}, false, err
	}

	t := agent.Transition{RequestID: c.requestID, State: s, Action: action, Reward: r, NextState: next}
	if err := d.agent.Learn(ctx, t); err != nil {
		if !errors.Is(err, agent.ErrStorageUnavailable) {
			return agent.Transition{}, false, err
		}
		d.presenter.Warn("transition not persisted: %v", err)
	}
	d.metrics.Reward(r)
	d.logger.Info("transition",
		zap.String("request_id", c.requestID),
		zap.Stringer("state", s),
		zap.String("action", string(action)),
		zap.Float64("reward", r),
		zap.Stringer("next_state", next))
	return t, done, nil
}

// #endregion

// #region generation

// initialGeneration generates, post-processes and validates the first version.
// Remaining framework issues offer one regeneration when a prompter is present.
func (d *Driver) initialGeneration(ctx context.Context, c *cycle) (string, error) {
	code, err := d.gen.Generate(ctx, c.task, c.original)
	if err != nil {
		return "", err
	}
	code = framework.PostProcess(code)

	issues := framework.Validate(code)
	if len(issues) == 0 {
		return code, nil
	}
	for _, is := range issues {
		d.presenter.Warn("%s", is.Reason)
	}
	if d.prompter == nil {
		return code, nil
	}
	again, err := d.prompter.Confirm("Generated code has framework issues. Regenerate?")
	if err != nil || !again {
		return code, nil
	}
	code, err = d.gen.Generate(ctx, c.task, c.original)
	if err != nil {
		return "", err
	}
	return framework.PostProcess(code), nil
}

// commit writes code to the target file and records it as the next version.
func (d *Driver) commit(ctx context.Context, c *cycle, code string, action agent.Action) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(c.path, []byte(code), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.relPath, err)
	}
	c.version++
	c.current = code
	if err := d.recorder.InsertGeneration(ctx, store.Generation{
		RequestID: c.requestID,
		Version:   c.version,
		Action:    action,
		Content:   code,
	}); err != nil {
		return err
	}
	d.presenter.ShowCode(fmt.Sprintf("%s (v%d)", c.relPath, c.version), code)
	return nil
}

func (d *Driver) result(c *cycle, ts []agent.Transition, accepted bool) Result {
	return Result{
		RequestID:   c.requestID,
		FilePath:    c.path,
		Content:     c.current,
		Versions:    c.version,
		Accepted:    accepted,
		Transitions: ts,
	}
}

// #endregion

type nopPresenter struct{}

func (nopPresenter) ShowCode(string, string) {}
func (nopPresenter) ShowPlan(string)         {}
func (nopPresenter) Status(string, ...any)   {}
func (nopPresenter) Warn(string, ...any)     {}
func (nopPresenter) Success(string, ...any)  {}
