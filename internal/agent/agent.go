package agent

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"
)

// DefaultEpsilon is the exploration rate used when the caller has no preference.
const DefaultEpsilon = 0.1

// #region types
// Action is a label from the closed set fixed at construction.
type Action string

const (
	ActionProceed    Action = "proceed"
	ActionModify     Action = "modify"
	ActionRegenerate Action = "regenerate"
)

// Config holds the action set and learning parameters.
type Config struct {
	Actions []Action `json:"actions"`
	Alpha   float64  `json:"alpha"`
	Gamma   float64  `json:"gamma"`
}

// DefaultConfig returns proceed/modify/regenerate with α=0.1, γ=0.9.
func DefaultConfig() Config {
	return Config{
		Actions: []Action{ActionProceed, ActionModify, ActionRegenerate},
		Alpha:   0.1,
		Gamma:   0.9,
	}
}

// Transition is one observed (state, action, reward, next state) step.
type Transition struct {
	RequestID string  `json:"request_id"`
	State     State   `json:"state"`
	Action    Action  `json:"action"`
	Reward    float64 `json:"reward"`
	NextState State   `json:"next_state"`
}

// ExperienceLog is the durable append-only transition record.
type ExperienceLog interface {
	AppendTransition(ctx context.Context, t Transition) error
	// Transitions returns every logged transition in insertion order.
	Transitions(ctx context.Context) ([]Transition, error)
}

// SnapshotStore persists the encoded value table.
type SnapshotStore interface {
	Save(ctx context.Context, data []byte) error
	// Load returns an error matching fs.ErrNotExist when nothing has been saved.
	Load(ctx context.Context) ([]byte, error)
}
// #endregion types

// #region agent
// Agent is a tabular Q-learning agent. It is not safe for concurrent use.
type Agent struct {
	cfg         Config
	table       *table
	rng         *rand.Rand
	log         ExperienceLog
	snapshots   SnapshotStore
	logger      *zap.Logger
	experiences []Transition
}

// Option configures an Agent.
type Option func(*Agent)

// WithRand sets the random source used for exploration and tie-breaking.
func WithRand(r *rand.Rand) Option { return func(a *Agent) { a.rng = r } }

// WithLog sets the durable experience log.
func WithLog(l ExperienceLog) Option { return func(a *Agent) { a.log = l } }

// WithSnapshots sets where the value table is saved and loaded.
func WithSnapshots(s SnapshotStore) Option { return func(a *Agent) { a.snapshots = s } }

func WithLogger(l *zap.Logger) Option { return func(a *Agent) { a.logger = l } }

// New validates cfg and returns an agent with an empty value table.
func New(cfg Config, opts ...Option) (*Agent, error) {
	if len(cfg.Actions) == 0 {
		return nil, fmt.Errorf("%w: empty action set", ErrInvalidConfiguration)
	}
	seen := make(map[Action]bool, len(cfg.Actions))
	for _, act := range cfg.Actions {
		if act == "" {
			return nil, fmt.Errorf("%w: empty action label", ErrInvalidConfiguration)
		}
		if seen[act] {
			return nil, fmt.Errorf("%w: duplicate action %q", ErrInvalidConfiguration, act)
		}
		seen[act] = true
	}
	if !(cfg.Alpha > 0 && cfg.Alpha <= 1) {
		return nil, fmt.Errorf("%w: alpha %v outside (0,1]", ErrInvalidConfiguration, cfg.Alpha)
	}
	if !(cfg.Gamma >= 0 && cfg.Gamma <= 1) {
		return nil, fmt.Errorf("%w: gamma %v outside [0,1]", ErrInvalidConfiguration, cfg.Gamma)
	}

	cfg.Actions = append([]Action(nil), cfg.Actions...)
	a := &Agent{cfg: cfg, table: newTable(cfg.Actions)}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return a, nil
}

// Config returns the configuration the agent was built with.
func (a *Agent) Config() Config {
	c := a.cfg
	c.Actions = append([]Action(nil), a.cfg.Actions...)
	return c
}
// #endregion agent

// #region get-state
// GetState appends the comparison flag (0/1) to the metrics. Every metric must be
// a finite integral number.
func (a *Agent) GetState(metrics []float64, comparison bool) (State, error) {
	vals := make([]float64, 0, len(metrics)+1)
	vals = append(vals, metrics...)
	if comparison {
		vals = append(vals, 1)
	} else {
		vals = append(vals, 0)
	}
	return stateFromFloats(vals)
}
// #endregion get-state

// #region choose-action
// ChooseAction is epsilon-greedy over the state's row. Ties between maximal
// actions are broken uniformly at random. The row is materialized either way.
func (a *Agent) ChooseAction(s State, epsilon float64) (Action, error) {
	if math.IsNaN(epsilon) || epsilon < 0 || epsilon > 1 {
		return "", fmt.Errorf("%w: epsilon %v outside [0,1]", ErrInvalidMetric, epsilon)
	}
	if s.IsZero() {
		return "", fmt.Errorf("%w: empty state", ErrInvalidMetric)
	}
	row := a.table.ensure(s)
	if a.rng.Float64() < epsilon {
		return a.cfg.Actions[a.rng.IntN(len(a.cfg.Actions))], nil
	}
	best := a.table.maximizers(row)
	return a.cfg.Actions[best[a.rng.IntN(len(best))]], nil
}
// #endregion choose-action

// #region learn
// Learn applies one Q-learning update and appends t to the experience log.
// A failed append still leaves the in-memory update in place and returns an
// error matching ErrStorageUnavailable.
func (a *Agent) Learn(ctx context.Context, t Transition) error {
	if err := a.check(t); err != nil {
		return err
	}
	a.apply(t)

	if a.log == nil {
		return nil
	}
	if err := a.log.AppendTransition(ctx, t); err != nil {
		a.logger.Warn("experience log append failed",
			zap.String("request_id", t.RequestID),
			zap.Stringer("state", t.State),
			zap.String("action", string(t.Action)),
			zap.Error(err))
		return fmt.Errorf("append transition: %w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// LearnFromExperiences replays transitions in order through the update without
// logging them. All transitions are checked before any is applied.
func (a *Agent) LearnFromExperiences(ts []Transition) error {
	for i, t := range ts {
		if err := a.check(t); err != nil {
			return fmt.Errorf("transition %d: %w", i, err)
		}
	}
	for _, t := range ts {
		a.apply(t)
	}
	return nil
}

func (a *Agent) check(t Transition) error {
	if _, ok := a.table.index[t.Action]; !ok {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidMetric, t.Action)
	}
	if math.IsNaN(t.Reward) || math.IsInf(t.Reward, 0) {
		return fmt.Errorf("%w: non-finite reward %v", ErrInvalidMetric, t.Reward)
	}
	if t.State.IsZero() || t.NextState.IsZero() {
		return fmt.Errorf("%w: empty state", ErrInvalidMetric)
	}
	return nil
}

func (a *Agent) apply(t Transition) {
	row := a.table.ensure(t.State)
	next := a.table.ensure(t.NextState)
	col := a.table.index[t.Action]

	target := t.Reward + a.cfg.Gamma*a.table.max(next)
	row[col] += a.cfg.Alpha * (target - row[col])

	a.experiences = append(a.experiences, t)
}
// #endregion learn

// #region retrain
// Retrain replays the whole experience log into the current table and returns
// how many transitions were applied. Replaying twice updates the table twice.
func (a *Agent) Retrain(ctx context.Context) (int, error) {
	if a.log == nil {
		return 0, fmt.Errorf("%w: no experience log configured", ErrStorageUnavailable)
	}
	ts, err := a.log.Transitions(ctx)
	if err != nil {
		return 0, fmt.Errorf("read transitions: %w: %w", ErrStorageUnavailable, err)
	}
	if err := a.LearnFromExperiences(ts); err != nil {
		return 0, err
	}
	a.logger.Info("retrained from experience log", zap.Int("transitions", len(ts)), zap.Int("states", len(a.table.rows)))
	return len(ts), nil
}
// #endregion retrain

// #region inspect
// Value returns Q(s, act) and whether the state has been materialized.
func (a *Agent) Value(s State, act Action) (float64, bool) {
	row, ok := a.table.rows[s]
	if !ok {
		return 0, false
	}
	col, ok := a.table.index[act]
	if !ok {
		return 0, false
	}
	return row[col], true
}

// Row returns a copy of the state's action values, or nil if not materialized.
func (a *Agent) Row(s State) map[Action]float64 {
	row, ok := a.table.rows[s]
	if !ok {
		return nil
	}
	out := make(map[Action]float64, len(row))
	for i, act := range a.table.actions {
		out[act] = row[i]
	}
	return out
}

// States lists materialized states in stable order.
func (a *Agent) States() []State { return a.table.sortedStates() }

// Experiences returns the transitions applied in this process, oldest first.
func (a *Agent) Experiences() []Transition {
	return append([]Transition(nil), a.experiences...)
}

// Table returns a deep copy of the value table keyed by state string.
func (a *Agent) Table() map[string]map[Action]float64 {
	out := make(map[string]map[Action]float64, len(a.table.rows))
	for s := range a.table.rows {
		out[s.String()] = a.Row(s)
	}
	return out
}
// #endregion inspect
