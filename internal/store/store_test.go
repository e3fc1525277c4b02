package store

import (
	"context"
	"io/fs"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/codeloop/internal/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func tempDB(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedRequest(t *testing.T, s *Store, task string) string {
	t.Helper()
	id, err := s.InsertRequest(context.Background(), Request{
		HumanRequest:    task,
		TaskDescription: task,
		FilePath:        "components/Button.js",
	})
	require.NoError(t, err)
	return id
}

func TestInsertRequestAndGenerations(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	id := seedRequest(t, s, "add a button")
	require.NotEmpty(t, id)

	req, err := s.GetRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "add a button", req.TaskDescription)
	assert.Empty(t, req.OriginalContent)
	assert.False(t, req.CreatedAt.IsZero())

	require.NoError(t, s.InsertGeneration(ctx, Generation{RequestID: id, Version: 1, Content: "v1"}))
	require.NoError(t, s.InsertGeneration(ctx, Generation{RequestID: id, Version: 2, Action: agent.ActionModify, Content: "v2"}))

	gens, err := s.Generations(ctx, id)
	require.NoError(t, err)
	require.Len(t, gens, 2)
	assert.Equal(t, agent.Action(""), gens[0].Action)
	assert.Equal(t, agent.ActionModify, gens[1].Action)
	assert.Equal(t, "v2", gens[1].Content)
}

func TestInsertGeneration_UnknownRequest(t *testing.T) {
	s := tempDB(t)
	err := s.InsertGeneration(context.Background(), Generation{RequestID: "missing", Version: 1, Content: "x"})
	assert.Error(t, err)
}

func TestTransitions_InsertionOrder(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	r1 := seedRequest(t, s, "one")
	r2 := seedRequest(t, s, "two")

	want := []agent.Transition{
		{RequestID: r1, State: agent.NewState(0, 0, 1), Action: agent.ActionProceed, Reward: 15, NextState: agent.NewState(1, 0, 1)},
		{RequestID: r2, State: agent.NewState(0, 12, 0), Action: agent.ActionRegenerate, Reward: -42, NextState: agent.NewState(1, 0, 1)},
		{RequestID: r1, State: agent.NewState(1, 0, 1), Action: agent.ActionModify, Reward: 2.5, NextState: agent.NewState(1, 0, 1)},
	}
	for _, tr := range want {
		require.NoError(t, s.AppendTransition(ctx, tr))
	}

	got, err := s.Transitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	forR1, err := s.TransitionsForRequest(ctx, r1)
	require.NoError(t, err)
	require.Len(t, forR1, 2)
	assert.Less(t, forR1[0].ID, forR1[1].ID)

	series, err := s.RewardSeries(ctx)
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, -42.0, series[1].Reward)
}

func TestStore_AsExperienceLog(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	rid := seedRequest(t, s, "task")

	live, err := agent.New(agent.DefaultConfig(), agent.WithLog(s), agent.WithRand(rand.New(rand.NewPCG(1, 1))))
	require.NoError(t, err)
	steps := []agent.Transition{
		{RequestID: rid, State: agent.NewState(0, 0, 1), Action: agent.ActionProceed, Reward: 15, NextState: agent.NewState(1, 0, 1)},
		{RequestID: rid, State: agent.NewState(1, 0, 1), Action: agent.ActionProceed, Reward: 30, NextState: agent.NewState(1, 0, 1)},
	}
	for _, st := range steps {
		require.NoError(t, live.Learn(ctx, st))
	}

	fresh, err := agent.New(agent.DefaultConfig(), agent.WithLog(s))
	require.NoError(t, err)
	n, err := fresh.Retrain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, live.Table(), fresh.Table())
}

func TestStore_AppendFailureSurfacesStorageUnavailable(t *testing.T) {
	s := tempDB(t)
	a, err := agent.New(agent.DefaultConfig(), agent.WithLog(s))
	require.NoError(t, err)

	// no such request row, so the foreign key rejects the append
	tr := agent.Transition{RequestID: "ghost", State: agent.NewState(0, 0, 1), Action: agent.ActionProceed, Reward: 15, NextState: agent.NewState(1, 0, 1)}
	err = a.Learn(context.Background(), tr)
	require.ErrorIs(t, err, agent.ErrStorageUnavailable)

	v, ok := a.Value(tr.State, agent.ActionProceed)
	require.True(t, ok)
	assert.InDelta(t, 1.5, v, 1e-12)
}

func TestPerformanceRows(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	r1 := seedRequest(t, s, "first")
	r2 := seedRequest(t, s, "second")

	require.NoError(t, s.InsertGeneration(ctx, Generation{RequestID: r1, Version: 1, Content: "a"}))
	require.NoError(t, s.InsertGeneration(ctx, Generation{RequestID: r1, Version: 2, Content: "b"}))
	require.NoError(t, s.AppendTransition(ctx, agent.Transition{RequestID: r1, State: agent.NewState(0, 0, 1), Action: agent.ActionModify, Reward: -5, NextState: agent.NewState(1, 0, 1)}))
	require.NoError(t, s.AppendTransition(ctx, agent.Transition{RequestID: r1, State: agent.NewState(1, 0, 1), Action: agent.ActionProceed, Reward: 30, NextState: agent.NewState(1, 0, 1)}))

	rows, err := s.PerformanceRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, r1, rows[0].RequestID)
	assert.Equal(t, 2, rows[0].Versions)
	assert.Equal(t, []float64{-5, 30}, rows[0].Rewards)
	assert.Equal(t, []agent.Action{agent.ActionModify, agent.ActionProceed}, rows[0].Actions)
	assert.Equal(t, r2, rows[1].RequestID)
	assert.Zero(t, rows[1].Versions)
	assert.Empty(t, rows[1].Rewards)
}

func TestSnapshots_CommitListRollback(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	_, _, err := s.ActiveSnapshot(ctx)
	require.ErrorIs(t, err, fs.ErrNotExist)

	v1, err := s.CommitSnapshot(ctx, []byte(`{"n":1}`), "run")
	require.NoError(t, err)
	v2, err := s.CommitSnapshot(ctx, []byte(`{"n":2}`), "retrain")
	require.NoError(t, err)

	doc, id, err := s.ActiveSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, v2, id)
	assert.JSONEq(t, `{"n":2}`, string(doc))

	versions, err := s.ListSnapshots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, v2, versions[0].VersionID)
	assert.Equal(t, v1, versions[0].ParentID)
	assert.True(t, versions[0].Active)
	assert.False(t, versions[1].Active)
	assert.Equal(t, "run", versions[1].Note)

	require.NoError(t, s.Rollback(ctx, v1))
	doc, id, err = s.ActiveSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, v1, id)
	assert.JSONEq(t, `{"n":1}`, string(doc))

	assert.Error(t, s.Rollback(ctx, "nope"))
}

func TestSnapshotStore_AgentRoundTrip(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	snaps := s.SnapshotStore("test")

	empty, err := agent.New(agent.DefaultConfig(), agent.WithSnapshots(snaps))
	require.NoError(t, err)
	require.NoError(t, empty.LoadSnapshot(ctx))
	assert.Empty(t, empty.States())

	a, err := agent.New(agent.DefaultConfig(), agent.WithSnapshots(snaps))
	require.NoError(t, err)
	require.NoError(t, a.Learn(ctx, agent.Transition{State: agent.NewState(0, 0, 1), Action: agent.ActionRegenerate, Reward: -20, NextState: agent.NewState(0, 0, 1)}))
	require.NoError(t, a.SaveSnapshot(ctx))

	b, err := agent.New(agent.DefaultConfig(), agent.WithSnapshots(snaps))
	require.NoError(t, err)
	require.NoError(t, b.LoadSnapshot(ctx))
	assert.Equal(t, a.Table(), b.Table())
}
