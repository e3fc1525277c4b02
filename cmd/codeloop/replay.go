package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/codeloop/internal/agent"
	"github.com/danielpatrickdp/codeloop/internal/replay"
)

var (
	replayFixture   string
	replayPasses    int
	replayTolerance float64
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild a value table in memory from the log or a fixture",
	Long: `Without --fixture, replays the experience log into a fresh agent and prints
the summary and resulting table; nothing is saved. With --fixture, replays the
fixture's transitions and compares the table against its expected values.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if replayFixture != "" {
			return runFixtureReplay(cmd.OutOrStdout())
		}
		return runLogReplay(cmd)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayFixture, "fixture", "", "path to a fixture JSON file")
	replayCmd.Flags().IntVar(&replayPasses, "passes", 1, "passes over the log (fixture mode uses the fixture's own value)")
	replayCmd.Flags().Float64Var(&replayTolerance, "tolerance", 1e-6, "allowed absolute difference per value")
}

// #region fixture-mode

func runFixtureReplay(out io.Writer) error {
	f, err := replay.LoadFixture(replayFixture)
	if err != nil {
		return err
	}
	ts := f.ToTransitions()
	a, err := replay.Replay(f.Config.ToAgentConfig(), ts, f.Config.Passes)
	if err != nil {
		return err
	}

	mismatches := replay.Compare(a, f.Expected, replayTolerance)
	fmt.Fprintf(out, "fixture: %s\n", f.Description)
	fmt.Fprintf(out, "transitions: %d  expected rows: %d\n", len(ts), len(f.Expected))
	if len(mismatches) == 0 {
		fmt.Fprintln(out, "PASS")
		return nil
	}
	for _, m := range mismatches {
		fmt.Fprintf(out, "  %s\n", m)
	}
	return fmt.Errorf("%d value(s) differ from the fixture", len(mismatches))
}

// #endregion fixture-mode

// #region log-mode

func runLogReplay(cmd *cobra.Command) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ts, err := st.Transitions(cmd.Context())
	if err != nil {
		return err
	}
	a, err := replay.Replay(cfg.AgentConfig(), ts, replayPasses)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	sum := replay.Summarize(ts)
	fmt.Fprintf(out, "transitions: %d  requests: %d  states: %d\n", sum.Transitions, sum.Requests, sum.DistinctStates)
	fmt.Fprintf(out, "total reward: %.2f  mean reward: %.2f\n", sum.TotalReward, sum.MeanReward)
	actions := make([]string, 0, len(sum.ActionCounts))
	for act := range sum.ActionCounts {
		actions = append(actions, string(act))
	}
	sort.Strings(actions)
	for _, act := range actions {
		fmt.Fprintf(out, "  %-12s %d\n", act, sum.ActionCounts[agent.Action(act)])
	}
	fmt.Fprintln(out)
	printTable(out, a)
	return nil
}

// #endregion log-mode
