package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/codeloop/internal/evaluate"
	"github.com/danielpatrickdp/codeloop/internal/plot"
	"github.com/danielpatrickdp/codeloop/internal/replay"
)

// #region evaluate

var evaluateJSON bool

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Report success rate, versions per request and action mix",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		rows, err := st.PerformanceRows(cmd.Context())
		if err != nil {
			return err
		}
		rep := evaluate.Analyze(rows, cfg.EvaluateConfig())

		out := cmd.OutOrStdout()
		if evaluateJSON {
			if err := printJSON(out, rep); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(out, "requests:           %d\n", rep.TotalRequests)
			fmt.Fprintf(out, "successful:         %d (%.1f%%)\n", rep.Successful, rep.SuccessRate)
			fmt.Fprintf(out, "versions/request:   %.2f\n", rep.AvgVersionsPerRequest)
			fmt.Fprintf(out, "average reward:     %.2f\n", rep.AvgReward)
			for _, a := range rep.Actions {
				fmt.Fprintf(out, "  %-12s %5d  %5.1f%%\n", a.Action, a.Count, a.Percent)
			}
		}
		if !rep.Passed {
			return fmt.Errorf("evaluation below thresholds: %s", strings.Join(rep.Reasons, "; "))
		}
		return nil
	},
}

// #endregion evaluate

// #region plot

var plotOut string

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Write an HTML chart of rewards over time",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		series, err := st.RewardSeries(cmd.Context())
		if err != nil {
			return err
		}
		points := make([]plot.Point, len(series))
		for i, p := range series {
			points[i] = plot.Point{Label: p.At.Local().Format("01-02 15:04:05"), Reward: p.Reward}
		}

		f, err := os.Create(plotOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", plotOut, err)
		}
		if err := plot.Render(f, "Rewards over time", points); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", plotOut, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d points to %s\n", len(points), plotOut)
		return nil
	},
}

// #endregion plot

// #region export-fixture

var (
	exportOut         string
	exportLast        int
	exportDescription string
)

var exportFixtureCmd = &cobra.Command{
	Use:   "export-fixture",
	Short: "Export logged transitions and the table they produce as a replay fixture",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if exportOut == "" {
			return fmt.Errorf("--out is required")
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ts, err := st.Transitions(cmd.Context())
		if err != nil {
			return err
		}
		if len(ts) == 0 {
			return fmt.Errorf("experience log is empty")
		}
		if exportLast > 0 && exportLast < len(ts) {
			ts = ts[len(ts)-exportLast:]
		}

		desc := exportDescription
		if desc == "" {
			desc = fmt.Sprintf("%d logged transitions", len(ts))
		}
		f, err := replay.NewFixture(desc, cfg.AgentConfig(), ts)
		if err != nil {
			return err
		}
		if err := replay.WriteFixture(exportOut, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d transitions, %d expected rows to %s\n", len(f.Transitions), len(f.Expected), exportOut)
		return nil
	},
}

// #endregion export-fixture

func init() {
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "output as JSON")
	plotCmd.Flags().StringVar(&plotOut, "out", "rewards.html", "output HTML path")
	exportFixtureCmd.Flags().StringVar(&exportOut, "out", "", "output fixture JSON path")
	exportFixtureCmd.Flags().IntVar(&exportLast, "last", 0, "export only the N most recent transitions (0 = all)")
	exportFixtureCmd.Flags().StringVar(&exportDescription, "description", "", "fixture description")
}
