package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/codeloop/internal/agent"
	"github.com/danielpatrickdp/codeloop/internal/metrics"
)

var retrainFresh bool

var retrainCmd = &cobra.Command{
	Use:   "retrain",
	Short: "Replay the experience log into the value table and save it",
	Long: `Replays every logged transition, in order, through the Q-learning update and
persists the result. By default the replay starts from the saved table, so
running retrain twice applies the log twice. Use --fresh to start from an
empty table instead.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		var ag *agent.Agent
		if retrainFresh {
			ag, err = agent.New(cfg.AgentConfig(),
				agent.WithLog(st),
				agent.WithSnapshots(snapshotBackend(st, "retrain --fresh")),
				agent.WithLogger(logger.Named("agent")))
		} else {
			ag, err = loadAgent(ctx, st, "retrain")
		}
		if err != nil {
			return err
		}

		n, err := ag.Retrain(ctx)
		if err != nil {
			return err
		}
		if err := ag.SaveSnapshot(ctx); err != nil {
			return err
		}

		rec := metrics.New()
		rec.States(len(ag.States()))
		if err := rec.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.Warn("metrics textfile", zap.Error(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "retrained on %d transitions; %d states\n", n, len(ag.States()))
		return nil
	},
}

func init() {
	retrainCmd.Flags().BoolVar(&retrainFresh, "fresh", false, "start from an empty table instead of the saved one")
}
