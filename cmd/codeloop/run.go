package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/codeloop/internal/display"
	"github.com/danielpatrickdp/codeloop/internal/gitops"
	"github.com/danielpatrickdp/codeloop/internal/llm"
	"github.com/danielpatrickdp/codeloop/internal/metrics"
	"github.com/danielpatrickdp/codeloop/internal/orchestrator"
	"github.com/danielpatrickdp/codeloop/internal/runner"
)

var (
	runProject     string
	runTask        string
	runRepo        string
	runPull        bool
	runInteractive bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Handle one feature request through the decision loop",
	Long: `Finds the most relevant file for the task, generates new content, checks it
with the project's tests and linter and lets the agent choose to accept,
modify or regenerate. Missing --project or --task values are prompted for.`,
	RunE: runRequest,
}

func init() {
	runCmd.Flags().StringVar(&runProject, "project", "", "project directory")
	runCmd.Flags().StringVar(&runTask, "task", "", "feature request in plain language")
	runCmd.Flags().StringVar(&runRepo, "repo", "", "git URL to clone into --project when it does not exist")
	runCmd.Flags().BoolVar(&runPull, "pull", false, "pull from origin when --project is already a checkout")
	runCmd.Flags().BoolVar(&runInteractive, "confirm", true, "ask before regenerating code with framework issues")
}

func runRequest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	console := display.NewConsole(cmd.OutOrStdout())
	prompter := display.NewPrompter(os.Stdin, cmd.OutOrStdout())

	var err error
	if runProject == "" {
		if runProject, err = prompter.Input("Project directory:"); err != nil {
			return err
		}
	}
	if runTask == "" {
		if runTask, err = prompter.Input("What should be built?"); err != nil {
			return err
		}
	}
	if runProject, err = filepath.Abs(runProject); err != nil {
		return fmt.Errorf("resolve project: %w", err)
	}

	if runRepo != "" || runPull {
		outcome, err := gitops.CloneOrPull(ctx, runRepo, runProject, runPull, logger.Named("git"))
		if err != nil {
			return err
		}
		console.Status("repository %s", outcome)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ag, err := loadAgent(ctx, st, "run: "+runTask)
	if err != nil {
		return err
	}

	gen, err := llm.NewClient(cfg.LLM.Config, logger.Named("llm"))
	if err != nil {
		return err
	}

	rec := metrics.New()
	dcfg := orchestrator.Config{
		Epsilon:       cfg.Agent.Epsilon,
		MaxIterations: cfg.Agent.MaxIterations,
		Plan:          cfg.LLM.Plan,
		Schema:        cfg.Schema(),
		Weights:       cfg.Weights(),
		Discovery:     cfg.Discovery,
	}
	deps := orchestrator.Deps{
		Generator: gen,
		Checker:   runner.New(cfg.Runner, logger.Named("runner")),
		Recorder:  st,
		Presenter: console,
		Metrics:   rec,
		Logger:    logger.Named("loop"),
	}
	if runInteractive {
		deps.Prompter = prompter
	}
	driver, err := orchestrator.NewDriver(dcfg, ag, deps)
	if err != nil {
		return err
	}

	res, err := driver.Run(ctx, orchestrator.Request{ProjectDir: runProject, Task: runTask})
	if werr := rec.WriteTextfile(cfg.Metrics.TextfilePath); werr != nil {
		logger.Warn("metrics textfile", zap.Error(werr))
	}
	if err != nil {
		return err
	}

	if res.Accepted {
		console.Success("%s accepted after %d version(s), final reward %.0f", res.FilePath, res.Versions, res.FinalReward())
	} else {
		console.Warn("%s left at version %d, final reward %.0f", res.FilePath, res.Versions, res.FinalReward())
	}
	return nil
}
