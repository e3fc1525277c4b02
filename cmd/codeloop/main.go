package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/codeloop/internal/config"
	"github.com/danielpatrickdp/codeloop/internal/logging"
)

// #region globals

var (
	configPath string
	verbose    bool

	cfg      *config.Config
	logger   *zap.Logger
	closeLog func() error
)

// #endregion globals

// #region root

var rootCmd = &cobra.Command{
	Use:   "codeloop",
	Short: "Generate code changes and learn which follow-up actions pay off",
	Long: `codeloop turns a feature request into a file change in a Next.js project,
runs the project's tests and linter, and uses a tabular Q-learning agent to
decide whether to accept, modify or regenerate the result. Every transition is
logged so the value table can be retrained or replayed later.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, closeLog, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logging.Sync(logger)
		}
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd, retrainCmd, replayCmd, evaluateCmd, inspectCmd, rollbackCmd, plotCmd, exportFixtureCmd)
}

// #endregion root

// #region main

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// #endregion main
