package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/codeloop/internal/config"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <version>",
	Short: "Make an earlier value-table version the active one",
	Long: `Moves the active snapshot pointer to the given version; the next run loads
it. Versions are kept only by the sqlite snapshot backend.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Snapshot.Backend != config.BackendSQLite {
			return fmt.Errorf("rollback needs snapshot.backend=%s (have %s)", config.BackendSQLite, cfg.Snapshot.Backend)
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Rollback(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active snapshot: %s\n", args[0])
		return nil
	},
}
