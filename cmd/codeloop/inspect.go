package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/codeloop/internal/agent"
	"github.com/danielpatrickdp/codeloop/internal/config"
	"github.com/danielpatrickdp/codeloop/internal/store"
)

var (
	inspectLast int
	inspectJSON bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the saved value table and snapshot versions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ag, err := loadAgent(ctx, st, "")
		if err != nil {
			return err
		}
		var versions []store.SnapshotVersion
		if cfg.Snapshot.Backend == config.BackendSQLite {
			if versions, err = st.ListSnapshots(ctx, inspectLast); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if inspectJSON {
			return printJSON(out, inspectOutput{Table: ag.Table(), Versions: toVersionRows(versions)})
		}
		printTable(out, ag)
		if cfg.Snapshot.Backend == config.BackendSQLite {
			fmt.Fprintln(out)
			printVersions(out, versions)
		} else {
			fmt.Fprintf(out, "\nsnapshot file: %s\n", cfg.Snapshot.Path)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N most recent snapshot versions")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON instead of tables")
}

// #region output

type inspectOutput struct {
	Table    map[string]map[agent.Action]float64 `json:"table"`
	Versions []versionRow                        `json:"versions,omitempty"`
}

type versionRow struct {
	VersionID string `json:"version_id"`
	ParentID  string `json:"parent_id,omitempty"`
	Note      string `json:"note,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

func toVersionRows(vs []store.SnapshotVersion) []versionRow {
	rows := make([]versionRow, len(vs))
	for i, v := range vs {
		rows[i] = versionRow{
			VersionID: v.VersionID,
			ParentID:  v.ParentID,
			Note:      v.Note,
			Active:    v.Active,
			CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	return rows
}

// printTable writes one row per state in the agent's action order.
func printTable(out io.Writer, a *agent.Agent) {
	actions := a.Config().Actions
	header := []string{fmt.Sprintf("%-16s", "State")}
	rule := []string{strings.Repeat("-", 16)}
	for _, act := range actions {
		header = append(header, fmt.Sprintf("%12s", act))
		rule = append(rule, strings.Repeat("-", 12))
	}
	fmt.Fprintln(out, strings.Join(header, "  "))
	fmt.Fprintln(out, strings.Join(rule, "+-"))

	states := a.States()
	if len(states) == 0 {
		fmt.Fprintln(out, "(empty)")
		return
	}
	for _, s := range states {
		row := a.Row(s)
		cells := []string{fmt.Sprintf("%-16s", s)}
		for _, act := range actions {
			cells = append(cells, fmt.Sprintf("%12.4f", row[act]))
		}
		fmt.Fprintln(out, strings.Join(cells, "  "))
	}
}

func printVersions(out io.Writer, vs []store.SnapshotVersion) {
	if len(vs) == 0 {
		fmt.Fprintln(out, "no snapshot versions")
		return
	}
	fmt.Fprintf(out, "%-12s  %-12s  %-6s  %-20s  %s\n", "Version", "Parent", "Active", "Time", "Note")
	for _, v := range vs {
		active := ""
		if v.Active {
			active = "*"
		}
		parent := "-"
		if v.ParentID != "" {
			parent = shortID(v.ParentID)
		}
		fmt.Fprintf(out, "%-12s  %-12s  %-6s  %-20s  %s\n",
			shortID(v.VersionID), parent, active, v.CreatedAt.Format("2006-01-02T15:04:05Z"), v.Note)
	}
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// #endregion output
