package runs

import (
	"net/url"
	"strconv"
	"time"

	"github.com/crucial707/patient-sync/cmd/cli/client"
	"github.com/crucial707/patient-sync/cmd/cli/output"
	"github.com/crucial707/patient-sync/internal/models"
	"github.com/spf13/cobra"
)

// InitRuns registers status and the runs command group on rootCmd.
func InitRuns(rootCmd *cobra.Command) {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Show import and export history",
	}
	runsCmd.AddCommand(listRunsCmd())
	rootCmd.AddCommand(runsCmd, statusCmd())
}

type status struct {
	State            string     `json:"state"`
	Paused           bool       `json:"paused"`
	ImportCheckpoint time.Time  `json:"import_checkpoint"`
	ExportCheckpoint time.Time  `json:"export_checkpoint"`
	LastTickAt       *time.Time `json:"last_tick_at"`
	StartedAt        time.Time  `json:"started_at"`
	NextImportAt     *time.Time `json:"next_import_at"`
	NextExportAt     *time.Time `json:"next_export_at"`
}

func statusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what the sync service is doing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var s status
			if err := client.New().Get("/sync/status", &s); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(cmd.OutOrStdout(), s)
			}
			output.RenderKV(cmd.OutOrStdout(), [][2]any{
				{"State", s.State},
				{"Paused", s.Paused},
				{"Import checkpoint", output.Time(s.ImportCheckpoint)},
				{"Next import", optionalTime(s.NextImportAt)},
				{"Export checkpoint", output.Time(s.ExportCheckpoint)},
				{"Next export", optionalTime(s.NextExportAt)},
				{"Last tick", optionalTime(s.LastTickAt)},
				{"Started", output.Time(s.StartedAt)},
			})
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output raw JSON")
	return cmd
}

func listRunsCmd() *cobra.Command {
	var task string
	var limit, offset int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if task != "" {
				q.Set("task", task)
			}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))

			var list []models.SyncRun
			if err := client.New().Get("/sync/runs?"+q.Encode(), &list); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(cmd.OutOrStdout(), list)
			}

			rows := make([][]any, 0, len(list))
			for _, r := range list {
				rows = append(rows, []any{
					r.ID, r.Task, r.Status, output.Time(r.StartedAt),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
					r.Files, r.Failed, r.Affected, r.Detail,
				})
			}
			output.RenderTable(cmd.OutOrStdout(),
				[]string{"ID", "Task", "Status", "Started", "Duration", "Files", "Failed", "Affected", "Detail"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&task, "task", "", "only show import or export runs")
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to show (1-200)")
	cmd.Flags().IntVar(&offset, "offset", 0, "runs to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output raw JSON")
	return cmd
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return output.Time(*t)
}
