package settings

import (
	"fmt"
	"net/http"

	"github.com/crucial707/patient-sync/cmd/cli/client"
	"github.com/crucial707/patient-sync/cmd/cli/output"
	"github.com/crucial707/patient-sync/internal/models"
	"github.com/spf13/cobra"
)

// InitSettings registers settings, pause and resume on rootCmd.
func InitSettings(rootCmd *cobra.Command) {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change sync schedules and folders",
	}
	settingsCmd.AddCommand(showSettingsCmd(), setSettingsCmd())

	rootCmd.AddCommand(settingsCmd, pauseCmd(), resumeCmd())
}

func showSettingsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			var s models.SyncSettings
			if err := client.New().Get("/settings", &s); err != nil {
				return err
			}
			return printSettings(cmd, s, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output raw JSON")
	return cmd
}

func setSettingsCmd() *cobra.Command {
	var importSchedule, exportSchedule, importFolder, exportFolder string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change schedules or folders; unset flags keep their current value",
		Example: `  psync settings set --import-schedule "*/30 * * * *"
  psync settings set --import-folder /data/in --export-folder /data/out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("import-schedule") && !flags.Changed("export-schedule") &&
				!flags.Changed("import-folder") && !flags.Changed("export-folder") {
				return fmt.Errorf("nothing to change: pass at least one of --import-schedule, --export-schedule, --import-folder, --export-folder")
			}

			c := client.New()
			var current models.SyncSettings
			if err := c.Get("/settings", &current); err != nil {
				return err
			}

			body := map[string]string{
				"import_schedule": current.ImportSchedule,
				"export_schedule": current.ExportSchedule,
				"import_folder":   current.ImportFolder,
				"export_folder":   current.ExportFolder,
			}
			if flags.Changed("import-schedule") {
				body["import_schedule"] = importSchedule
			}
			if flags.Changed("export-schedule") {
				body["export_schedule"] = exportSchedule
			}
			if flags.Changed("import-folder") {
				body["import_folder"] = importFolder
			}
			if flags.Changed("export-folder") {
				body["export_folder"] = exportFolder
			}

			var updated models.SyncSettings
			if err := c.Do(http.MethodPut, "/settings", body, &updated); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings updated.")
			return printSettings(cmd, updated, false)
		},
	}
	cmd.Flags().StringVar(&importSchedule, "import-schedule", "", "cron expression for imports (5 fields)")
	cmd.Flags().StringVar(&exportSchedule, "export-schedule", "", "cron expression for exports (5 fields)")
	cmd.Flags().StringVar(&importFolder, "import-folder", "", "folder scanned for *.csv files")
	cmd.Flags().StringVar(&exportFolder, "export-folder", "", "folder export files are written to")
	return cmd
}

func pauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause scheduled imports and exports",
		Long:  "Pause scheduled imports and exports. Occurrences that pass while paused are skipped, not run on resume.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.New().Do(http.MethodPost, "/settings/pause", nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sync paused.")
			return nil
		},
	}
}

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume scheduled imports and exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.New().Do(http.MethodPost, "/settings/resume", nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sync resumed.")
			return nil
		},
	}
}

func printSettings(cmd *cobra.Command, s models.SyncSettings, asJSON bool) error {
	if asJSON {
		return output.PrintJSON(cmd.OutOrStdout(), s)
	}
	output.RenderKV(cmd.OutOrStdout(), [][2]any{
		{"Import schedule", s.ImportSchedule},
		{"Export schedule", s.ExportSchedule},
		{"Import folder", s.ImportFolder},
		{"Export folder", s.ExportFolder},
		{"Paused", s.IsPaused},
		{"Updated", output.Time(s.UpdatedAt)},
	})
	return nil
}
