package root

import (
	"github.com/spf13/cobra"
)

// RootCmd is the psync entry point.
var RootCmd = &cobra.Command{
	Use:           "psync",
	Short:         "Patient sync control CLI",
	Long:          "Command line interface for the patient sync service control API.\nSet PSYNC_API_URL to point at a service other than http://localhost:8080.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// GetRoot returns the RootCmd.
func GetRoot() *cobra.Command {
	return RootCmd
}
