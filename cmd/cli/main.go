package main

import (
	"fmt"
	"os"

	"github.com/crucial707/patient-sync/cmd/cli/patients"
	"github.com/crucial707/patient-sync/cmd/cli/root"
	"github.com/crucial707/patient-sync/cmd/cli/runs"
	"github.com/crucial707/patient-sync/cmd/cli/settings"
)

func main() {
	rootCmd := root.GetRoot()
	settings.InitSettings(rootCmd)
	patients.InitPatients(rootCmd)
	runs.InitRuns(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
