package patients

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/crucial707/patient-sync/cmd/cli/client"
	"github.com/crucial707/patient-sync/cmd/cli/output"
	"github.com/crucial707/patient-sync/internal/models"
	"github.com/spf13/cobra"
)

// InitPatients registers the patients command group on rootCmd.
func InitPatients(rootCmd *cobra.Command) {
	patientsCmd := &cobra.Command{
		Use:   "patients",
		Short: "Browse stored patients",
	}
	patientsCmd.AddCommand(listPatientsCmd(), getPatientCmd())
	rootCmd.AddCommand(patientsCmd)
}

type page struct {
	Items  []models.Patient `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

func listPatientsCmd() *cobra.Command {
	var limit, offset int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List patients in id order",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))

			var p page
			if err := client.New().Get("/patients?"+q.Encode(), &p); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(cmd.OutOrStdout(), p)
			}

			rows := make([][]any, 0, len(p.Items))
			for _, pt := range p.Items {
				rows = append(rows, patientRow(pt))
			}
			output.RenderTable(cmd.OutOrStdout(), []string{"ID", "Name", "Surname", "Date of birth", "Email"}, rows)
			fmt.Fprintf(cmd.OutOrStdout(), "Showing %d-%d of %d\n", min(p.Offset+1, p.Total), p.Offset+len(p.Items), p.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "max patients to show (1-500)")
	cmd.Flags().IntVar(&offset, "offset", 0, "patients to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output raw JSON")
	return cmd
}

func getPatientCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show one patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("invalid patient id %q", args[0])
			}
			var pt models.Patient
			if err := client.New().Get("/patients/"+args[0], &pt); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(cmd.OutOrStdout(), pt)
			}
			output.RenderTable(cmd.OutOrStdout(), []string{"ID", "Name", "Surname", "Date of birth", "Email"}, [][]any{patientRow(pt)})
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output raw JSON")
	return cmd
}

func patientRow(p models.Patient) []any {
	return []any{p.ID, p.Name, p.Surname, p.DateOfBirth.Format(models.DateLayout), p.Email}
}
