package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/indyforge/groupindustry/internal/services"
	"github.com/spf13/cobra"
)

var distributionCmd = &cobra.Command{
	Use:   "distribution",
	Short: "Print the payout table of a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, _ := cmd.Flags().GetUint("project")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, db, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeDB(db)

		projects := services.NewProjectService(db, cfg, nil, nil, nil)
		project, err := projects.GetByID(cmd.Context(), projectID)
		if err != nil {
			return fmt.Errorf("project %d: %w", projectID, err)
		}

		result, err := services.NewDistributionService(db).Calculate(cmd.Context(), projectID)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		return writeDistributionTable(os.Stdout, services.ProjectLabel(project), result)
	},
}

func writeDistributionTable(out io.Writer, label string, r *services.DistributionResult) error {
	fmt.Fprintf(out, "%s\n", label)
	fmt.Fprintf(out, "Revenue %.2f  Broker fee %.2f  Sales tax %.2f  Net %.2f\n",
		r.TotalRevenue, r.BrokerFee, r.SalesTax, r.NetRevenue)
	fmt.Fprintf(out, "Cost %.2f  Margin %.2f%%\n\n", r.TotalProjectCost, r.MarginPercent*100)

	if len(r.Members) == 0 {
		fmt.Fprintln(out, "No approved contributions.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "MEMBER\tCOSTS\tSHARE %\tPROFIT\tPAYOUT\t")
	for _, m := range r.Members {
		fmt.Fprintf(w, "%s\t%.2f\t%.4f\t%.2f\t%.2f\t\n",
			m.CharacterName, m.TotalCostsEngaged, m.SharePercent, m.ProfitPart, m.PayoutTotal)
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(distributionCmd)
	distributionCmd.Flags().Uint("project", 0, "Project ID")
	distributionCmd.Flags().Bool("json", false, "Print the result as JSON")
	distributionCmd.MarkFlagRequired("project")
}
