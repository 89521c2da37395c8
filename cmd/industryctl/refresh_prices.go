package main

import (
	"fmt"

	"github.com/indyforge/groupindustry/internal/services"
	"github.com/spf13/cobra"
)

var refreshPricesCmd = &cobra.Command{
	Use:   "refresh-prices",
	Short: "Re-price material lines from the market",
	Long:  "Re-prices the material lines of one project, or of every non-archived project when --project is omitted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, _ := cmd.Flags().GetUint("project")

		cfg, db, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeDB(db)

		// The CLI talks to the pricing service directly; the shared cache is
		// only used by the server.
		refresh := services.NewPriceRefreshService(db, services.NewPriceProvider(&cfg.Pricing, nil), "")

		var updated int64
		if projectID != 0 {
			updated, err = refresh.RefreshProject(cmd.Context(), projectID)
		} else {
			updated, err = refresh.RefreshAll(cmd.Context())
		}
		if err != nil {
			return err
		}
		fmt.Printf("Updated %d material lines\n", updated)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshPricesCmd)
	refreshPricesCmd.Flags().Uint("project", 0, "Project ID (default all active projects)")
}
