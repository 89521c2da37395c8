package main

import (
	"fmt"

	"github.com/indyforge/groupindustry/internal/services"
	"github.com/spf13/cobra"
)

var exportBOMCmd = &cobra.Command{
	Use:   "export-bom",
	Short: "Write a project's bill of materials to an xlsx file",
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, _ := cmd.Flags().GetUint("project")
		out, _ := cmd.Flags().GetString("out")

		cfg, db, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeDB(db)

		projects := services.NewProjectService(db, cfg, nil, nil, nil)
		exports := services.NewExportService(projects, services.NewDistributionService(db))

		book, filename, err := exports.ExportBOM(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		defer book.Close()

		if out == "" {
			out = filename
		}
		if err := book.SaveAs(out); err != nil {
			return fmt.Errorf("save %s: %w", out, err)
		}
		fmt.Printf("Wrote %s\n", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportBOMCmd)
	exportBOMCmd.Flags().Uint("project", 0, "Project ID")
	exportBOMCmd.Flags().StringP("out", "o", "", "Output file (default project_<id>_bom.xlsx)")
	exportBOMCmd.MarkFlagRequired("project")
}
