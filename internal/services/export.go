package services

import (
	"context"
	"fmt"

	"github.com/indyforge/groupindustry/internal/models"
	"github.com/xuri/excelize/v2"
)

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var bomExportHeaders = []string{
	"Type ID", "Name", "Kind", "Job Group", "Activity", "ME", "TE",
	"Required", "Fulfilled", "Remaining", "Unit Price", "Estimated Total",
}

var distributionExportHeaders = []string{
	"Member ID", "Character", "Material", "Job Install", "BPC", "Line Rental",
	"Total Cost", "Share %", "Profit Part", "Payout",
}

// ExportService renders project data as xlsx workbooks.
type ExportService struct {
	projects     *ProjectService
	distribution *DistributionService
}

func NewExportService(projects *ProjectService, distribution *DistributionService) *ExportService {
	return &ExportService{projects: projects, distribution: distribution}
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
}

func writeHeaders(f *excelize.File, sheet string, headers []string) error {
	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	return f.SetSheetRow(sheet, cell, &values)
}

// ExportBOM writes the bill of materials to a workbook. The caller closes it.
func (s *ExportService) ExportBOM(ctx context.Context, projectID uint) (*excelize.File, string, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, "", err
	}
	view, err := s.projects.GetBOM(ctx, projectID)
	if err != nil {
		return nil, "", fmt.Errorf("load bom: %w", err)
	}

	f := excelize.NewFile()
	sheet := "BOM"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, "", err
	}
	if err := writeHeaders(f, sheet, bomExportHeaders); err != nil {
		f.Close()
		return nil, "", err
	}

	row := 2
	lines := append(append([]BomLine{}, view.Materials...), view.Jobs...)
	for _, line := range lines {
		kind := "material"
		if line.IsJob {
			kind = "job"
		}
		values := []interface{}{
			line.TypeID, line.TypeName, kind, line.JobGroup, line.ActivityType, line.MELevel, line.TELevel,
			line.RequiredQuantity, line.FulfilledQuantity, line.RemainingQuantity, nil, nil,
		}
		if line.EstimatedPrice != nil {
			values[10] = *line.EstimatedPrice
		}
		if line.EstimatedTotal != nil {
			values[11] = *line.EstimatedTotal
		}
		if err := setRow(f, sheet, row, values); err != nil {
			f.Close()
			return nil, "", err
		}
		row++
	}

	summaryStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), fmt.Sprintf("%d materials (%d unpriced), %d jobs",
		len(view.Materials), view.UnpricedMaterials, len(view.Jobs)))
	f.SetCellValue(sheet, fmt.Sprintf("L%d", row), view.EstimatedMaterialCost)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("L%d", row), summaryStyle)

	colWidths := []float64{10, 32, 10, 12, 14, 6, 6, 12, 12, 12, 14, 16}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	return f, fmt.Sprintf("project_%d_bom.xlsx", project.ID), nil
}

// ExportDistribution writes the current payout table to a workbook.
func (s *ExportService) ExportDistribution(ctx context.Context, projectID uint) (*excelize.File, string, error) {
	result, err := s.distribution.Calculate(ctx, projectID)
	if err != nil {
		return nil, "", err
	}
	f, err := DistributionWorkbook(result)
	if err != nil {
		return nil, "", err
	}
	return f, fmt.Sprintf("project_%d_distribution.xlsx", projectID), nil
}

// DistributionWorkbook renders a computed distribution: one row per member
// followed by the project totals.
func DistributionWorkbook(result *DistributionResult) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Distribution"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeHeaders(f, sheet, distributionExportHeaders); err != nil {
		f.Close()
		return nil, err
	}

	row := 2
	for _, m := range result.Members {
		values := []interface{}{
			m.MemberID, m.CharacterName, m.MaterialCosts, m.JobInstallCosts, m.BpcCosts, m.LineRentalCosts,
			m.TotalCostsEngaged, m.SharePercent, m.ProfitPart, m.PayoutTotal,
		}
		if err := setRow(f, sheet, row, values); err != nil {
			f.Close()
			return nil, err
		}
		row++
	}

	row++
	totals := []struct {
		label string
		value float64
	}{
		{"Total revenue", result.TotalRevenue},
		{"Broker fee", result.BrokerFee},
		{"Sales tax", result.SalesTax},
		{"Net revenue", result.NetRevenue},
		{"Total project cost", result.TotalProjectCost},
		{"Margin", result.MarginPercent},
	}
	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for _, t := range totals {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), t.label)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), t.value)
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), bold)
		row++
	}

	f.SetColWidth(sheet, "A", "A", 20)
	f.SetColWidth(sheet, "B", "B", 28)
	f.SetColWidth(sheet, "C", "J", 14)

	return f, nil
}

// ProjectLabel is used in export file names and CLI output.
func ProjectLabel(p *models.Project) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("#%d %s", p.ID, p.Name)
}
