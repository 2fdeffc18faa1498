package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/stackcost/internal/costing"
)

const (
	commonSheet     = "Common"
	componentsSheet = "Components"
)

var componentColumns = []string{
	"Component",
	"Stack Height (mm)",
	"Sheet Thickness (mm)",
	"Laminations",
	"Single Lam Weight (g)",
	"Stack Weight (g)",
	"Stack Weight (kg)",
	"Base Cost (Rs)",
	"Riveting (Rs)",
	"Pressing (Rs)",
	"Tool Maintenance (Rs)",
	"Tool Maint Manual",
	"Extra Label",
	"Extra Cost (Rs)",
	"Mfg Cost (Rs)",
	"Packing (Rs)",
	"Transport (Rs)",
	"Final Stack Cost (Rs)",
}

// WriteXLSX exports the estimate as a workbook with a Common sheet holding
// inputs and rates and a Components sheet with one row per component. Cells
// hold unrounded numbers.
func WriteXLSX(w io.Writer, est costing.Estimate) error {
	const operation = "report.WriteXLSX"

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("%s: create style: %w", operation, err)
	}

	if err := f.SetSheetName("Sheet1", commonSheet); err != nil {
		return fmt.Errorf("%s: rename sheet: %w", operation, err)
	}
	if err := writeCommonSheet(f, est, bold); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	if _, err := f.NewSheet(componentsSheet); err != nil {
		return fmt.Errorf("%s: add sheet: %w", operation, err)
	}
	if err := writeComponentsSheet(f, est, bold); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("%s: write workbook: %w", operation, err)
	}
	return nil
}

func writeCommonSheet(f *excelize.File, est costing.Estimate, bold int) error {
	in, r := est.Common, est.Rates
	rows := [][]any{
		{"Parameter", "Value", "Unit"},
		{"Tool Reference", in.ToolRefName, ""},
		{"Yield", in.YieldPct, "%"},
		{"Weight per Stroke", in.WeightPerStrokeG, "g"},
		{"Sheet Thickness", in.SheetThicknessMm, "mm"},
		{"Raw Material Rate", in.RMRate, "Rs/Kg"},
		{"Scrap Rate", in.ScrapRate, "Rs/Kg"},
		{"Stroke Rate", in.StrokeRate, "Rs/stroke"},
		{"Packing Rate", in.PackingRate, "Rs/Kg"},
		{"Transport Rate", in.TransportRate, "Rs/Kg"},
		{"Tool Maintenance Rate", in.ToolMaintRate, "Rs/lam"},
		{"Gross Weight", r.GrossWeightKg, "Kg"},
		{"Scrap Weight", r.ScrapWeightKg, "Kg"},
		{"Raw Material Cost", r.RMCost, "Rs/Kg"},
		{"Scrap Recovery", r.ScrapRecovery, "Rs/Kg"},
		{"Net Material Cost (NRM)", r.NRM, "Rs/Kg"},
		{"Strokes per Kg", r.StrokesPerKg, "Nos"},
		{"Processing Cost", r.ProcessCost, "Rs/Kg"},
		{"Inventory Cost", r.InventoryCost, "Rs/Kg"},
		{"Rejection Cost", r.RejectionCost, "Rs/Kg"},
		{"Overhead Cost", r.OverheadCost, "Rs/Kg"},
		{"Profit", r.ProfitCost, "Rs/Kg"},
		{"Total Mfg Cost per Kg", r.TotalCostPerKg, "Rs/Kg"},
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(commonSheet, cell, &row); err != nil {
			return fmt.Errorf("write common row %d: %w", i+1, err)
		}
	}

	last := len(rows)
	if err := f.SetCellStyle(commonSheet, "A1", "C1", bold); err != nil {
		return fmt.Errorf("style common header: %w", err)
	}
	if err := f.SetCellStyle(commonSheet, fmt.Sprintf("A%d", last), fmt.Sprintf("C%d", last), bold); err != nil {
		return fmt.Errorf("style common total: %w", err)
	}
	return f.SetColWidth(commonSheet, "A", "A", 28)
}

func writeComponentsSheet(f *excelize.File, est costing.Estimate, bold int) error {
	header := make([]any, len(componentColumns))
	for i, c := range componentColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(componentsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write components header: %w", err)
	}

	for i, c := range est.Components {
		extraLabel := ""
		if c.Input.Extra != nil {
			extraLabel = c.Input.Extra.Label
		}
		row := []any{
			c.Input.Name,
			c.Input.StackHeightMm,
			c.SheetThicknessMm,
			c.LamsPerStack,
			c.Input.SingleLamWeightG,
			c.StackWeightG,
			c.StackWeightKg,
			c.BaseStackCost,
			c.RivetTotalCost,
			c.PressingCost,
			c.ToolMaintCost,
			c.ToolMaintManual,
			extraLabel,
			c.ExtraCost,
			c.StackMfgCost,
			c.PackingCost,
			c.TransportCost,
			c.FinalStackCost,
		}
		if err := f.SetSheetRow(componentsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("write component row %d: %w", i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(componentColumns))
	if err != nil {
		return err
	}
	totalRow := len(est.Components) + 2
	if err := f.SetSheetRow(componentsSheet, fmt.Sprintf("A%d", totalRow), &[]any{"Total"}); err != nil {
		return fmt.Errorf("write components total: %w", err)
	}
	if err := f.SetCellValue(componentsSheet, fmt.Sprintf("%s%d", lastCol, totalRow), est.TotalLandedCost()); err != nil {
		return fmt.Errorf("write components total: %w", err)
	}

	if err := f.SetCellStyle(componentsSheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("style components header: %w", err)
	}
	if err := f.SetCellStyle(componentsSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("%s%d", lastCol, totalRow), bold); err != nil {
		return fmt.Errorf("style components total: %w", err)
	}
	return f.SetColWidth(componentsSheet, "A", lastCol, 16)
}
