// Package report turns a cost estimate into printable documents.
//
// Detailed and Summary build a renderer-independent table model; WritePDF and
// WriteXLSX serialise it. All figures are rounded half away from zero for
// display only, the estimate itself is never modified.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/stackcost/internal/costing"
)

// CompanyName heads every generated document.
const CompanyName = "Sai Precision Tool Industries"

// Row is one table line. Bold marks totals; Shaded marks group headers.
type Row struct {
	Cells  []string
	Bold   bool
	Shaded bool
}

// Table is a titled grid with a header row. Section, when set, opens a new
// numbered part of the document above the table heading.
type Table struct {
	Section string
	Heading string
	Columns []string
	// Widths are in millimetres on an A4 page with 10 mm margins.
	Widths []float64
	// Align holds one fpdf alignment string ("L", "R", "C") per column.
	Align []string
	Rows  []Row
}

// Document is a printable report.
type Document struct {
	Company  string
	Title    string
	FileName string
	Tables   []Table
}

var (
	threeColWidths = []float64{110, 44, 36}
	threeColAlign  = []string{"L", "R", "L"}
	fourColWidths  = []float64{15, 109, 37, 29}
	fourColAlign   = []string{"L", "L", "R", "L"}
)

// Detailed lists every common rate followed by a cost breakdown per component.
func Detailed(est costing.Estimate) Document {
	in, r := est.Common, est.Rates

	common := Table{
		Section: "1. Common Manufacturing Parameters",
		Columns: []string{"Parameter", "Value", "Unit"},
		Widths:  threeColWidths,
		Align:   threeColAlign,
		Rows: []Row{
			row("Yield", Fixed(in.YieldPct, 2), "%"),
			row("Sheet Thickness (Common)", Fixed(in.SheetThicknessMm, 2), "mm"),
			row("Raw Material Rate", Fixed(in.RMRate, 2), "Rs/Kg"),
			row("Scrap Rate", Fixed(in.ScrapRate, 2), "Rs/Kg"),
			row("Net Material Cost (NRM)", Fixed(r.NRM, 2), "Rs/Kg"),
			row("Strokes per Kg", fmt.Sprintf("%d", r.StrokesPerKg), "Nos"),
			row("Processing Cost", Fixed(r.ProcessCost, 2), "Rs/Kg"),
			row("Inventory Cost", Fixed(r.InventoryCost, 2), "Rs/Kg"),
			row("Rejection Cost", Fixed(r.RejectionCost, 2), "Rs/Kg"),
			row("Overhead Cost", Fixed(r.OverheadCost, 2), "Rs/Kg"),
			row("Profit", Fixed(r.ProfitCost, 2), "Rs/Kg"),
			total(row("TOTAL MFG COST PER KG", Fixed(r.TotalCostPerKg, 2), "Rs/Kg")),
		},
	}

	doc := Document{
		Company:  CompanyName,
		Title:    "Detailed Costing Report: " + in.ToolRefName,
		FileName: fileName(in.ToolRefName, "Detailed", "pdf"),
		Tables:   []Table{common},
	}

	for i, c := range est.Components {
		section := ""
		if i == 0 {
			section = "2. Component Stack Costs"
		}

		maintLabel := "Tool Maintenance"
		if c.ToolMaintManual {
			maintLabel += " (manual)"
		}

		rows := []Row{
			row("Stack Height", Fixed(c.Input.StackHeightMm, 2), "mm"),
			row("Sheet Thickness (Ref)", Fixed(c.SheetThicknessMm, 2), "mm"),
			row("Laminations per Stack", Fixed(c.LamsPerStack, 2), "Nos"),
			row("Weight of Stack", Fixed(c.StackWeightG, 2), "grams"),
			row("Base Cost (Mat + Process)", Fixed(c.BaseStackCost, 2), "Rs"),
			row("Riveting Cost", Fixed(c.RivetTotalCost, 2), "Rs"),
			row("Pressing Cost", Fixed(c.PressingCost, 2), "Rs"),
			row(maintLabel, Fixed(c.ToolMaintCost, 2), "Rs"),
		}
		if c.Input.Extra != nil {
			label := c.Input.Extra.Label
			if label == "" {
				label = "Extra Cost"
			}
			rows = append(rows, row(label, Fixed(c.ExtraCost, 2), "Rs"))
		}
		rows = append(rows,
			row("Packing & Transport", Fixed(c.PackingCost+c.TransportCost, 2), "Rs"),
			total(row("FINAL STACK COST", Fixed(c.FinalStackCost, 2), "Rs")),
		)

		doc.Tables = append(doc.Tables, Table{
			Section: section,
			Heading: "Component: " + c.Input.Name,
			Columns: []string{"Description", "Value", "Unit"},
			Widths:  threeColWidths,
			Align:   threeColAlign,
			Rows:    rows,
		})
	}

	return doc
}

// Summary is a single numbered table with the headline rates and, per
// component, its geometry, weight and landed cost.
func Summary(est costing.Estimate) Document {
	in, r := est.Common, est.Rates

	t := Table{
		Columns: []string{"S. No.", "Description", "Value", "Unit"},
		Widths:  fourColWidths,
		Align:   fourColAlign,
		Rows: []Row{
			numbered(1, "Yield", Fixed(in.YieldPct, 2), "%"),
			numbered(2, "Raw Material Rate", Fixed(in.RMRate, 2), "Rs/Kg"),
			numbered(3, "Scrap Rate", Fixed(in.ScrapRate, 2), "Rs/Kg"),
			numbered(4, "Net Material Cost (NRM)", Fixed(r.NRM, 2), "Rs/Kg"),
			numbered(5, "Mfg Cost per Kg", Fixed(r.TotalCostPerKg, 2), "Rs/Kg"),
		},
	}

	n := 6
	for _, c := range est.Components {
		t.Rows = append(t.Rows,
			Row{Cells: []string{"", "COMPONENT: " + c.Input.Name, "", ""}, Bold: true, Shaded: true},
			numbered(n, "Stack Height", Fixed(c.Input.StackHeightMm, 2), "mm"),
			numbered(n+1, "Sheet Thickness", Fixed(c.SheetThicknessMm, 2), "mm"),
			numbered(n+2, "Laminations/Stack", Fixed(c.LamsPerStack, 2), "Nos"),
			numbered(n+3, "Single Lam Weight", Fixed(c.Input.SingleLamWeightG, 3), "g"),
			numbered(n+4, "Stack Weight", Fixed(c.StackWeightG, 2), "g"),
			total(numbered(n+5, "Total Cost (Landed)", Fixed(c.FinalStackCost, 2), "Rs")),
		)
		n += 6
	}

	return Document{
		Company:  CompanyName,
		Title:    "Cost Summary: " + in.ToolRefName,
		FileName: fileName(in.ToolRefName, "Summary", "pdf"),
		Tables:   []Table{t},
	}
}

// Fixed formats v with places decimals, rounding half away from zero.
// Non-finite values render as "-".
func Fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// XLSXFileName is the download name of the workbook export.
func XLSXFileName(est costing.Estimate) string {
	return fileName(est.Common.ToolRefName, "Estimate", "xlsx")
}

func row(label, value, unit string) Row {
	return Row{Cells: []string{label, value, unit}}
}

func numbered(n int, label, value, unit string) Row {
	return Row{Cells: []string{fmt.Sprintf("%d", n), label, value, unit}}
}

func total(r Row) Row {
	r.Bold = true
	return r
}

var fileNameReplacer = strings.NewReplacer("/", "-", "\\", "-", "\"", "", " ", "_")

func fileName(tool, kind, ext string) string {
	base := fileNameReplacer.Replace(strings.TrimSpace(tool))
	if base == "" {
		base = "estimate"
	}
	return fmt.Sprintf("%s_%s.%s", base, kind, ext)
}
