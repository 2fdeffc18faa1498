package report

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/stackcost/internal/costing"
)

func sampleEstimate() costing.Estimate {
	stator := costing.DefaultComponent()
	rotor := costing.CloneComponent(stator, "Rotor")
	rotor.RivetCount = 4
	rotor.ToolMaintOverride = &costing.ToolMaintOverride{Enabled: true, Value: 5}
	rotor.Extra = &costing.ExtraCost{Label: "Coating", Value: 2.5}
	return costing.Calculate(costing.DefaultCommonInputs(), []costing.ComponentInputs{stator, rotor})
}

func findRow(t *testing.T, rows []Row, label string) Row {
	t.Helper()
	for _, r := range rows {
		for _, c := range r.Cells {
			if c == label {
				return r
			}
		}
	}
	t.Fatalf("row %q not found", label)
	return Row{}
}

func TestFixed_RoundsHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		v      float64
		places int32
		want   string
	}{
		{2.675, 2, "2.68"},
		{0.125, 2, "0.13"},
		{-1.005, 2, "-1.01"},
		{13.14, 3, "13.140"},
		{40, 2, "40.00"},
		{math.NaN(), 2, "-"},
		{math.Inf(1), 2, "-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fixed(tt.v, tt.places), "Fixed(%v, %d)", tt.v, tt.places)
	}
}

func TestDetailed_Layout(t *testing.T) {
	est := sampleEstimate()
	doc := Detailed(est)

	assert.Equal(t, CompanyName, doc.Company)
	assert.Equal(t, "Detailed Costing Report: AL-102517A Combo", doc.Title)
	assert.Equal(t, "AL-102517A_Combo_Detailed.pdf", doc.FileName)
	require.Len(t, doc.Tables, 3)

	common := doc.Tables[0]
	assert.Equal(t, "1. Common Manufacturing Parameters", common.Section)
	assert.Equal(t, "40", findRow(t, common.Rows, "Strokes per Kg").Cells[1])
	totalRow := common.Rows[len(common.Rows)-1]
	assert.True(t, totalRow.Bold)
	assert.Equal(t, Fixed(est.Rates.TotalCostPerKg, 2), totalRow.Cells[1])

	stator := doc.Tables[1]
	assert.Equal(t, "2. Component Stack Costs", stator.Section)
	assert.Equal(t, "Component: Stator", stator.Heading)
	assert.Equal(t, "66.00", findRow(t, stator.Rows, "Laminations per Stack").Cells[1])
	assert.Equal(t, "1.98", findRow(t, stator.Rows, "Tool Maintenance").Cells[1])

	rotor := doc.Tables[2]
	assert.Empty(t, rotor.Section)
	assert.Equal(t, "5.00", findRow(t, rotor.Rows, "Tool Maintenance (manual)").Cells[1])
	assert.Equal(t, "2.50", findRow(t, rotor.Rows, "Coating").Cells[1])
	final := rotor.Rows[len(rotor.Rows)-1]
	assert.True(t, final.Bold)
	assert.Equal(t, Fixed(est.Components[1].FinalStackCost, 2), final.Cells[1])

	for _, tbl := range doc.Tables {
		for _, r := range tbl.Rows {
			assert.Len(t, r.Cells, len(tbl.Columns))
		}
		assert.Len(t, tbl.Widths, len(tbl.Columns))
		assert.Len(t, tbl.Align, len(tbl.Columns))
	}
}

func TestDetailed_ComponentRowsAddUpToFinalCost(t *testing.T) {
	est := sampleEstimate()

	for _, c := range est.Components {
		sum := c.BaseStackCost + c.RivetTotalCost + c.PressingCost + c.ToolMaintCost + c.ExtraCost + c.PackingCost + c.TransportCost
		assert.InDelta(t, c.FinalStackCost, sum, 1e-9, c.Input.Name)
	}
}

func TestSummary_Layout(t *testing.T) {
	est := sampleEstimate()
	doc := Summary(est)

	assert.Equal(t, "Cost Summary: AL-102517A Combo", doc.Title)
	require.Len(t, doc.Tables, 1)

	rows := doc.Tables[0].Rows
	require.Len(t, rows, 5+7*len(est.Components))

	header := rows[5]
	assert.True(t, header.Shaded)
	assert.Equal(t, "COMPONENT: Stator", header.Cells[1])
	assert.Equal(t, "6", rows[6].Cells[0])
	assert.Equal(t, "13.140", findRow(t, rows, "Single Lam Weight").Cells[2])

	last := rows[len(rows)-1]
	assert.Equal(t, "17", last.Cells[0])
	assert.Equal(t, "Total Cost (Landed)", last.Cells[1])
	assert.True(t, last.Bold)
	assert.Equal(t, Fixed(est.Components[1].FinalStackCost, 2), last.Cells[2])
}

func TestWritePDF(t *testing.T) {
	est := sampleEstimate()
	generated := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	for _, doc := range []Document{Detailed(est), Summary(est)} {
		var buf bytes.Buffer
		require.NoError(t, WritePDF(&buf, doc, generated))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), doc.Title)
	}
}

func TestWritePDF_NoComponents(t *testing.T) {
	est := costing.Calculate(costing.DefaultCommonInputs(), nil)

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, Detailed(est), time.Now()))
	assert.NotZero(t, buf.Len())
}

func TestWriteXLSX(t *testing.T) {
	est := sampleEstimate()

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, est))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Common", "Components"}, f.GetSheetList())

	tool, err := f.GetCellValue("Common", "B2")
	require.NoError(t, err)
	assert.Equal(t, "AL-102517A Combo", tool)

	rows, err := f.GetRows("Components")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Stator", rows[1][0])
	assert.Equal(t, "Rotor", rows[2][0])
	assert.Equal(t, "Coating", rows[2][12])
	assert.Equal(t, "Total", rows[3][0])

	assert.Equal(t, "AL-102517A_Combo_Estimate.xlsx", XLSXFileName(est))
}
