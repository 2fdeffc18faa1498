package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pdfFont      = "Helvetica"
	rowHeight    = 7.0
	footerLayout = "02-Jan-2006 15:04"
)

// WritePDF renders doc as an A4 PDF. generatedAt is printed in the footer of
// every page and used as the document creation date.
func WritePDF(w io.Writer, doc Document, generatedAt time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetCreationDate(generatedAt)
	pdf.SetTitle(doc.Title, true)
	pdf.SetAuthor(doc.Company, true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(pdfFont, "", 8)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(95, 5, "Generated on: "+generatedAt.Format(footerLayout), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont(pdfFont, "B", 14)
	pdf.CellFormat(0, 8, tr(doc.Company), "", 1, "L", false, 0, "")
	pdf.SetFont(pdfFont, "", 12)
	pdf.CellFormat(0, 7, tr(doc.Title), "", 1, "L", false, 0, "")
	pdf.Ln(5)

	for _, t := range doc.Tables {
		if t.Section != "" {
			pdf.SetFont(pdfFont, "B", 13)
			pdf.CellFormat(0, 8, tr(t.Section), "", 1, "L", false, 0, "")
		}
		if t.Heading != "" {
			pdf.SetFont(pdfFont, "B", 11)
			pdf.CellFormat(0, 7, tr(t.Heading), "", 1, "L", false, 0, "")
		}
		writeTable(pdf, tr, t)
		pdf.Ln(5)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func writeTable(pdf *fpdf.Fpdf, tr func(string) string, t Table) {
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)

	pdf.SetFillColor(0, 0, 0)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(pdfFont, "B", 10)
	for i, col := range t.Columns {
		pdf.CellFormat(t.Widths[i], rowHeight+1, tr(col), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(211, 211, 211)
	for _, r := range t.Rows {
		style := ""
		if r.Bold {
			style = "B"
		}
		pdf.SetFont(pdfFont, style, 9)
		for i, cell := range r.Cells {
			pdf.CellFormat(t.Widths[i], rowHeight, tr(cell), "1", 0, t.Align[i], r.Shaded, 0, "")
		}
		pdf.Ln(-1)
	}
}
