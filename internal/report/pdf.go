package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// Table describes one report tab ready for PDF rendering.
type Table struct {
	Title   string
	Columns []string
	// Widths are relative column weights; they are scaled to the page.
	Widths []float64
	Rows   [][]string
	// Landscape is used for the wider transaction tabs.
	Landscape bool
}

// Filename builds the download filename for a report tab,
// e.g. "report-stock-2025-06-15.pdf".
func Filename(tab string, now time.Time) string {
	return fmt.Sprintf("report-%s-%s.pdf", tab, now.Format("2006-01-02"))
}

// RenderPDF renders a report table to PDF bytes: title, generation date,
// a filled header row, and one row per record.
func RenderPDF(t Table, generated time.Time) ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("table needs at least one column")
	}
	if len(t.Widths) != len(t.Columns) {
		return nil, fmt.Errorf("got %d widths for %d columns", len(t.Widths), len(t.Columns))
	}

	orientation := "P"
	if t.Landscape {
		orientation = "L"
	}
	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, t.Title, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 6, "Generated: "+generated.Format("2006-01-02"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Scale relative widths to the printable page width.
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	printable := pageW - left - right
	var totalWeight float64
	for _, w := range t.Widths {
		totalWeight += w
	}
	widths := make([]float64, len(t.Widths))
	for i, w := range t.Widths {
		widths[i] = w / totalWeight * printable
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(230, 230, 230)
	for i, col := range t.Columns {
		pdf.CellFormat(widths[i], 8, col, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range t.Rows {
		for i := range t.Columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(t.Rows) == 0 {
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(printable, 7, "No data", "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering PDF: %w", err)
	}
	return buf.Bytes(), nil
}
