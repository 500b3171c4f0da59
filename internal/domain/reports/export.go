package reports

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{"Employee", "Report Date", "Submitted At", "Status", "Report"}

func exportRow(r Report) []string {
	name := r.EmployeeName
	if name == "" {
		name = r.EmployeeID
	}
	return []string{name, r.ReportDate, r.SubmissionTime.Format("15:04:05"), string(r.ComplianceStatus), r.ReportText}
}

func WriteXLSX(w io.Writer, reports []Report) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range reports {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := exportRow(r)
		row := make([]any, len(values))
		for j, v := range values {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "D", 18); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "E", "E", 60); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}

func WritePDF(w io.Writer, reports []Report) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Daily Compliance Reports")
	pdf.Ln(12)

	widths := []float64{45, 28, 28, 36, 140}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range exportHeader {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, r := range reports {
		for i, v := range exportRow(r) {
			pdf.CellFormat(widths[i], 7, truncate(tr(v), 95), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
	pdf.Cell(0, 8, fmt.Sprintf("Total reports: %d", len(reports)))

	return pdf.Output(w)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
