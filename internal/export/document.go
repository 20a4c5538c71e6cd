package export

import (
	"fmt"
	"io"
	"time"

	"agility-scorer/internal/domain"

	"github.com/go-pdf/fpdf"
)

var documentColumnWidths = []float64{14, 12, 12, 42, 34, 40, 20, 17, 18, 20, 18, 30}

// WriteDocument writes a landscape PDF with one page per (round, size).
func WriteDocument(w io.Writer, st domain.State, scope Scope, exportDate time.Time) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCreationDate(exportDate)
	pdf.SetModificationDate(exportDate)
	pdf.SetTitle(brand+" results", true)
	pdf.SetCreator(brand, true)
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(130, 6, tr(brand), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s   page %d", exportDate.UTC().Format("2006-01-02 15:04 MST"), pdf.PageNo())), "", 0, "R", false, 0, "")
	})

	sections := Sections(st, scope)
	if len(sections) == 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "", 14)
		pdf.CellFormat(0, 10, "No results to export", "", 1, "L", false, 0, "")
	}

	for _, s := range sections {
		pdf.AddPage()
		pdf.SetTextColor(31, 58, 95)
		pdf.SetFont("Helvetica", "B", 18)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("%s - %s", s.Round.Name, s.Size.Label())), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("SCT %s   MCT %s", SecondsText(s.CourseTime.SCT), SecondsText(s.CourseTime.MCT))), "", 1, "L", false, 0, "")
		pdf.Ln(3)

		writeTableHeader(pdf, tr)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(34, 34, 34)
		for i, rc := range s.Ranked {
			fill := i%2 == 1
			pdf.SetFillColor(242, 246, 250)
			for j, cell := range Cells(rc) {
				align := "L"
				if j != 3 && j != 4 && j != 5 && j != 11 {
					align = "C"
				}
				pdf.CellFormat(documentColumnWidths[j], 7, tr(cell), "B", 0, align, fill, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

func writeTableHeader(pdf *fpdf.Fpdf, tr func(string) string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(221, 235, 247)
	pdf.SetTextColor(34, 34, 34)
	for i, title := range Columns {
		pdf.CellFormat(documentColumnWidths[i], 8, tr(title), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}
