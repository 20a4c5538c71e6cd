package export

import (
	"fmt"
	"io"
	"strings"

	"agility-scorer/internal/domain"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

var columnWidths = []float64{7, 7, 6, 20, 18, 20, 13, 10, 11, 12, 9, 12}

// WriteSpreadsheet writes one sheet per round in scope, groups ordered by size.
func WriteSpreadsheet(w io.Writer, st domain.State, scope Scope) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sections := Sections(st, scope)
	byRound := make(map[string][]Section)
	var order []domain.Round
	for _, s := range sections {
		if _, ok := byRound[s.Round.ID]; !ok {
			order = append(order, s.Round)
		}
		byRound[s.Round.ID] = append(byRound[s.Round.ID], s)
	}

	used := map[string]bool{"sheet1": true}
	first := -1
	for _, r := range order {
		name := sheetName(r.Name, used)
		idx, err := f.NewSheet(name)
		if err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
		if first < 0 {
			first = idx
		}
		if err := writeRoundSheet(f, name, byRound[r.ID], headerStyle); err != nil {
			return err
		}
	}

	if first < 0 {
		// nothing in scope; keep an empty results table
		if err := f.SetSheetName("Sheet1", "Results"); err != nil {
			return fmt.Errorf("failed to rename sheet: %w", err)
		}
		if err := writeHeader(f, "Results", 1, headerStyle); err != nil {
			return err
		}
	} else {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("failed to delete default sheet: %w", err)
		}
		f.SetActiveSheet(0)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}

func writeRoundSheet(f *excelize.File, sheet string, sections []Section, headerStyle int) error {
	if err := writeHeader(f, sheet, 1, headerStyle); err != nil {
		return err
	}
	for i, w := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	row := 2
	for _, s := range sections {
		for _, rc := range s.Ranked {
			if err := setRow(f, sheet, row, rowValues(rc)); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
			row++
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeHeader(f *excelize.File, sheet string, row, style int) error {
	values := make([]any, len(Columns))
	for i, c := range Columns {
		values[i] = c
	}
	if err := setRow(f, sheet, row, values); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(Columns), row)
	if err := f.SetCellStyle(sheet, first, last, style); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// rowValues keeps numbers numeric so the sheet can be sorted and summed.
func rowValues(rc domain.RankedCompetitor) []any {
	text := Cells(rc)
	values := make([]any, len(text))
	for i, t := range text {
		values[i] = t
	}
	if rc.Rank != nil {
		values[0] = *rc.Rank
	}
	values[2] = rc.RunOrder
	for i, p := range []*int{rc.CourseFaults, rc.Refusals, rc.TimeFault, rc.TotalFault} {
		if p != nil {
			values[6+i] = *p
		}
	}
	if rc.Time != nil {
		values[10] = *rc.Time
	}
	return values
}

func sheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		clean = "Round"
	}
	clean = domain.TruncateRunes(clean, maxSheetName)
	candidate := clean
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = domain.TruncateRunes(clean, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
