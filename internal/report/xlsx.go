package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"invoicer/pkg/services"
)

const hoursFormat = "#,##0.00"

// WriteEntriesXLSX writes the service report as a single-sheet workbook.
// Row 1 holds the subtitle, row 2 the period, the table starts in row 4.
func WriteEntriesXLSX(w io.Writer, input services.ReportInput) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", Title); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("report: create style: %w", err)
	}
	hours, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(hoursFormat)})
	if err != nil {
		return fmt.Errorf("report: create style: %w", err)
	}

	set := func(cell string, value any) {
		if err == nil {
			err = f.SetCellValue(Title, cell, value)
		}
	}

	set("A1", Subtitle(input))
	set("A2", Period(input))

	const headerRow = 4
	for i, heading := range Columns {
		set(cellName(i, headerRow), heading)
	}

	rowNum := headerRow
	for _, l := range lines(input.Entries) {
		rowNum++
		set(cellName(0, rowNum), l.date)
		set(cellName(1, rowNum), l.user)
		set(cellName(2, rowNum), l.service)
		set(cellName(3, rowNum), l.note)
		set(cellName(4, rowNum), l.hours)
	}

	totalRow := rowNum + 1
	set(cellName(0, totalRow), totalLabel)
	set(cellName(4, totalRow), TotalHours(input.Entries))
	if err != nil {
		return fmt.Errorf("report: write cells: %w", err)
	}

	if err := f.SetCellStyle(Title, "A1", "A1", bold); err != nil {
		return fmt.Errorf("report: style: %w", err)
	}
	if err := f.SetCellStyle(Title, cellName(0, headerRow), cellName(len(Columns)-1, headerRow), bold); err != nil {
		return fmt.Errorf("report: style: %w", err)
	}
	if err := f.SetCellStyle(Title, cellName(4, headerRow+1), cellName(4, totalRow), hours); err != nil {
		return fmt.Errorf("report: style: %w", err)
	}

	for col, width := range map[string]float64{"A": 12, "B": 20, "C": 20, "D": 50, "E": 10} {
		if err := f.SetColWidth(Title, col, col, width); err != nil {
			return fmt.Errorf("report: column width: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: write workbook: %w", err)
	}
	return nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}

func strPtr(s string) *string { return &s }
