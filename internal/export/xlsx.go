package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetName is the only sheet of the spreadsheet export.
const SheetName = "Inspection Report"

// WriteXLSX writes the rows below a Field/Value header row.
func WriteXLSX(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#DBEAFE"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &[]any{"Field", "Value"}); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", "B1", headerStyle); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &[]any{row.Field, row.Value}); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 28); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetName, "B", "B", 80); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
