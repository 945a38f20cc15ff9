package formatter

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/yildizm/ContractSum/internal/api"
)

const (
	analysesSheet = "Analyses"
	clausesSheet  = "Clauses"
)

// xlsxFormatter writes an Excel workbook with one sheet of analyses and one
// sheet listing every key clause
type xlsxFormatter struct{}

// NewXLSX creates a new Excel formatter
func NewXLSX() Formatter {
	return &xlsxFormatter{}
}

var clauseHeaders = []string{"Analysis ID", "File Name", "#", "Clause"}

func (f *xlsxFormatter) Format(analyses []*api.Analysis) ([]byte, error) {
	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	if err := wb.SetSheetName(wb.GetSheetName(0), analysesSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := wb.NewSheet(clausesSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := wb.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: cellBorders("000000"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	rowStyle, err := wb.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Border:    cellBorders("D9D9D9"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create row style: %w", err)
	}

	if err := writeRow(wb, analysesSheet, 1, toCells(csvHeaders), headerStyle); err != nil {
		return nil, err
	}
	if err := writeRow(wb, clausesSheet, 1, toCells(clauseHeaders), headerStyle); err != nil {
		return nil, err
	}

	analysisRow, clauseRow := 2, 2
	for _, a := range analyses {
		if a == nil {
			continue
		}
		if err := writeRow(wb, analysesSheet, analysisRow, toCells(analysisRecord(a)), rowStyle); err != nil {
			return nil, err
		}
		analysisRow++

		for i, clause := range clausesOf(a) {
			cells := []any{a.ID, a.FileName, i + 1, clause}
			if err := writeRow(wb, clausesSheet, clauseRow, cells, rowStyle); err != nil {
				return nil, err
			}
			clauseRow++
		}
	}

	if err := setWidths(wb, analysesSheet, []float64{28, 30, 14, 20, 20, 80, 12, 80}); err != nil {
		return nil, err
	}
	if err := setWidths(wb, clausesSheet, []float64{28, 30, 6, 100}); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := wb.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(wb *excelize.File, sheet string, row int, cells []any, style int) error {
	for col, value := range cells {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := wb.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
		}
		if err := wb.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to style %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func setWidths(wb *excelize.File, sheet string, widths []float64) error {
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := wb.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}
	return nil
}

func cellBorders(color string) []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: color, Style: 1},
		{Type: "top", Color: color, Style: 1},
		{Type: "bottom", Color: color, Style: 1},
		{Type: "right", Color: color, Style: 1},
	}
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
