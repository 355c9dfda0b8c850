package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/medscribe/internal/models"
	"github.com/hyperjump/medscribe/pkg/utils"
)

const sourcesSheet = "Sources"

var workbookHeader = []interface{}{"ID", "Type", "Filename", "Status", "Words", "Created", "Confirmed", "Text"}

// SourcesWorkbook lists every source in a single-sheet spreadsheet.
func SourcesWorkbook(sources []models.Source) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sourcesSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sourcesSheet, "A1", &workbookHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(sourcesSheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i, s := range sources {
		confirmed := ""
		if s.ConfirmedAt != nil {
			confirmed = s.ConfirmedAt.Format(time.RFC3339)
		}
		row := []interface{}{
			s.ID,
			string(s.Type),
			s.Filename,
			string(s.Status),
			s.WordCount,
			s.CreatedAt.Format(time.RFC3339),
			confirmed,
			utils.Clip(s.EditedText, excelize.TotalCellChars),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sourcesSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write source %d: %w", s.ID, err)
		}
	}
	_ = f.SetColWidth(sourcesSheet, "C", "C", 28)
	_ = f.SetColWidth(sourcesSheet, "F", "G", 22)
	_ = f.SetColWidth(sourcesSheet, "H", "H", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
