package matchservice

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExportSheet is the worksheet name of match exports.
const ExportSheet = "Match"

var exportHeader = []any{
	"Round", "Beatmap", "Started", "Player", "Country", "Score", "Accuracy",
	"Max Combo", "Mods", "300", "100", "50", "Miss", "Grade", "PP", "Played At",
}

// GenerateMatchWorkbook writes one row per score, grouped by round in display
// order, to an XLSX workbook.
func GenerateMatchWorkbook(view *MatchView) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(ExportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(exportHeader))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(ExportSheet, "A1", lastCol+"1", bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	row := 2
	for _, round := range view.Rounds {
		for _, s := range round.Scores {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return nil, err
			}
			values := []any{
				round.Index,
				round.Title,
				round.StartedAt.Format("2006-01-02 15:04:05"),
				s.PlayerName,
				s.Country,
				s.Score,
				s.Accuracy,
				s.MaxCombo,
				strings.Join(s.Mods, " "),
				s.N300,
				s.N100,
				s.N50,
				s.NMiss,
				s.Grade,
				s.PP,
				s.PlayedAt.Format("2006-01-02 15:04:05.000"),
			}
			if err := f.SetSheetRow(ExportSheet, cell, &values); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
			row++
		}
	}

	if err := f.SetColWidth(ExportSheet, "B", "B", 48); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
