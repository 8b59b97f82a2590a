package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"Pointage/internal/attendance"
)

const historySheet = "Attendance"

var historyHeader = []string{
	"Date", "Check-in", "Check-out", "Pause start", "Pause end",
	"Pause", "Total", "Status", "Check-in address", "Check-out address", "Clock inconsistent",
}

// HistoryWorkbook 生成考勤历史工作簿，一行一条记录，顺序与入参一致
func HistoryWorkbook(records []attendance.Record) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), historySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(historySheet, "A1", &historyHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(historyHeader))
	if err := f.SetCellStyle(historySheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			r.Date,
			r.CheckInTime,
			r.CheckOutTime,
			r.PauseStartTime,
			r.PauseEndTime,
			r.PauseDurationText,
			r.TotalDurationText,
			string(r.Status),
			address(r.CheckInLocation),
			address(r.CheckOutLocation),
			r.ClockInconsistent,
		}
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(historySheet, "A", "H", 13); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(historySheet, "I", "J", 36); err != nil {
		return nil, err
	}
	if err := f.SetPanes(historySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

func address(loc *attendance.Location) string {
	if loc == nil {
		return ""
	}
	if loc.Address != "" {
		return loc.Address
	}
	return fmt.Sprintf("%.6f, %.6f", loc.Lat, loc.Lng)
}
