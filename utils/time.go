package utils

import (
	"fmt"
	"time"
)

// ISOWeekKey 返回 ISO 周标识，例如 "2025-W11"
func ISOWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// WeekDates 返回 t 所在 ISO 周从周一到周日的日期（2006-01-02）
func WeekDates(t time.Time) []string {
	offset := (int(t.Weekday()) + 6) % 7 // 周一为 0
	monday := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())

	dates := make([]string, 7)
	for i := range dates {
		dates[i] = monday.AddDate(0, 0, i).Format("2006-01-02")
	}
	return dates
}

// ParseDate 解析本地日历日期
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation("2006-01-02", date, loc)
}
