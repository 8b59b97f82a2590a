package attendance

import (
	"fmt"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04"

	instantLayout = DateLayout + " " + TimeOfDayLayout
)

// ElapsedMinutes 计算同一天两个时刻之间的整分钟数，向下取整。
// 调用方保证 end >= start；否则返回负数，原样向上传递，不做截断。
func ElapsedMinutes(date, start, end string, loc *time.Location) (int, error) {
	if loc == nil {
		loc = time.Local
	}

	from, err := time.ParseInLocation(instantLayout, date+" "+start, loc)
	if err != nil {
		return 0, fmt.Errorf("parse start %q: %w", start, err)
	}

	to, err := time.ParseInLocation(instantLayout, date+" "+end, loc)
	if err != nil {
		return 0, fmt.Errorf("parse end %q: %w", end, err)
	}

	return floorDiv(to.Sub(from).Milliseconds(), 60000), nil
}

// FormatDuration 将分钟数渲染为展示字符串，工作时长和暂停时长使用同一格式：
// 不足一小时为 "15min"，否则为 "5h 05min"。负数加 "-" 前缀。
func FormatDuration(minutes int) string {
	if minutes < 0 {
		return "-" + FormatDuration(-minutes)
	}

	hours := minutes / 60
	remainder := minutes % 60
	if hours == 0 {
		return fmt.Sprintf("%dmin", remainder)
	}
	return fmt.Sprintf("%dh %02dmin", hours, remainder)
}

// WorkedMinutes 计算记录在 checkOut 时刻的工作分钟数（总跨度减去暂停区间）。
// 只有暂停开始和结束都存在时才扣除暂停。
func WorkedMinutes(r Record, checkOut string, loc *time.Location) (int, error) {
	total, err := ElapsedMinutes(r.Date, r.CheckInTime, checkOut, loc)
	if err != nil {
		return 0, err
	}

	if r.PauseStartTime == "" || r.PauseEndTime == "" {
		return total, nil
	}

	paused, err := ElapsedMinutes(r.Date, r.PauseStartTime, r.PauseEndTime, loc)
	if err != nil {
		return 0, err
	}

	return total - paused, nil
}

// floorDiv 整数向下取整除法，Go 的 / 向零取整
func floorDiv(a, b int64) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return int(q)
}
