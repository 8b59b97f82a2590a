package dto

import "Pointage/internal/attendance"

// ========== Attendance 相关 DTO ==========

// LocationRequest 客户端已解析好的定位
type LocationRequest struct {
	Lat     *float64 `json:"lat" validate:"required,latitude"`
	Lng     *float64 `json:"lng" validate:"required,longitude"`
	Address string   `json:"address" validate:"max=512"`
}

// ToDomain 转换为引擎使用的定位快照，nil 表示无定位
func (l *LocationRequest) ToDomain() *attendance.Location {
	if l == nil || l.Lat == nil || l.Lng == nil {
		return nil
	}
	return &attendance.Location{Lat: *l.Lat, Lng: *l.Lng, Address: l.Address}
}

// CheckInRequest 签到/签退请求，定位可选
type CheckInRequest struct {
	Location *LocationRequest `json:"location,omitempty"`
}

// CheckOutRequest 与签到结构一致
type CheckOutRequest = CheckInRequest

// LocationData 定位响应
type LocationData struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// RecordData 考勤记录响应
type RecordData struct {
	ID                string        `json:"id"`
	Date              string        `json:"date"`
	CheckInTime       string        `json:"check_in_time"`
	CheckOutTime      string        `json:"check_out_time,omitempty"`
	PauseStartTime    string        `json:"pause_start_time,omitempty"`
	PauseEndTime      string        `json:"pause_end_time,omitempty"`
	PauseDurationText string        `json:"pause_duration_text,omitempty"`
	TotalDurationText string        `json:"total_duration_text,omitempty"`
	Status            string        `json:"status"`
	CheckInLocation   *LocationData `json:"check_in_location,omitempty"`
	CheckOutLocation  *LocationData `json:"check_out_location,omitempty"`
	ClockInconsistent bool          `json:"clock_inconsistent,omitempty"`
}

// TransitionResponse 状态变更响应
type TransitionResponse struct {
	Record RecordData `json:"record"`
	Mode   string     `json:"mode"`
}

// ModeResponse 当前在岗状态
type ModeResponse struct {
	Mode string `json:"mode"`
}

// TodayResponse 今日考勤
type TodayResponse struct {
	Date      string       `json:"date"`
	Mode      string       `json:"mode"`
	Records   []RecordData `json:"records"`
	DailyCap  int          `json:"daily_cap"`
	Remaining int          `json:"remaining"`
}

// HistoryQuery 历史分页查询参数
type HistoryQuery struct {
	Cursor string `query:"cursor"`
	Limit  int    `query:"limit"`
}

// HistoryResponse 历史记录，最新在前
type HistoryResponse struct {
	Records    []RecordData `json:"records"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// DayMinutes 单日工作时长
type DayMinutes struct {
	Date    string `json:"date"`
	Minutes int    `json:"minutes"`
	Text    string `json:"text"`
}

// WeekSummaryResponse 本周工作时长汇总
type WeekSummaryResponse struct {
	Week         string       `json:"week"`
	Days         []DayMinutes `json:"days"`
	TotalMinutes int          `json:"total_minutes"`
	TotalText    string       `json:"total_text"`
}

// NewRecordData 引擎记录转换为响应
func NewRecordData(r attendance.Record) RecordData {
	return RecordData{
		ID:                r.ID,
		Date:              r.Date,
		CheckInTime:       r.CheckInTime,
		CheckOutTime:      r.CheckOutTime,
		PauseStartTime:    r.PauseStartTime,
		PauseEndTime:      r.PauseEndTime,
		PauseDurationText: r.PauseDurationText,
		TotalDurationText: r.TotalDurationText,
		Status:            string(r.Status),
		CheckInLocation:   newLocationData(r.CheckInLocation),
		CheckOutLocation:  newLocationData(r.CheckOutLocation),
		ClockInconsistent: r.ClockInconsistent,
	}
}

// NewRecordList 批量转换，保证返回非 nil 切片
func NewRecordList(records []attendance.Record) []RecordData {
	out := make([]RecordData, 0, len(records))
	for _, r := range records {
		out = append(out, NewRecordData(r))
	}
	return out
}

func newLocationData(loc *attendance.Location) *LocationData {
	if loc == nil {
		return nil
	}
	return &LocationData{Lat: loc.Lat, Lng: loc.Lng, Address: loc.Address}
}
