package model

import (
	"fmt"
	"strconv"

	"Pointage/internal/attendance"
)

// AttendanceRecord 考勤记录表，一条记录对应一次签到周期
type AttendanceRecord struct {
	BaseModel
	WorkerID          int64  `gorm:"not null;index:idx_attendance_worker_date,priority:1" json:"worker_id"`
	Date              string `gorm:"type:varchar(10);not null;index:idx_attendance_worker_date,priority:2" json:"date"`
	CheckInTime       string `gorm:"type:varchar(5);not null" json:"check_in_time"`
	CheckOutTime      string `gorm:"type:varchar(5);not null;default:''" json:"check_out_time"`
	PauseStartTime    string `gorm:"type:varchar(5);not null;default:''" json:"pause_start_time"`
	PauseEndTime      string `gorm:"type:varchar(5);not null;default:''" json:"pause_end_time"`
	PauseDurationText string `gorm:"type:varchar(32);not null;default:''" json:"pause_duration_text"`
	TotalDurationText string `gorm:"type:varchar(32);not null;default:''" json:"total_duration_text"`
	Status            string `gorm:"type:varchar(16);not null;default:'present'" json:"status"`

	CheckInLat      *float64 `json:"check_in_lat,omitempty"`
	CheckInLng      *float64 `json:"check_in_lng,omitempty"`
	CheckInAddress  *string  `gorm:"type:varchar(512)" json:"check_in_address,omitempty"`
	CheckOutLat     *float64 `json:"check_out_lat,omitempty"`
	CheckOutLng     *float64 `json:"check_out_lng,omitempty"`
	CheckOutAddress *string  `gorm:"type:varchar(512)" json:"check_out_address,omitempty"`

	ClockInconsistent bool `gorm:"not null;default:false" json:"clock_inconsistent"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

// NewAttendanceRecord 将引擎记录转换为数据库行
func NewAttendanceRecord(workerID int64, r attendance.Record) (*AttendanceRecord, error) {
	id, err := strconv.ParseInt(r.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid record id %q: %w", r.ID, err)
	}

	row := &AttendanceRecord{
		WorkerID:          workerID,
		Date:              r.Date,
		CheckInTime:       r.CheckInTime,
		CheckOutTime:      r.CheckOutTime,
		PauseStartTime:    r.PauseStartTime,
		PauseEndTime:      r.PauseEndTime,
		PauseDurationText: r.PauseDurationText,
		TotalDurationText: r.TotalDurationText,
		Status:            string(r.Status),
		ClockInconsistent: r.ClockInconsistent,
	}
	row.ID = id

	if loc := r.CheckInLocation; loc != nil {
		row.CheckInLat, row.CheckInLng, row.CheckInAddress = locationColumns(*loc)
	}
	if loc := r.CheckOutLocation; loc != nil {
		row.CheckOutLat, row.CheckOutLng, row.CheckOutAddress = locationColumns(*loc)
	}
	return row, nil
}

// ToDomain 数据库行转换为引擎记录
func (a *AttendanceRecord) ToDomain() attendance.Record {
	return attendance.Record{
		ID:                strconv.FormatInt(a.ID, 10),
		Date:              a.Date,
		CheckInTime:       a.CheckInTime,
		CheckOutTime:      a.CheckOutTime,
		PauseStartTime:    a.PauseStartTime,
		PauseEndTime:      a.PauseEndTime,
		PauseDurationText: a.PauseDurationText,
		TotalDurationText: a.TotalDurationText,
		Status:            attendance.Status(a.Status),
		CheckInLocation:   toLocation(a.CheckInLat, a.CheckInLng, a.CheckInAddress),
		CheckOutLocation:  toLocation(a.CheckOutLat, a.CheckOutLng, a.CheckOutAddress),
		ClockInconsistent: a.ClockInconsistent,
	}
}

func locationColumns(loc attendance.Location) (*float64, *float64, *string) {
	return &loc.Lat, &loc.Lng, &loc.Address
}

func toLocation(lat, lng *float64, address *string) *attendance.Location {
	if lat == nil || lng == nil {
		return nil
	}
	loc := &attendance.Location{Lat: *lat, Lng: *lng}
	if address != nil {
		loc.Address = *address
	}
	return loc
}
