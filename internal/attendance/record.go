package attendance

// Mode 员工当前的在岗状态
type Mode string

const (
	ModeAbsent  Mode = "absent"
	ModePresent Mode = "present"
	ModePaused  Mode = "paused"
)

// Status 单条考勤记录的生命周期状态
type Status string

const (
	StatusPresent   Status = "present"
	StatusPause     Status = "pause"
	StatusCompleted Status = "completed"
)

// Location 调用方已解析好的定位快照
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// Record 一次到岗周期（签到、可选暂停、签退）。
// 时间字段为本地 "15:04"，空字符串表示未设置。
type Record struct {
	ID                string
	Date              string
	CheckInTime       string
	CheckOutTime      string
	PauseStartTime    string
	PauseEndTime      string
	PauseDurationText string
	TotalDurationText string
	Status            Status
	CheckInLocation   *Location
	CheckOutLocation  *Location

	// ClockInconsistent 表示计算出的时长为负数（时钟回拨或跨日）
	ClockInconsistent bool
}

// IsOpen 记录尚未签退
func (r Record) IsOpen() bool {
	return r.CheckOutTime == ""
}

// IsPaused 暂停已开始且未结束
func (r Record) IsPaused() bool {
	return r.PauseStartTime != "" && r.PauseEndTime == ""
}

// DeriveMode 根据最新一条记录推导在岗状态
func DeriveMode(head Record, ok bool) Mode {
	if !ok || !head.IsOpen() {
		return ModeAbsent
	}
	if head.IsPaused() {
		return ModePaused
	}
	return ModePresent
}
