package model

// 考勤事件类型，对应 routing key attendance.<type>
const (
	EventCheckedIn    = "checked_in"
	EventPauseStarted = "pause_started"
	EventPauseEnded   = "pause_ended"
	EventCheckedOut   = "checked_out"
)

// AttendanceEventMessage 考勤状态变更事件
type AttendanceEventMessage struct {
	MessageID  string `json:"message_id"` // 消息唯一ID，用于幂等性检查
	EventType  string `json:"event_type"`
	OccurredAt string `json:"occurred_at"` // RFC3339
	RecordID   string `json:"record_id"`
	Date       string `json:"date"`
	Mode       string `json:"mode"`
	WorkerID   int64  `json:"worker_id"`

	// 仅签退事件携带
	WorkedMinutes     int  `json:"worked_minutes,omitempty"`
	ClockInconsistent bool `json:"clock_inconsistent,omitempty"`
}
