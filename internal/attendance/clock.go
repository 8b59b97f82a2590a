package attendance

import "time"

// Clock 抽象当前时间，引擎内部不直接调用 time.Now()
type Clock interface {
	Now() time.Time
}

// RealClock 使用系统本地时间
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// LocationClock 将系统时间转换到指定时区（ATTENDANCE_TIMEZONE）
type LocationClock struct {
	Loc *time.Location
}

func (c LocationClock) Now() time.Time {
	if c.Loc == nil {
		return time.Now()
	}
	return time.Now().In(c.Loc)
}

// IDGenerator 为新记录分配唯一 ID，生产环境为 snowflake
type IDGenerator interface {
	NextID() (int64, error)
}

// IDGeneratorFunc 允许直接使用函数作为 IDGenerator
type IDGeneratorFunc func() (int64, error)

func (f IDGeneratorFunc) NextID() (int64, error) {
	return f()
}
