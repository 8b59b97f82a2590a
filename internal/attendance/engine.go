package attendance

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"Pointage/pkg/errors"
)

// DefaultDailyCap 每个日历日最多两条考勤记录
const DefaultDailyCap = 2

// Observer 接收时长为负数的异常信号，用于日志之外的遥测上报
type Observer interface {
	ClockInconsistency(r Record, field string, minutes int)
}

type Option func(*Engine)

// WithDailyCap 覆盖每日签到上限，n <= 0 时忽略
func WithDailyCap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.dailyCap = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// Engine 在岗状态机，独占 Store 的写入
type Engine struct {
	clock    Clock
	ids      IDGenerator
	store    *Store
	mode     Mode
	dailyCap int
	log      *zap.Logger
	observer Observer
}

// New 创建一个没有历史记录的引擎，初始状态为 absent
func New(clock Clock, ids IDGenerator, opts ...Option) *Engine {
	return Restore(clock, ids, nil, opts...)
}

// Restore 用已持久化的历史（最新在前）重建引擎，状态由最新记录推导
func Restore(clock Clock, ids IDGenerator, history []Record, opts ...Option) *Engine {
	e := &Engine{
		clock:    clock,
		ids:      ids,
		store:    NewStore(history),
		dailyCap: DefaultDailyCap,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	head, ok := e.store.Head()
	e.mode = DeriveMode(head, ok)
	return e
}

func (e *Engine) CurrentMode() Mode {
	return e.mode
}

// History 只读快照，最新在前
func (e *Engine) History() []Record {
	return e.store.All()
}

// TodayCount 当前日历日已有的记录数
func (e *Engine) TodayCount() int {
	return e.store.CountOn(e.clock.Now().Format(DateLayout))
}

// DailyCap 当前生效的每日上限
func (e *Engine) DailyCap() int {
	return e.dailyCap
}

// CheckIn 签到：absent 且今日记录数未达上限时创建新记录
func (e *Engine) CheckIn(loc *Location) (Record, error) {
	if e.mode != ModeAbsent {
		return Record{}, errors.AlreadyPresent
	}

	now := e.clock.Now()
	today := now.Format(DateLayout)
	if e.store.CountOn(today) >= e.dailyCap {
		e.log.Info("Check-in rejected, daily cap reached",
			zap.String("date", today),
			zap.Int("daily_cap", e.dailyCap),
		)
		return Record{}, errors.CheckInLimitReached
	}

	id, err := e.ids.NextID()
	if err != nil {
		return Record{}, fmt.Errorf("failed to generate record id: %w", err)
	}

	r := Record{
		ID:              strconv.FormatInt(id, 10),
		Date:            today,
		CheckInTime:     now.Format(TimeOfDayLayout),
		Status:          StatusPresent,
		CheckInLocation: cloneLocation(loc),
	}

	e.store.Prepend(r)
	e.mode = ModePresent

	e.log.Debug("Checked in",
		zap.String("record_id", r.ID),
		zap.String("date", r.Date),
		zap.String("check_in", r.CheckInTime),
	)
	return r, nil
}

// TogglePause 根据当前状态开始或结束暂停
func (e *Engine) TogglePause() (Record, error) {
	switch e.mode {
	case ModePresent:
		return e.startPause()
	case ModePaused:
		return e.endPause()
	default:
		return Record{}, errors.NotPresent
	}
}

func (e *Engine) startPause() (Record, error) {
	head, ok := e.store.Head()
	if !ok || !head.IsOpen() {
		return Record{}, errors.NoOpenRecord
	}
	// 每条记录只允许一次暂停
	if head.PauseStartTime != "" {
		return Record{}, errors.PauseAlreadyTaken
	}

	head.PauseStartTime = e.clock.Now().Format(TimeOfDayLayout)
	head.Status = StatusPause

	e.store.ReplaceHead(head)
	e.mode = ModePaused

	e.log.Debug("Pause started",
		zap.String("record_id", head.ID),
		zap.String("pause_start", head.PauseStartTime),
	)
	return head, nil
}

func (e *Engine) endPause() (Record, error) {
	head, ok := e.store.Head()
	if !ok || !head.IsOpen() || !head.IsPaused() {
		return Record{}, errors.NoOpenRecord
	}

	now := e.clock.Now()
	head = e.closePause(head, now)
	head.Status = StatusPresent

	e.store.ReplaceHead(head)
	e.mode = ModePresent

	e.log.Debug("Pause ended",
		zap.String("record_id", head.ID),
		zap.String("pause_end", head.PauseEndTime),
		zap.String("pause_duration", head.PauseDurationText),
	)
	return head, nil
}

// CheckOut 签退。暂停中签退时先在签退时刻结束暂停，再扣除暂停时长
func (e *Engine) CheckOut(loc *Location) (Record, error) {
	if e.mode == ModeAbsent {
		return Record{}, errors.NoOpenRecord
	}

	head, ok := e.store.Head()
	if !ok || !head.IsOpen() {
		return Record{}, errors.NoOpenRecord
	}

	now := e.clock.Now()
	if head.IsPaused() {
		head = e.closePause(head, now)
	}

	checkOut := now.Format(TimeOfDayLayout)
	worked, err := WorkedMinutes(head, checkOut, now.Location())
	if err != nil {
		return Record{}, fmt.Errorf("failed to compute worked duration: %w", err)
	}
	if worked < 0 {
		head.ClockInconsistent = true
		e.reportInconsistency(head, "total", worked)
	}

	head.CheckOutTime = checkOut
	head.Status = StatusCompleted
	head.TotalDurationText = FormatDuration(worked)
	head.CheckOutLocation = cloneLocation(loc)

	e.store.ReplaceHead(head)
	e.mode = ModeAbsent

	e.log.Debug("Checked out",
		zap.String("record_id", head.ID),
		zap.String("check_out", head.CheckOutTime),
		zap.String("total_duration", head.TotalDurationText),
	)
	return head, nil
}

// closePause 设置暂停结束时间并计算暂停时长，不修改 Status
func (e *Engine) closePause(r Record, now time.Time) Record {
	r.PauseEndTime = now.Format(TimeOfDayLayout)

	paused, err := ElapsedMinutes(r.Date, r.PauseStartTime, r.PauseEndTime, now.Location())
	if err != nil {
		// 时间字符串由引擎自己生成，解析失败说明记录已损坏
		e.log.Error("Failed to compute pause duration",
			zap.String("record_id", r.ID),
			zap.Error(err),
		)
		r.ClockInconsistent = true
		return r
	}
	if paused < 0 {
		r.ClockInconsistent = true
		e.reportInconsistency(r, "pause", paused)
	}

	r.PauseDurationText = FormatDuration(paused)
	return r
}

func (e *Engine) reportInconsistency(r Record, field string, minutes int) {
	e.log.Warn("Negative attendance duration, clock inconsistency",
		zap.String("record_id", r.ID),
		zap.String("date", r.Date),
		zap.String("field", field),
		zap.Int("minutes", minutes),
	)
	if e.observer != nil {
		e.observer.ClockInconsistency(r, field, minutes)
	}
}

func cloneLocation(loc *Location) *Location {
	if loc == nil {
		return nil
	}
	c := *loc
	return &c
}
