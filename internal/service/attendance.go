package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"Pointage/internal/attendance"
	"Pointage/internal/model"
	"Pointage/internal/model/dto"
	"Pointage/internal/repository"
	pkgerrors "Pointage/pkg/errors"
	"Pointage/pkg/logger"
	"Pointage/pkg/metrics"
	"Pointage/utils"
)

// 操作名，用于日志和指标
const (
	OpCheckIn     = "check_in"
	OpTogglePause = "toggle_pause"
	OpCheckOut    = "check_out"
)

const maxHistoryLimit = 200

// Locker 员工级别的互斥，acquired 为 false 表示已有请求在处理
type Locker interface {
	TryLock(ctx context.Context, workerID int64) (release func(), acquired bool, err error)
}

// EventPublisher 发布考勤事件
type EventPublisher interface {
	Publish(ctx context.Context, msg model.AttendanceEventMessage) error
}

// WeeklySummaryReader 读取 worker 聚合的周工时
type WeeklySummaryReader interface {
	WeekMinutes(ctx context.Context, workerID int64, week string) (map[string]int, error)
}

// AttendanceDeps 服务依赖，Summary 仅在记录读取失败时作为周汇总的降级来源
type AttendanceDeps struct {
	Repo      repository.AttendanceRepository
	Locker    Locker
	Publisher EventPublisher
	Summary   WeeklySummaryReader
	Clock     attendance.Clock
	IDs       attendance.IDGenerator
	Metrics   *metrics.AttendanceMetrics

	DailyCap         int
	HistoryPageSize  int
	ExportMaxRecords int
}

// AttendanceService 每个员工的唯一写入方：加锁、从持久化记录重建状态机、执行一次操作、落库
type AttendanceService struct {
	repo      repository.AttendanceRepository
	locker    Locker
	publisher EventPublisher
	summary   WeeklySummaryReader
	clock     attendance.Clock
	ids       attendance.IDGenerator
	metrics   *metrics.AttendanceMetrics

	dailyCap  int
	pageSize  int
	exportMax int
}

var (
	attendanceService *AttendanceService
	attendanceMu      sync.RWMutex
)

func NewAttendanceService(d AttendanceDeps) *AttendanceService {
	s := &AttendanceService{
		repo:      d.Repo,
		locker:    d.Locker,
		publisher: d.Publisher,
		summary:   d.Summary,
		clock:     d.Clock,
		ids:       d.IDs,
		metrics:   d.Metrics,
		dailyCap:  d.DailyCap,
		pageSize:  d.HistoryPageSize,
		exportMax: d.ExportMaxRecords,
	}
	if s.clock == nil {
		s.clock = attendance.RealClock{}
	}
	if s.dailyCap <= 0 {
		s.dailyCap = attendance.DefaultDailyCap
	}
	if s.pageSize <= 0 {
		s.pageSize = 20
	}
	if s.exportMax <= 0 {
		s.exportMax = 1000
	}
	return s
}

// SetAttendance 注册全局服务实例，启动时调用
func SetAttendance(s *AttendanceService) {
	attendanceMu.Lock()
	defer attendanceMu.Unlock()
	attendanceService = s
}

func Attendance() *AttendanceService {
	attendanceMu.RLock()
	defer attendanceMu.RUnlock()
	if attendanceService == nil {
		panic("attendance service not init")
	}
	return attendanceService
}

// CheckIn 签到
func (s *AttendanceService) CheckIn(ctx context.Context, workerID int64, req dto.CheckInRequest) (*dto.TransitionResponse, error) {
	loc := req.Location.ToDomain()
	return s.transition(ctx, workerID, OpCheckIn, func(e *attendance.Engine) (attendance.Record, error) {
		return e.CheckIn(loc)
	})
}

// TogglePause 开始或结束暂停
func (s *AttendanceService) TogglePause(ctx context.Context, workerID int64) (*dto.TransitionResponse, error) {
	return s.transition(ctx, workerID, OpTogglePause, func(e *attendance.Engine) (attendance.Record, error) {
		return e.TogglePause()
	})
}

// CheckOut 签退
func (s *AttendanceService) CheckOut(ctx context.Context, workerID int64, req dto.CheckOutRequest) (*dto.TransitionResponse, error) {
	loc := req.Location.ToDomain()
	return s.transition(ctx, workerID, OpCheckOut, func(e *attendance.Engine) (attendance.Record, error) {
		return e.CheckOut(loc)
	})
}

func (s *AttendanceService) transition(
	ctx context.Context,
	workerID int64,
	op string,
	apply func(*attendance.Engine) (attendance.Record, error),
) (*dto.TransitionResponse, error) {
	log := logger.Logger.With(zap.Int64("worker_id", workerID), zap.String("operation", op))

	release, acquired, err := s.locker.TryLock(ctx, workerID)
	if err != nil {
		s.metrics.RecordTransition(ctx, op, metrics.ResultError)
		log.Error("Failed to acquire attendance lock", zap.Error(err))
		return nil, fmt.Errorf("failed to acquire attendance lock: %w", err)
	}
	if !acquired {
		s.metrics.RecordTransition(ctx, op, metrics.ResultBusy)
		return nil, pkgerrors.AttendanceBusy
	}
	defer release()

	engine, persisted, err := s.restore(ctx, workerID, log)
	if err != nil {
		s.metrics.RecordTransition(ctx, op, metrics.ResultError)
		return nil, err
	}

	rec, err := apply(engine)
	if err != nil {
		if _, ok := pkgerrors.AsDefinition(err); ok {
			s.metrics.RecordTransition(ctx, op, metrics.ResultRejected)
			log.Info("Attendance transition rejected", zap.Error(err))
			return nil, err
		}
		s.metrics.RecordTransition(ctx, op, metrics.ResultError)
		log.Error("Attendance transition failed", zap.Error(err))
		return nil, err
	}

	if engine.History()[0].ID != headID(persisted) {
		err = s.repo.Create(ctx, workerID, rec)
	} else {
		err = s.repo.Update(ctx, workerID, rec)
	}
	if err != nil {
		s.metrics.RecordTransition(ctx, op, metrics.ResultError)
		log.Error("Failed to persist attendance record", zap.String("record_id", rec.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to persist attendance record: %w", err)
	}

	mode := engine.CurrentMode()
	s.metrics.RecordTransition(ctx, op, metrics.ResultAccepted)
	s.publish(ctx, log, workerID, op, rec, mode)

	log.Info("Attendance transition accepted",
		zap.String("record_id", rec.ID),
		zap.String("mode", string(mode)),
	)

	return &dto.TransitionResponse{
		Record: dto.NewRecordData(rec),
		Mode:   string(mode),
	}, nil
}

// restore 加载最新 dailyCap+1 条记录重建状态机，足以推导状态和判断当日上限
func (s *AttendanceService) restore(ctx context.Context, workerID int64, log *zap.Logger) (*attendance.Engine, []attendance.Record, error) {
	history, err := s.repo.Recent(ctx, workerID, s.dailyCap+1)
	if err != nil {
		log.Error("Failed to load attendance history", zap.Error(err))
		return nil, nil, fmt.Errorf("failed to load attendance history: %w", err)
	}

	engine := attendance.Restore(s.clock, s.ids, history,
		attendance.WithDailyCap(s.dailyCap),
		attendance.WithLogger(log),
		attendance.WithObserver(metricsObserver{ctx: ctx, metrics: s.metrics}),
	)
	return engine, history, nil
}

func (s *AttendanceService) publish(ctx context.Context, log *zap.Logger, workerID int64, op string, rec attendance.Record, mode attendance.Mode) {
	if s.publisher == nil {
		return
	}

	msg := model.AttendanceEventMessage{
		OccurredAt: s.clock.Now().Format(time.RFC3339),
		RecordID:   rec.ID,
		Date:       rec.Date,
		Mode:       string(mode),
		WorkerID:   workerID,
	}

	switch op {
	case OpCheckIn:
		msg.EventType = model.EventCheckedIn
	case OpTogglePause:
		msg.EventType = model.EventPauseEnded
		if rec.IsPaused() {
			msg.EventType = model.EventPauseStarted
		}
	case OpCheckOut:
		msg.EventType = model.EventCheckedOut
		minutes, err := attendance.WorkedMinutes(rec, rec.CheckOutTime, s.location())
		if err != nil {
			log.Warn("Failed to compute worked minutes", zap.String("record_id", rec.ID), zap.Error(err))
		}
		msg.WorkedMinutes = minutes
		msg.ClockInconsistent = rec.ClockInconsistent
		s.metrics.RecordWorkedMinutes(ctx, minutes)
	}

	// 事件发布失败不影响已落库的状态变更
	if err := s.publisher.Publish(ctx, msg); err != nil {
		log.Warn("Failed to publish attendance event",
			zap.String("event_type", msg.EventType),
			zap.String("record_id", rec.ID),
			zap.Error(err),
		)
	}
}

// Mode 当前在岗状态，由最新记录推导
func (s *AttendanceService) Mode(ctx context.Context, workerID int64) (*dto.ModeResponse, error) {
	head, err := s.repo.Recent(ctx, workerID, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance history: %w", err)
	}

	var mode attendance.Mode
	if len(head) == 0 {
		mode = attendance.DeriveMode(attendance.Record{}, false)
	} else {
		mode = attendance.DeriveMode(head[0], true)
	}
	return &dto.ModeResponse{Mode: string(mode)}, nil
}

// Today 今日记录、当前状态和剩余签到次数
func (s *AttendanceService) Today(ctx context.Context, workerID int64) (*dto.TodayResponse, error) {
	log := logger.Logger.With(zap.Int64("worker_id", workerID))
	engine, _, err := s.restore(ctx, workerID, log)
	if err != nil {
		return nil, err
	}

	today := s.clock.Now().Format(attendance.DateLayout)
	var records []attendance.Record
	for _, r := range engine.History() {
		if r.Date == today {
			records = append(records, r)
		}
	}

	remaining := engine.DailyCap() - engine.TodayCount()
	if remaining < 0 {
		remaining = 0
	}

	return &dto.TodayResponse{
		Date:      today,
		Mode:      string(engine.CurrentMode()),
		Records:   dto.NewRecordList(records),
		DailyCap:  engine.DailyCap(),
		Remaining: remaining,
	}, nil
}

// History 游标分页，最新在前
func (s *AttendanceService) History(ctx context.Context, workerID int64, q dto.HistoryQuery) (*dto.HistoryResponse, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = s.pageSize
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var cursorID int64
	if q.Cursor != "" {
		id, err := strconv.ParseInt(q.Cursor, 10, 64)
		if err != nil || id <= 0 {
			return nil, pkgerrors.InvalidRequest
		}
		cursorID = id
	}

	records, err := s.repo.List(ctx, workerID, cursorID, limit+1)
	if err != nil {
		logger.Logger.Error("Failed to list attendance history",
			zap.Int64("worker_id", workerID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to list attendance history: %w", err)
	}

	resp := &dto.HistoryResponse{}
	if len(records) > limit {
		resp.NextCursor = records[limit].ID
		records = records[:limit]
	}
	resp.Records = dto.NewRecordList(records)
	return resp, nil
}

// WeekSummary date 所在 ISO 周每日工作时长，date 为空时取今天
func (s *AttendanceService) WeekSummary(ctx context.Context, workerID int64, date string) (*dto.WeekSummaryResponse, error) {
	loc := s.location()
	day := s.clock.Now()
	if date != "" {
		parsed, err := utils.ParseDate(date, loc)
		if err != nil {
			return nil, pkgerrors.InvalidRequest
		}
		day = parsed
	}

	week := utils.ISOWeekKey(day)
	dates := utils.WeekDates(day)

	minutes, err := s.weekMinutes(ctx, workerID, week, dates)
	if err != nil {
		return nil, err
	}

	resp := &dto.WeekSummaryResponse{Week: week, Days: make([]dto.DayMinutes, 0, len(dates))}
	for _, d := range dates {
		m := minutes[d]
		resp.Days = append(resp.Days, dto.DayMinutes{Date: d, Minutes: m, Text: attendance.FormatDuration(m)})
		resp.TotalMinutes += m
	}
	resp.TotalText = attendance.FormatDuration(resp.TotalMinutes)
	return resp, nil
}

// weekMinutes 以已完成记录为准计算；记录读取失败时才退回 worker 聚合的周汇总。
// 聚合依赖尽力投递的事件，可能缺失或滞后，不能作为主数据源。
func (s *AttendanceService) weekMinutes(ctx context.Context, workerID int64, week string, dates []string) (map[string]int, error) {
	records, err := s.repo.Between(ctx, workerID, dates[0], dates[len(dates)-1])
	if err != nil {
		if s.summary == nil {
			return nil, fmt.Errorf("failed to load week records: %w", err)
		}
		minutes, sumErr := s.summary.WeekMinutes(ctx, workerID, week)
		if sumErr != nil {
			return nil, fmt.Errorf("failed to load week records: %w", errors.Join(err, sumErr))
		}
		logger.Logger.Warn("Failed to load week records, serving aggregated week minutes",
			zap.Int64("worker_id", workerID),
			zap.String("week", week),
			zap.Error(err),
		)
		return minutes, nil
	}

	loc := s.location()
	minutes := make(map[string]int, len(dates))
	for _, r := range records {
		if r.Status != attendance.StatusCompleted {
			continue
		}
		m, err := attendance.WorkedMinutes(r, r.CheckOutTime, loc)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		minutes[r.Date] += m
	}
	return minutes, nil
}

func (s *AttendanceService) location() *time.Location {
	return s.clock.Now().Location()
}

func headID(records []attendance.Record) string {
	if len(records) == 0 {
		return ""
	}
	return records[0].ID
}

// metricsObserver 把引擎发现的时钟异常计入指标
type metricsObserver struct {
	ctx     context.Context
	metrics *metrics.AttendanceMetrics
}

func (o metricsObserver) ClockInconsistency(r attendance.Record, field string, minutes int) {
	o.metrics.RecordClockInconsistency(o.ctx, field)
}
