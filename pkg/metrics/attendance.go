package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 状态变更结果
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultBusy     = "busy"
	ResultError    = "error"
)

// AttendanceMetrics 考勤相关指标
type AttendanceMetrics struct {
	TransitionsTotal          metric.Int64Counter
	ClockInconsistenciesTotal metric.Int64Counter
	WorkedMinutes             metric.Int64Histogram
}

var (
	attendanceMetrics *AttendanceMetrics
	attendanceOnce    sync.Once
)

// NewAttendanceMetrics 在指定 meter 上创建指标
func NewAttendanceMetrics(meter metric.Meter) (*AttendanceMetrics, error) {
	m := &AttendanceMetrics{}
	var err error

	m.TransitionsTotal, err = meter.Int64Counter(
		"attendance.transitions.total",
		metric.WithDescription("Attendance state transitions by operation and result"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	m.ClockInconsistenciesTotal, err = meter.Int64Counter(
		"attendance.clock_inconsistencies.total",
		metric.WithDescription("Negative durations detected on attendance records"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	m.WorkedMinutes, err = meter.Int64Histogram(
		"attendance.worked.minutes",
		metric.WithDescription("Worked minutes per completed attendance record"),
		metric.WithUnit("min"),
		metric.WithExplicitBucketBoundaries(0, 30, 60, 120, 240, 360, 480, 600, 720),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Attendance 返回基于全局 MeterProvider 的实例
// 未初始化 OpenTelemetry 时全局 provider 为 noop
func Attendance() *AttendanceMetrics {
	attendanceOnce.Do(func() {
		m, err := NewAttendanceMetrics(otel.Meter("pointage"))
		if err != nil {
			otel.Handle(err)
			m = nil
		}
		attendanceMetrics = m
	})
	return attendanceMetrics
}

// RecordTransition 记录一次签到 / 暂停 / 签退请求的结果
func (m *AttendanceMetrics) RecordTransition(ctx context.Context, operation, result string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("result", result),
	))
}

// RecordClockInconsistency field 为出现负值的时长字段
func (m *AttendanceMetrics) RecordClockInconsistency(ctx context.Context, field string) {
	if m == nil {
		return
	}
	m.ClockInconsistenciesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("field", field),
	))
}

func (m *AttendanceMetrics) RecordWorkedMinutes(ctx context.Context, minutes int) {
	if m == nil {
		return
	}
	m.WorkedMinutes.Record(ctx, int64(minutes))
}
