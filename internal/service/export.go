package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	pkgerrors "Pointage/pkg/errors"
	"Pointage/pkg/logger"
	"Pointage/pkg/report"
)

// 导出格式
const (
	ExportXLSX = "xlsx"
	ExportICS  = "ics"
)

// ExportFile 导出结果，Data 为空表示没有记录可导出
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportHistory 导出最近 ExportMaxRecords 条记录
func (s *AttendanceService) ExportHistory(ctx context.Context, workerID int64, format string) (*ExportFile, error) {
	if format == "" {
		format = ExportXLSX
	}
	if format != ExportXLSX && format != ExportICS {
		return nil, pkgerrors.InvalidRequest
	}

	records, err := s.repo.List(ctx, workerID, 0, s.exportMax)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance history: %w", err)
	}

	now := s.clock.Now()
	base := fmt.Sprintf("attendance-%d-%s", workerID, now.Format("20060102"))

	switch format {
	case ExportICS:
		data, err := report.HistoryCalendar(records, s.location(), now)
		if errors.Is(err, report.ErrNoEvents) {
			return &ExportFile{Filename: base + ".ics", ContentType: "text/calendar"}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build calendar export: %w", err)
		}
		return &ExportFile{Filename: base + ".ics", ContentType: "text/calendar; charset=utf-8", Data: data}, nil

	default:
		buf, err := report.HistoryWorkbook(records)
		if err != nil {
			return nil, fmt.Errorf("failed to build workbook export: %w", err)
		}
		logger.Logger.Info("Exported attendance history",
			zap.Int64("worker_id", workerID),
			zap.Int("records", len(records)),
		)
		return &ExportFile{
			Filename:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        buf.Bytes(),
		}, nil
	}
}
