package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"Pointage/internal/attendance"
	"Pointage/internal/model"
)

// ErrRecordNotFound 更新的记录不存在或不属于该员工
var ErrRecordNotFound = errors.New("attendance record not found")

// AttendanceRepository 考勤记录持久化，所有列表按 ID 倒序（最新在前）
type AttendanceRepository interface {
	// Recent 最新的 limit 条记录，用于重建状态机
	Recent(ctx context.Context, workerID int64, limit int) ([]attendance.Record, error)
	// List 游标分页，cursorID > 0 时只返回 ID <= cursorID 的记录
	List(ctx context.Context, workerID int64, cursorID int64, limit int) ([]attendance.Record, error)
	// Between 日期闭区间内的全部记录
	Between(ctx context.Context, workerID int64, from, to string) ([]attendance.Record, error)
	Create(ctx context.Context, workerID int64, r attendance.Record) error
	Update(ctx context.Context, workerID int64, r attendance.Record) error
}

// GormAttendance 基于 gorm 的实现
type GormAttendance struct {
	db *gorm.DB
}

func NewGormAttendance(db *gorm.DB) *GormAttendance {
	return &GormAttendance{db: db}
}

func (r *GormAttendance) Recent(ctx context.Context, workerID int64, limit int) ([]attendance.Record, error) {
	var rows []model.AttendanceRecord
	if err := listQuery(r.db.WithContext(ctx), workerID, 0, limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent attendance records: %w", err)
	}
	return toDomain(rows), nil
}

func (r *GormAttendance) List(ctx context.Context, workerID int64, cursorID int64, limit int) ([]attendance.Record, error) {
	var rows []model.AttendanceRecord
	if err := listQuery(r.db.WithContext(ctx), workerID, cursorID, limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	return toDomain(rows), nil
}

func (r *GormAttendance) Between(ctx context.Context, workerID int64, from, to string) ([]attendance.Record, error) {
	var rows []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("worker_id = ? AND date >= ? AND date <= ?", workerID, from, to).
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance records between %s and %s: %w", from, to, err)
	}
	return toDomain(rows), nil
}

func (r *GormAttendance) Create(ctx context.Context, workerID int64, rec attendance.Record) error {
	row, err := model.NewAttendanceRecord(workerID, rec)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to create attendance record: %w", err)
	}
	return nil
}

// Update 覆盖整行（包括零值字段），记录必须属于该员工
func (r *GormAttendance) Update(ctx context.Context, workerID int64, rec attendance.Record) error {
	row, err := model.NewAttendanceRecord(workerID, rec)
	if err != nil {
		return err
	}

	res := updateQuery(r.db.WithContext(ctx), workerID, row.ID).Updates(row)
	if res.Error != nil {
		return fmt.Errorf("failed to update attendance record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// updateQuery 覆盖全部可变列，零值（清空暂停、取消时钟异常标记）同样写入
func updateQuery(db *gorm.DB, workerID, id int64) *gorm.DB {
	return db.Model(&model.AttendanceRecord{}).
		Where("id = ? AND worker_id = ?", id, workerID).
		Select("*").
		Omit("id", "worker_id", "created_at", "deleted_at")
}

func listQuery(db *gorm.DB, workerID, cursorID int64, limit int) *gorm.DB {
	q := db.Where("worker_id = ?", workerID)
	if cursorID > 0 {
		q = q.Where("id <= ?", cursorID)
	}
	return q.Order("id DESC").Limit(limit)
}

func toDomain(rows []model.AttendanceRecord) []attendance.Record {
	out := make([]attendance.Record, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}
