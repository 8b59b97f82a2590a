package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"Pointage/internal/model"
	"Pointage/pkg/logger"
)

// Migrate 运行数据库迁移，创建考勤表
func Migrate() error {
	db := DB()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	logger.Logger.Info("Starting database migration...")

	if err := db.AutoMigrate(&model.AttendanceRecord{}); err != nil {
		logger.Logger.Error("Database migration failed", zap.Error(err))
		return err
	}

	logger.Logger.Info("Database migration completed successfully")
	return nil
}
