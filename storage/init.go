package storage

import (
	"go.uber.org/zap"

	"Pointage/config"
	"Pointage/pkg/logger"
	"Pointage/storage/database"
	"Pointage/storage/mq"
	"Pointage/storage/redis"
)

// Init 统一初始化存储层；memory 驱动下不连接任何外部服务
func Init() error {
	if config.Cfg.UsesMemoryStorage() {
		logger.Logger.Warn("Using in-memory storage, attendance records are not persisted",
			zap.String("driver", config.Cfg.StorageDriver),
		)
		return nil
	}

	if err := database.Init(); err != nil {
		return err
	}

	if err := redis.Init(); err != nil {
		return err
	}

	if err := mq.Init(); err != nil {
		return err
	}

	return nil
}
