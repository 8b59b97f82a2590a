package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"Pointage/pkg/logger"
	"Pointage/storage/database"
	"Pointage/storage/mq"
	"Pointage/storage/redis"
)

// Close 按 MQ -> Redis -> Database 的顺序关闭连接
// 未初始化的连接直接跳过
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Logger.Info("Closing storage connections...")

	closers := []struct {
		name  string
		close func(context.Context) error
	}{
		{"rabbitmq", mq.Close},
		{"redis", redis.Close},
		{"database", database.Close},
	}

	for _, c := range closers {
		if err := c.close(ctx); err != nil {
			logger.Logger.Error("Failed to close storage connection",
				zap.String("storage", c.name),
				zap.Error(err),
			)
			continue
		}
		logger.Logger.Info("Storage connection closed", zap.String("storage", c.name))
	}
}
