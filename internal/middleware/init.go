package middleware

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"Pointage/config"
	"Pointage/pkg/logger"
)

var limiter Limiter

// Init 初始化认证、指标与限流，需在 token.Init 和 storage.Init 之后调用
func Init() error {
	if err := initAuthMiddleware(); err != nil {
		logger.Logger.Error("Failed to initialize auth middleware", zap.Error(err))
		return err
	}

	// 未启用 OTel 时全局 meter 为 noop
	if err := InitMetrics(otel.Meter("pointage-http")); err != nil {
		logger.Logger.Error("Failed to initialize HTTP metrics", zap.Error(err))
		return err
	}

	if config.Cfg.RateLimitEnabled {
		if config.Cfg.UsesMemoryStorage() {
			limiter = NewMemoryLimiter(config.Cfg.RateLimitRPS)
		} else {
			limiter = NewRedisLimiter(config.Cfg.RateLimitRPS, time.Second)
		}
	}

	logger.Logger.Info("All middlewares initialized successfully",
		zap.Bool("rate_limit", limiter != nil),
	)
	return nil
}

// AttendanceRateLimitMiddleware 按 RATE_LIMIT_RPS 限流，未启用时为空操作
func AttendanceRateLimitMiddleware() app.HandlerFunc {
	if limiter == nil {
		return func(ctx context.Context, c *app.RequestContext) { c.Next(ctx) }
	}
	return RateLimitMiddleware(limiter, config.Cfg.RateLimitRPS)
}
