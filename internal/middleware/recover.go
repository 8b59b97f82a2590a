package middleware

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"Pointage/pkg/logger"
	"Pointage/pkg/response"
)

// RecoverConfig recover 中间件配置
type RecoverConfig struct {
	// 是否在日志中记录堆栈
	EnableStackTrace bool
	// 非生产环境在响应中返回 panic 详情
	ExposeDetails bool
	// 严重错误回调（可用于告警）
	OnPanic func(ctx context.Context, c *app.RequestContext, err interface{}, stack []byte)
}

// RecoverMiddleware 默认配置：记录堆栈，不暴露详情
func RecoverMiddleware() app.HandlerFunc {
	return RecoverMiddlewareWithConfig(RecoverConfig{EnableStackTrace: true})
}

func RecoverMiddlewareWithConfig(cfg RecoverConfig) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				handlePanic(ctx, c, err, cfg)
			}
		}()

		c.Next(ctx)
	}
}

func handlePanic(ctx context.Context, c *app.RequestContext, err interface{}, cfg RecoverConfig) {
	var stack []byte
	if cfg.EnableStackTrace {
		stack = trimStack(debug.Stack())
	}

	fields := []zap.Field{
		zap.String("panic", fmt.Sprintf("%v", err)),
		zap.String("path", string(c.Path())),
		zap.String("method", string(c.Method())),
		zap.String("client_ip", c.ClientIP()),
		zap.String("request_id", string(c.GetHeader("X-Request-Id"))),
	}
	if workerID, ok := GetWorkerID(ctx, c); ok {
		fields = append(fields, zap.Int64("worker_id", workerID))
	}
	if len(stack) > 0 {
		fields = append(fields, zap.ByteString("stack", stack))
	}
	logger.Logger.Error("[PANIC RECOVERED]", fields...)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(fmt.Errorf("panic: %v", err))
		span.SetStatus(codes.Error, "panic recovered")
	}

	if cfg.OnPanic != nil {
		cfg.OnPanic(ctx, c, err, stack)
	}

	c.Abort()
	if cfg.ExposeDetails {
		response.ErrorWithDetails(ctx, c, fmt.Errorf("panic: %v", err), map[string]interface{}{
			"panic": fmt.Sprintf("%v", err),
		})
		return
	}
	response.Error(ctx, c, fmt.Errorf("panic: %v", err))
}

// trimStack 去掉 runtime 和 recover 自身的栈帧
func trimStack(stack []byte) []byte {
	lines := strings.Split(string(stack), "\n")
	filtered := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, "runtime/debug.") ||
			strings.HasPrefix(line, "runtime.") ||
			strings.Contains(line, "middleware.handlePanic") {
			// 函数行下一行是文件位置，一起跳过
			i++
			continue
		}
		filtered = append(filtered, line)
	}

	return []byte(strings.Join(filtered, "\n"))
}
