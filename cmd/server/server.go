package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"go.uber.org/zap"

	"Pointage/config"
	"Pointage/internal/attendance"
	"Pointage/internal/cache"
	"Pointage/internal/middleware"
	"Pointage/internal/queue"
	"Pointage/internal/repository"
	"Pointage/internal/router"
	"Pointage/internal/service"
	"Pointage/pkg/logger"
	"Pointage/pkg/metrics"
	pkgotel "Pointage/pkg/otel"
	"Pointage/pkg/snowflake"
	"Pointage/pkg/token"
	"Pointage/storage"
	"Pointage/storage/database"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	// OTel 需要在存储层之前初始化，gorm / redis 的插件依赖全局 provider
	if config.Cfg.OTelEnabled {
		shutdown, err := pkgotel.InitOpenTelemetry(ctx, pkgotel.Config{
			ServiceName:    config.Cfg.ServiceName,
			ServiceVersion: config.Cfg.Version,
			Environment:    config.Cfg.Environment,
			OTLPEndpoint:   config.Cfg.OTelEndpoint,
			SampleRatio:    config.Cfg.OTelSampleRatio,
		})
		if err != nil {
			logger.Logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Logger.Warn("Failed to shutdown OpenTelemetry", zap.Error(err))
			}
		}()
	}

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	// token 在中间件前初始化，middleware 依赖 token
	if err := token.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize token package", zap.Error(err))
	}

	if err := middleware.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize middlewares", zap.Error(err))
	}

	svc, err := newAttendanceService()
	if err != nil {
		logger.Logger.Fatal("Failed to initialize attendance service", zap.Error(err))
	}
	service.SetAttendance(svc)

	logger.Logger.Info("Server starting",
		zap.String("service", config.Cfg.ServiceName),
		zap.String("port", config.Cfg.ServerPort),
		zap.String("environment", config.Cfg.Environment),
		zap.String("storage", config.Cfg.StorageDriver),
		zap.Int("daily_cap", config.Cfg.AttendanceDailyCap),
	)

	addr := net.JoinHostPort(config.Cfg.ServerHost, config.Cfg.ServerPort)
	opts := []hertzconfig.Option{server.WithHostPorts(addr)}

	var tracingMw app.HandlerFunc
	if config.Cfg.OTelEnabled {
		var tracerOpt hertzconfig.Option
		tracerOpt, tracingMw = middleware.NewServerTracerConfig()
		opts = append(opts, tracerOpt)
	}

	h := server.Default(opts...)
	if tracingMw != nil {
		h.Use(tracingMw)
	}
	router.Register(h)

	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}

// newAttendanceService 按存储驱动组装依赖：memory 全部进程内，postgres 使用 gorm + redis + rabbitmq
func newAttendanceService() (*service.AttendanceService, error) {
	loc, err := config.Cfg.Location()
	if err != nil {
		return nil, err
	}

	deps := service.AttendanceDeps{
		Clock:            attendance.LocationClock{Loc: loc},
		IDs:              snowflake.Generator{},
		Metrics:          metrics.Attendance(),
		DailyCap:         config.Cfg.AttendanceDailyCap,
		HistoryPageSize:  config.Cfg.AttendanceHistoryPageSize,
		ExportMaxRecords: config.Cfg.AttendanceExportMaxRecords,
	}

	if config.Cfg.UsesMemoryStorage() {
		deps.Repo = repository.NewMemoryAttendance()
		deps.Locker = cache.NewMemoryLocker()
		deps.Publisher = queue.NopPublisher{}
	} else {
		deps.Repo = repository.NewGormAttendance(database.DB())
		deps.Locker = cache.NewRedisLocker(config.Cfg.LockTTL())
		deps.Publisher = queue.MQPublisher{}
		deps.Summary = cache.NewWeekSummaryStore()
	}

	return service.NewAttendanceService(deps), nil
}
