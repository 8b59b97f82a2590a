package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"Pointage/internal/handler"
	"Pointage/internal/middleware"
)

func Register(h *server.Hertz) {
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	h.GET("/healthz", handler.Healthz)

	v1 := h.Group("/v1")

	// 考勤路由，全部需要员工 token；认证在限流之前，按员工计数
	attendance := v1.Group("/attendance")
	attendance.Use(middleware.AuthMiddleware(), middleware.AttendanceRateLimitMiddleware())
	{
		attendance.POST("/check-in", handler.CheckIn)
		attendance.POST("/pause/toggle", handler.TogglePause)
		attendance.POST("/check-out", handler.CheckOut)

		attendance.GET("/mode", handler.GetMode)
		attendance.GET("/today", handler.GetToday)
		attendance.GET("/history", handler.GetHistory)
		attendance.GET("/history/export", handler.ExportHistory)
		attendance.GET("/summary/week", handler.GetWeekSummary)
	}
}
