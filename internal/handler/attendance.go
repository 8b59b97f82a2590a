package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"Pointage/internal/middleware"
	"Pointage/internal/model/dto"
	"Pointage/internal/service"
	"Pointage/pkg/errors"
	"Pointage/pkg/logger"
	"Pointage/pkg/response"
	"Pointage/utils"
)

// CheckIn 签到，请求体可为空（无定位）
// POST /v1/attendance/check-in
func CheckIn(ctx context.Context, c *app.RequestContext) {
	workerID, ok := middleware.GetWorkerID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.InvalidUserID)
		return
	}

	var req dto.CheckInRequest
	if !bindLocation(ctx, c, &req) {
		return
	}

	result, err := service.Attendance().CheckIn(ctx, workerID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// TogglePause 开始或结束暂停
// POST /v1/attendance/pause/toggle
func TogglePause(ctx context.Context, c *app.RequestContext) {
	workerID, ok := middleware.GetWorkerID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.InvalidUserID)
		return
	}

	result, err := service.Attendance().TogglePause(ctx, workerID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// CheckOut 签退
// POST /v1/attendance/check-out
func CheckOut(ctx context.Context, c *app.RequestContext) {
	workerID, ok := middleware.GetWorkerID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.InvalidUserID)
		return
	}

	var req dto.CheckOutRequest
	if !bindLocation(ctx, c, &req) {
		return
	}

	result, err := service.Attendance().CheckOut(ctx, workerID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetMode 当前在岗状态
// GET /v1/attendance/mode
func GetMode(ctx context.Context, c *app.RequestContext) {
	workerID, ok := middleware.GetWorkerID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.InvalidUserID)
		return
	}

	result, err := service.Attendance().Mode(ctx, workerID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetToday 今日记录与剩余签到次数
// GET /v1/attendance/today
func GetToday(ctx context.Context, c *app.RequestContext) {
	workerID, ok := middleware.GetWorkerID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.InvalidUserID)
		return
	}

	result, err := service.Attendance().Today(ctx, workerID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetHistory 历史记录，游标分页
// GET /v1/attendance/history?limit=&cursor=
func GetHistory(ctx context.Context, c *app.RequestContext) {
	workerID, ok := middleware.GetWorkerID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.InvalidUserID)
		return
	}

	var q dto.HistoryQuery
	if err := c.BindQuery(&q); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Attendance().History(ctx, workerID, q)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	meta := map[string]interface{}{"count": len(result.Records)}
	if result.NextCursor != "" {
		meta["next_cursor"] = result.NextCursor
	}
	response.SuccessWithMeta(ctx, c, result, meta)
}

// ExportHistory 导出历史记录
// GET /v1/attendance/history/export?format=xlsx|ics
func ExportHistory(ctx context.Context, c *app.RequestContext) {
	workerID, ok := middleware.GetWorkerID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.InvalidUserID)
		return
	}

	file, err := service.Attendance().ExportHistory(ctx, workerID, c.Query("format"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	if len(file.Data) == 0 {
		response.NoContent(ctx, c)
		return
	}

	response.Attachment(ctx, c, file.Filename, file.ContentType, file.Data)
}

// GetWeekSummary 指定日期所在周的每日工作时长，date 缺省为今天
// GET /v1/attendance/summary/week?date=2006-01-02
func GetWeekSummary(ctx context.Context, c *app.RequestContext) {
	workerID, ok := middleware.GetWorkerID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.InvalidUserID)
		return
	}

	result, err := service.Attendance().WeekSummary(ctx, workerID, c.Query("date"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// bindLocation 空请求体表示不带定位；带定位时校验经纬度
func bindLocation(ctx context.Context, c *app.RequestContext, req *dto.CheckInRequest) bool {
	if len(c.Request.Body()) == 0 {
		return true
	}

	if err := c.BindJSON(req); err != nil {
		response.BindError(ctx, c, err)
		return false
	}

	if err := utils.ValidateStruct(req); err != nil {
		logger.Logger.Debug("Invalid attendance location", zap.Error(err))
		response.Error(ctx, c, errors.InvalidLocation)
		return false
	}
	return true
}
