package response

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"Pointage/pkg/errors"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// StatusCode 业务错误码对应的 HTTP 状态码，非业务错误为 500
func StatusCode(err error) int {
	def, ok := errors.AsDefinition(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch def.Code {
	case errors.Unauthorized.Code, errors.InvalidUserID.Code:
		return http.StatusUnauthorized
	case errors.RateLimited.Code:
		return http.StatusTooManyRequests
	case errors.InvalidRequest.Code, errors.InvalidLocation.Code:
		return http.StatusBadRequest
	case errors.CheckInLimitReached.Code,
		errors.AlreadyPresent.Code,
		errors.NotPresent.Code,
		errors.NoOpenRecord.Code,
		errors.PauseAlreadyTaken.Code,
		errors.AttendanceBusy.Code:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error 返回错误响应，非业务错误不向客户端暴露内部信息
func Error(ctx context.Context, c *app.RequestContext, err error) {
	ErrorWithDetails(ctx, c, err, nil)
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	code, message := "INTERNAL_ERROR", "Internal server error"
	if def, ok := errors.AsDefinition(err); ok {
		code, message = def.Code, def.Message
	}

	c.JSON(StatusCode(err), ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

// BindError 请求体或参数解析失败
func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    errors.InvalidRequest.Code,
			Message: err.Error(),
		},
	})
}

// Attachment 以附件形式返回文件内容
func Attachment(ctx context.Context, c *app.RequestContext, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, data)
}

// NoContent 返回 204 No Content
func NoContent(ctx context.Context, c *app.RequestContext) {
	c.Status(http.StatusNoContent)
}
