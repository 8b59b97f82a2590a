package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Pointage/internal/attendance"
	"Pointage/internal/cache"
	"Pointage/internal/middleware"
	"Pointage/internal/model/dto"
	"Pointage/internal/queue"
	"Pointage/internal/repository"
	"Pointage/internal/service"
	"Pointage/pkg/response"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Set(hh, mm int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Date(2025, time.March, 10, hh, mm, 0, 0, time.UTC)
}

type envelope[T any] struct {
	Data T                      `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

func setup(t *testing.T) (*route.Engine, *stepClock) {
	t.Helper()

	clock := &stepClock{}
	clock.Set(9, 0)

	var n int64
	svc := service.NewAttendanceService(service.AttendanceDeps{
		Repo:      repository.NewMemoryAttendance(),
		Locker:    cache.NewMemoryLocker(),
		Publisher: queue.NopPublisher{},
		Clock:     clock,
		IDs: attendance.IDGeneratorFunc(func() (int64, error) {
			n++
			return n, nil
		}),
	})
	service.SetAttendance(svc)
	t.Cleanup(func() { service.SetAttendance(nil) })

	engine := route.NewEngine(config.NewOptions([]config.Option{}))
	v1 := engine.Group("/v1/attendance", func(ctx context.Context, c *app.RequestContext) {
		if uid := string(c.GetHeader("X-Test-Worker")); uid != "" {
			c.Set(middleware.IdentityKey, uid)
		}
		c.Next(ctx)
	})
	v1.POST("/check-in", CheckIn)
	v1.POST("/pause/toggle", TogglePause)
	v1.POST("/check-out", CheckOut)
	v1.GET("/mode", GetMode)
	v1.GET("/today", GetToday)
	v1.GET("/history", GetHistory)
	v1.GET("/history/export", ExportHistory)
	v1.GET("/summary/week", GetWeekSummary)

	return engine, clock
}

func do(engine *route.Engine, method, path, body string) *ut.ResponseRecorder {
	headers := []ut.Header{{Key: "X-Test-Worker", Value: "42"}}
	var b *ut.Body
	if body != "" {
		b = &ut.Body{Body: strings.NewReader(body), Len: len(body)}
		headers = append(headers, ut.Header{Key: "Content-Type", Value: "application/json"})
	}
	return ut.PerformRequest(engine, method, path, b, headers...)
}

func decode[T any](t *testing.T, w *ut.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(w.Result().Body(), &out))
	return out
}

func errorCode(t *testing.T, w *ut.ResponseRecorder) string {
	t.Helper()
	var out response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Result().Body(), &out))
	return out.Error.Code
}

func TestAttendanceHandlers_Day(t *testing.T) {
	engine, clock := setup(t)

	w := do(engine, http.MethodPost, "/v1/attendance/check-in",
		`{"location":{"lat":48.85,"lng":2.35,"address":"Paris"}}`)
	require.Equal(t, http.StatusOK, w.Result().StatusCode(), string(w.Result().Body()))
	in := decode[dto.TransitionResponse](t, w)
	assert.Equal(t, "present", in.Data.Mode)
	require.NotNil(t, in.Data.Record.CheckInLocation)
	assert.Equal(t, "Paris", in.Data.Record.CheckInLocation.Address)

	clock.Set(12, 0)
	w = do(engine, http.MethodPost, "/v1/attendance/pause/toggle", "")
	require.Equal(t, http.StatusOK, w.Result().StatusCode())
	assert.Equal(t, "paused", decode[dto.TransitionResponse](t, w).Data.Mode)

	w = do(engine, http.MethodGet, "/v1/attendance/mode", "")
	assert.Equal(t, "paused", decode[dto.ModeResponse](t, w).Data.Mode)

	clock.Set(12, 15)
	w = do(engine, http.MethodPost, "/v1/attendance/pause/toggle", "")
	require.Equal(t, http.StatusOK, w.Result().StatusCode())

	clock.Set(15, 0)
	w = do(engine, http.MethodPost, "/v1/attendance/check-out", "")
	require.Equal(t, http.StatusOK, w.Result().StatusCode())
	out := decode[dto.TransitionResponse](t, w)
	assert.Equal(t, "absent", out.Data.Mode)
	assert.Equal(t, "5h 45min", out.Data.Record.TotalDurationText)
	assert.Equal(t, "15min", out.Data.Record.PauseDurationText)

	w = do(engine, http.MethodGet, "/v1/attendance/today", "")
	today := decode[dto.TodayResponse](t, w)
	assert.Len(t, today.Data.Records, 1)
	assert.Equal(t, 1, today.Data.Remaining)

	w = do(engine, http.MethodGet, "/v1/attendance/history?limit=10", "")
	require.Equal(t, http.StatusOK, w.Result().StatusCode())
	history := decode[dto.HistoryResponse](t, w)
	assert.Len(t, history.Data.Records, 1)
	assert.EqualValues(t, 1, history.Meta["count"])

	w = do(engine, http.MethodGet, "/v1/attendance/summary/week?date=2025-03-10", "")
	require.Equal(t, http.StatusOK, w.Result().StatusCode())
	week := decode[dto.WeekSummaryResponse](t, w)
	assert.Equal(t, 345, week.Data.TotalMinutes)
}

func TestAttendanceHandlers_Conflicts(t *testing.T) {
	engine, _ := setup(t)

	w := do(engine, http.MethodPost, "/v1/attendance/check-out", "")
	assert.Equal(t, http.StatusConflict, w.Result().StatusCode())
	assert.Equal(t, "NO_OPEN_RECORD", errorCode(t, w))

	w = do(engine, http.MethodPost, "/v1/attendance/pause/toggle", "")
	assert.Equal(t, http.StatusConflict, w.Result().StatusCode())
	assert.Equal(t, "NOT_PRESENT", errorCode(t, w))

	w = do(engine, http.MethodPost, "/v1/attendance/check-in", "")
	require.Equal(t, http.StatusOK, w.Result().StatusCode())
	w = do(engine, http.MethodPost, "/v1/attendance/check-in", "")
	assert.Equal(t, http.StatusConflict, w.Result().StatusCode())
	assert.Equal(t, "ALREADY_PRESENT", errorCode(t, w))
}

func TestAttendanceHandlers_InvalidInput(t *testing.T) {
	engine, _ := setup(t)

	w := do(engine, http.MethodPost, "/v1/attendance/check-in", `{"location":{"lat":123,"lng":2.35}}`)
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode())
	assert.Equal(t, "INVALID_LOCATION", errorCode(t, w))

	w = do(engine, http.MethodPost, "/v1/attendance/check-in", `{"location":`)
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode())
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))

	w = do(engine, http.MethodGet, "/v1/attendance/history?cursor=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode())

	w = do(engine, http.MethodGet, "/v1/attendance/summary/week?date=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode())

	w = do(engine, http.MethodGet, "/v1/attendance/history/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode())
}

func TestAttendanceHandlers_MissingWorker(t *testing.T) {
	engine, _ := setup(t)

	w := ut.PerformRequest(engine, http.MethodGet, "/v1/attendance/mode", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode())
	assert.Equal(t, "INVALID_USER_ID", errorCode(t, w))
}

func TestAttendanceHandlers_Export(t *testing.T) {
	engine, _ := setup(t)

	w := do(engine, http.MethodGet, "/v1/attendance/history/export?format=ics", "")
	assert.Equal(t, http.StatusNoContent, w.Result().StatusCode())

	w = do(engine, http.MethodPost, "/v1/attendance/check-in", "")
	require.Equal(t, http.StatusOK, w.Result().StatusCode())

	w = do(engine, http.MethodGet, "/v1/attendance/history/export", "")
	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Header.Peek("Content-Disposition")), "attendance-42-20250310.xlsx")
	assert.NotEmpty(t, resp.Body())

	w = do(engine, http.MethodGet, "/v1/attendance/history/export?format=ics", "")
	resp = w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "BEGIN:VCALENDAR")
}
