package service

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Pointage/internal/attendance"
	"Pointage/internal/cache"
	"Pointage/internal/model"
	"Pointage/internal/model/dto"
	"Pointage/internal/repository"
	"Pointage/pkg/errors"
)

const worker int64 = 42

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) At(y int, m time.Month, d, hh, mm int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.AttendanceEventMessage
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, msg model.AttendanceEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

type failingRepo struct {
	*repository.MemoryAttendance
	createErr  error
	betweenErr error
}

func (r failingRepo) Between(ctx context.Context, workerID int64, from, to string) ([]attendance.Record, error) {
	if r.betweenErr != nil {
		return nil, r.betweenErr
	}
	return r.MemoryAttendance.Between(ctx, workerID, from, to)
}

func (r failingRepo) Create(ctx context.Context, workerID int64, rec attendance.Record) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.MemoryAttendance.Create(ctx, workerID, rec)
}

type fixture struct {
	svc       *AttendanceService
	repo      *repository.MemoryAttendance
	locker    *cache.MemoryLocker
	publisher *recordingPublisher
	clock     *testClock
}

func newFixture(t *testing.T, opts ...func(*AttendanceDeps)) *fixture {
	t.Helper()
	f := &fixture{
		repo:      repository.NewMemoryAttendance(),
		locker:    cache.NewMemoryLocker(),
		publisher: &recordingPublisher{},
		clock:     &testClock{},
	}
	f.clock.At(2025, time.March, 10, 9, 0)

	var n int64
	deps := AttendanceDeps{
		Repo:      f.repo,
		Locker:    f.locker,
		Publisher: f.publisher,
		Clock:     f.clock,
		IDs: attendance.IDGeneratorFunc(func() (int64, error) {
			n++
			return n, nil
		}),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.svc = NewAttendanceService(deps)
	return f
}

func TestAttendanceService_FullDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	lat, lng := 48.8566, 2.3522
	in, err := f.svc.CheckIn(ctx, worker, dto.CheckInRequest{
		Location: &dto.LocationRequest{Lat: &lat, Lng: &lng, Address: "Paris"},
	})
	require.NoError(t, err)
	assert.Equal(t, "present", in.Mode)
	assert.Equal(t, "09:00", in.Record.CheckInTime)
	require.NotNil(t, in.Record.CheckInLocation)
	assert.Equal(t, "Paris", in.Record.CheckInLocation.Address)

	f.clock.At(2025, time.March, 10, 12, 0)
	paused, err := f.svc.TogglePause(ctx, worker)
	require.NoError(t, err)
	assert.Equal(t, "paused", paused.Mode)
	assert.Equal(t, "pause", paused.Record.Status)

	f.clock.At(2025, time.March, 10, 12, 15)
	resumed, err := f.svc.TogglePause(ctx, worker)
	require.NoError(t, err)
	assert.Equal(t, "present", resumed.Mode)
	assert.Equal(t, "15min", resumed.Record.PauseDurationText)

	f.clock.At(2025, time.March, 10, 15, 0)
	out, err := f.svc.CheckOut(ctx, worker, dto.CheckOutRequest{})
	require.NoError(t, err)
	assert.Equal(t, "absent", out.Mode)
	assert.Equal(t, "5h 45min", out.Record.TotalDurationText)
	assert.Equal(t, "completed", out.Record.Status)
	assert.Nil(t, out.Record.CheckOutLocation)

	stored, err := f.repo.Recent(ctx, worker, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1, "all transitions update the same record")
	assert.Equal(t, "15:00", stored[0].CheckOutTime)
	assert.Equal(t, "15min", stored[0].PauseDurationText)

	assert.Equal(t,
		[]string{model.EventCheckedIn, model.EventPauseStarted, model.EventPauseEnded, model.EventCheckedOut},
		f.publisher.types(),
	)
	last := f.publisher.events[3]
	assert.Equal(t, 345, last.WorkedMinutes)
	assert.Equal(t, worker, last.WorkerID)
	assert.Equal(t, "2025-03-10", last.Date)
	assert.False(t, last.ClockInconsistent)
}

func TestAttendanceService_DailyCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, hour := range []int{8, 13} {
		f.clock.At(2025, time.March, 10, hour, 0)
		_, err := f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
		require.NoError(t, err)
		f.clock.At(2025, time.March, 10, hour+2, 0)
		_, err = f.svc.CheckOut(ctx, worker, dto.CheckOutRequest{})
		require.NoError(t, err)
	}

	f.clock.At(2025, time.March, 10, 18, 0)
	_, err := f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	assert.ErrorIs(t, err, errors.CheckInLimitReached)

	today, err := f.svc.Today(ctx, worker)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", today.Date)
	assert.Equal(t, "absent", today.Mode)
	assert.Len(t, today.Records, 2)
	assert.Equal(t, 2, today.DailyCap)
	assert.Equal(t, 0, today.Remaining)

	// 第二天重新计数
	f.clock.At(2025, time.March, 11, 9, 0)
	_, err = f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	require.NoError(t, err)

	today, err = f.svc.Today(ctx, worker)
	require.NoError(t, err)
	assert.Len(t, today.Records, 1)
	assert.Equal(t, 1, today.Remaining)
	assert.Equal(t, "present", today.Mode)
}

func TestAttendanceService_ConfigurableCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(d *AttendanceDeps) { d.DailyCap = 1 })

	_, err := f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	require.NoError(t, err)
	f.clock.At(2025, time.March, 10, 10, 0)
	_, err = f.svc.CheckOut(ctx, worker, dto.CheckOutRequest{})
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	assert.ErrorIs(t, err, errors.CheckInLimitReached)
}

func TestAttendanceService_RejectedTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.TogglePause(ctx, worker)
	assert.ErrorIs(t, err, errors.NotPresent)

	_, err = f.svc.CheckOut(ctx, worker, dto.CheckOutRequest{})
	assert.ErrorIs(t, err, errors.NoOpenRecord)

	_, err = f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	require.NoError(t, err)
	_, err = f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	assert.ErrorIs(t, err, errors.AlreadyPresent)

	records, err := f.repo.Recent(ctx, worker, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, []string{model.EventCheckedIn}, f.publisher.types(), "rejected operations publish nothing")
}

func TestAttendanceService_SecondPauseRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	require.NoError(t, err)
	_, err = f.svc.TogglePause(ctx, worker)
	require.NoError(t, err)
	f.clock.At(2025, time.March, 10, 9, 30)
	_, err = f.svc.TogglePause(ctx, worker)
	require.NoError(t, err)

	_, err = f.svc.TogglePause(ctx, worker)
	assert.ErrorIs(t, err, errors.PauseAlreadyTaken)
}

func TestAttendanceService_CheckOutWhilePaused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	require.NoError(t, err)
	f.clock.At(2025, time.March, 10, 12, 0)
	_, err = f.svc.TogglePause(ctx, worker)
	require.NoError(t, err)

	f.clock.At(2025, time.March, 10, 12, 30)
	out, err := f.svc.CheckOut(ctx, worker, dto.CheckOutRequest{})
	require.NoError(t, err)
	assert.Equal(t, "12:30", out.Record.PauseEndTime)
	assert.Equal(t, "30min", out.Record.PauseDurationText)
	assert.Equal(t, "3h 00min", out.Record.TotalDurationText)
	assert.Equal(t, []string{model.EventCheckedIn, model.EventPauseStarted, model.EventCheckedOut}, f.publisher.types())
}

func TestAttendanceService_Busy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	release, ok, err := f.locker.TryLock(ctx, worker)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	assert.ErrorIs(t, err, errors.AttendanceBusy)

	records, err := f.repo.Recent(ctx, worker, 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	// 其他员工不受影响
	_, err = f.svc.CheckIn(ctx, worker+1, dto.CheckInRequest{})
	require.NoError(t, err)

	release()
	_, err = f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	require.NoError(t, err)
}

func TestAttendanceService_ConcurrentCheckIns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.True(t,
				stderrors.Is(err, errors.AttendanceBusy) || stderrors.Is(err, errors.AlreadyPresent),
				"unexpected error %v", err,
			)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	records, err := f.repo.Recent(ctx, worker, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAttendanceService_PersistFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryAttendance()
	f := newFixture(t, func(d *AttendanceDeps) {
		d.Repo = failingRepo{MemoryAttendance: mem, createErr: stderrors.New("disk full")}
	})

	_, err := f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	require.Error(t, err)
	_, isDef := errors.AsDefinition(err)
	assert.False(t, isDef)

	mode, err := f.svc.Mode(ctx, worker)
	require.NoError(t, err)
	assert.Equal(t, "absent", mode.Mode)
	assert.Empty(t, f.publisher.types())
}

func TestAttendanceService_PublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.publisher.err = stderrors.New("broker unavailable")

	resp, err := f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	require.NoError(t, err)
	assert.Equal(t, "present", resp.Mode)

	mode, err := f.svc.Mode(ctx, worker)
	require.NoError(t, err)
	assert.Equal(t, "present", mode.Mode)
}

func TestAttendanceService_ClockInconsistency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.clock.At(2025, time.March, 10, 23, 0)
	_, err := f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	require.NoError(t, err)

	// 跨日签退：时间按签到日期解析，时长为负
	f.clock.At(2025, time.March, 11, 0, 0)
	out, err := f.svc.CheckOut(ctx, worker, dto.CheckOutRequest{})
	require.NoError(t, err)
	assert.True(t, out.Record.ClockInconsistent)
	assert.Equal(t, "-23h 00min", out.Record.TotalDurationText)

	events := f.publisher.events
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.True(t, last.ClockInconsistent)
	assert.Equal(t, -1380, last.WorkedMinutes)
}

func TestAttendanceService_Mode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	mode, err := f.svc.Mode(ctx, worker)
	require.NoError(t, err)
	assert.Equal(t, "absent", mode.Mode)

	_, err = f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	require.NoError(t, err)
	_, err = f.svc.TogglePause(ctx, worker)
	require.NoError(t, err)

	mode, err = f.svc.Mode(ctx, worker)
	require.NoError(t, err)
	assert.Equal(t, "paused", mode.Mode)
}

func TestAttendanceService_HistoryPagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(d *AttendanceDeps) { d.HistoryPageSize = 2 })

	for d := 10; d <= 14; d++ {
		f.clock.At(2025, time.March, d, 9, 0)
		_, err := f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
		require.NoError(t, err)
		f.clock.At(2025, time.March, d, 17, 0)
		_, err = f.svc.CheckOut(ctx, worker, dto.CheckOutRequest{})
		require.NoError(t, err)
	}

	page, err := f.svc.History(ctx, worker, dto.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "2025-03-14", page.Records[0].Date)
	assert.Equal(t, "2025-03-13", page.Records[1].Date)
	require.NotEmpty(t, page.NextCursor)

	var dates []string
	cursor := ""
	for {
		p, err := f.svc.History(ctx, worker, dto.HistoryQuery{Cursor: cursor, Limit: 2})
		require.NoError(t, err)
		for _, r := range p.Records {
			dates = append(dates, r.Date)
		}
		if p.NextCursor == "" {
			break
		}
		cursor = p.NextCursor
	}
	assert.Equal(t, []string{"2025-03-14", "2025-03-13", "2025-03-12", "2025-03-11", "2025-03-10"}, dates)

	_, err = f.svc.History(ctx, worker, dto.HistoryQuery{Cursor: "abc"})
	assert.ErrorIs(t, err, errors.InvalidRequest)
}

func TestAttendanceService_WeekSummaryFromRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// 周一 5h45，周三 8h，周三第二段 1h
	schedule := []struct {
		day           int
		in, out       [2]int
		pause, resume [2]int
	}{
		{10, [2]int{9, 0}, [2]int{15, 0}, [2]int{12, 0}, [2]int{12, 15}},
		{12, [2]int{8, 0}, [2]int{16, 0}, [2]int{}, [2]int{}},
		{12, [2]int{17, 0}, [2]int{18, 0}, [2]int{}, [2]int{}},
	}
	for _, s := range schedule {
		f.clock.At(2025, time.March, s.day, s.in[0], s.in[1])
		_, err := f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
		require.NoError(t, err)
		if s.pause != [2]int{} {
			f.clock.At(2025, time.March, s.day, s.pause[0], s.pause[1])
			_, err = f.svc.TogglePause(ctx, worker)
			require.NoError(t, err)
			f.clock.At(2025, time.March, s.day, s.resume[0], s.resume[1])
			_, err = f.svc.TogglePause(ctx, worker)
			require.NoError(t, err)
		}
		f.clock.At(2025, time.March, s.day, s.out[0], s.out[1])
		_, err = f.svc.CheckOut(ctx, worker, dto.CheckOutRequest{})
		require.NoError(t, err)
	}

	summary, err := f.svc.WeekSummary(ctx, worker, "")
	require.NoError(t, err)
	assert.Equal(t, "2025-W11", summary.Week)
	require.Len(t, summary.Days, 7)
	assert.Equal(t, "2025-03-10", summary.Days[0].Date)
	assert.Equal(t, 345, summary.Days[0].Minutes)
	assert.Equal(t, 0, summary.Days[1].Minutes)
	assert.Equal(t, 540, summary.Days[2].Minutes)
	assert.Equal(t, "9h 00min", summary.Days[2].Text)
	assert.Equal(t, 885, summary.TotalMinutes)
	assert.Equal(t, "14h 45min", summary.TotalText)

	_, err = f.svc.WeekSummary(ctx, worker, "10/03/2025")
	assert.ErrorIs(t, err, errors.InvalidRequest)
}

type brokenSummary struct{}

func (brokenSummary) WeekMinutes(context.Context, int64, string) (map[string]int, error) {
	return nil, stderrors.New("redis down")
}

func TestAttendanceService_WeekSummaryIgnoresStaleAggregate(t *testing.T) {
	ctx := context.Background()
	// 事件尚未被消费，聚合为空
	f := newFixture(t, func(d *AttendanceDeps) { d.Summary = cache.NewMemoryWeekSummary() })

	f.clock.At(2025, time.March, 10, 8, 0)
	_, err := f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	require.NoError(t, err)
	f.clock.At(2025, time.March, 10, 16, 0)
	_, err = f.svc.CheckOut(ctx, worker, dto.CheckOutRequest{})
	require.NoError(t, err)

	summary, err := f.svc.WeekSummary(ctx, worker, "")
	require.NoError(t, err)
	assert.Equal(t, 480, summary.Days[0].Minutes)
	assert.Equal(t, 480, summary.TotalMinutes)
	assert.Equal(t, "8h 00min", summary.TotalText)
}

func TestAttendanceService_WeekSummaryAggregateWhenRecordsUnavailable(t *testing.T) {
	ctx := context.Background()
	agg := cache.NewMemoryWeekSummary()
	require.NoError(t, agg.AddWorkedMinutes(ctx, worker, "2025-W11", "2025-03-11", 120))

	dbDown := stderrors.New("connection refused")
	f := newFixture(t, func(d *AttendanceDeps) {
		d.Repo = failingRepo{MemoryAttendance: repository.NewMemoryAttendance(), betweenErr: dbDown}
		d.Summary = agg
	})
	summary, err := f.svc.WeekSummary(ctx, worker, "2025-03-13")
	require.NoError(t, err)
	assert.Equal(t, 120, summary.Days[1].Minutes)
	assert.Equal(t, 120, summary.TotalMinutes)

	// 两个来源都不可用
	broken := newFixture(t, func(d *AttendanceDeps) {
		d.Repo = failingRepo{MemoryAttendance: repository.NewMemoryAttendance(), betweenErr: dbDown}
		d.Summary = brokenSummary{}
	})
	_, err = broken.svc.WeekSummary(ctx, worker, "")
	assert.ErrorIs(t, err, dbDown)

	noSummary := newFixture(t, func(d *AttendanceDeps) {
		d.Repo = failingRepo{MemoryAttendance: repository.NewMemoryAttendance(), betweenErr: dbDown}
	})
	_, err = noSummary.svc.WeekSummary(ctx, worker, "")
	assert.ErrorIs(t, err, dbDown)
}

func TestAttendanceService_ExportHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CheckIn(ctx, worker, dto.CheckInRequest{})
	require.NoError(t, err)

	xlsx, err := f.svc.ExportHistory(ctx, worker, "")
	require.NoError(t, err)
	assert.Equal(t, "attendance-42-20250310.xlsx", xlsx.Filename)
	assert.NotEmpty(t, xlsx.Data)

	ics, err := f.svc.ExportHistory(ctx, worker, ExportICS)
	require.NoError(t, err)
	assert.Equal(t, "attendance-42-20250310.ics", ics.Filename)
	assert.Contains(t, string(ics.Data), "BEGIN:VEVENT")

	empty, err := f.svc.ExportHistory(ctx, worker+1, ExportICS)
	require.NoError(t, err)
	assert.Empty(t, empty.Data)

	_, err = f.svc.ExportHistory(ctx, worker, "pdf")
	assert.ErrorIs(t, err, errors.InvalidRequest)
}

func TestAttendanceSingleton(t *testing.T) {
	f := newFixture(t)
	SetAttendance(f.svc)
	t.Cleanup(func() { SetAttendance(nil) })
	assert.Same(t, f.svc, Attendance())
}
