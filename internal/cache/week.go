package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"Pointage/storage/redis"
)

// 周工时汇总：hash key = attendance:week:{worker}:{ISO week}，field = 日期，value = 分钟
const (
	weekMinutesPrefix = "attendance:week"
	weekMinutesTTL    = 60 * 24 * time.Hour
)

func weekKey(workerID int64, week string) string {
	return redis.Key(weekMinutesPrefix, strconv.FormatInt(workerID, 10), week)
}

// AddWorkedMinutes 累加某日工作分钟数，负值同样累加（时钟异常记录保持原样）
func AddWorkedMinutes(ctx context.Context, workerID int64, week, date string, minutes int) error {
	key := weekKey(workerID, week)

	pipe := redis.Client().TxPipeline()
	pipe.HIncrBy(ctx, key, date, int64(minutes))
	pipe.Expire(ctx, key, weekMinutesTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add worked minutes: %w", err)
	}
	return nil
}

// WeekMinutes 读取某周每日工作分钟数
func WeekMinutes(ctx context.Context, workerID int64, week string) (map[string]int, error) {
	raw, err := redis.Client().HGetAll(ctx, weekKey(workerID, week)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read week minutes: %w", err)
	}

	out := make(map[string]int, len(raw))
	for date, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid minutes %q for %s: %w", v, date, err)
		}
		out[date] = n
	}
	return out, nil
}

// WeekSummaryStore 以 redis hash 实现周汇总读写。
// Breaker 非空时读取经过熔断，redis 持续失败期间直接返回 ErrBreakerOpen
type WeekSummaryStore struct {
	Breaker *CircuitBreaker
}

// NewWeekSummaryStore 连续失败 5 次熔断，30 秒后探测
func NewWeekSummaryStore() *WeekSummaryStore {
	return &WeekSummaryStore{Breaker: NewCircuitBreaker("attendance_week_summary", 5, 30*time.Second)}
}

func (s *WeekSummaryStore) AddWorkedMinutes(ctx context.Context, workerID int64, week, date string, minutes int) error {
	return AddWorkedMinutes(ctx, workerID, week, date, minutes)
}

func (s *WeekSummaryStore) WeekMinutes(ctx context.Context, workerID int64, week string) (map[string]int, error) {
	if s.Breaker == nil {
		return WeekMinutes(ctx, workerID, week)
	}

	var out map[string]int
	err := s.Breaker.Call(func() error {
		var err error
		out, err = WeekMinutes(ctx, workerID, week)
		return err
	})
	return out, err
}

// MemoryWeekSummary 进程内周汇总
type MemoryWeekSummary struct {
	mu   sync.Mutex
	data map[string]map[string]int
}

func NewMemoryWeekSummary() *MemoryWeekSummary {
	return &MemoryWeekSummary{data: make(map[string]map[string]int)}
}

func (m *MemoryWeekSummary) AddWorkedMinutes(_ context.Context, workerID int64, week, date string, minutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%d:%s", workerID, week)
	days, ok := m.data[key]
	if !ok {
		days = make(map[string]int)
		m.data[key] = days
	}
	days[date] += minutes
	return nil
}

func (m *MemoryWeekSummary) WeekMinutes(_ context.Context, workerID int64, week string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	days := m.data[fmt.Sprintf("%d:%s", workerID, week)]
	out := make(map[string]int, len(days))
	for d, n := range days {
		out[d] = n
	}
	return out, nil
}
