package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"Pointage/internal/attendance"
)

// MemoryAttendance 进程内实现，STORAGE_DRIVER=memory 与测试使用
type MemoryAttendance struct {
	mu      sync.RWMutex
	records map[int64][]attendance.Record // 每个员工按 ID 倒序
}

func NewMemoryAttendance() *MemoryAttendance {
	return &MemoryAttendance{records: make(map[int64][]attendance.Record)}
}

func (m *MemoryAttendance) Recent(ctx context.Context, workerID int64, limit int) ([]attendance.Record, error) {
	return m.List(ctx, workerID, 0, limit)
}

func (m *MemoryAttendance) List(_ context.Context, workerID int64, cursorID int64, limit int) ([]attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]attendance.Record, 0, limit)
	for _, r := range m.records[workerID] {
		if len(out) >= limit {
			break
		}
		if cursorID > 0 && recordID(r) > cursorID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryAttendance) Between(_ context.Context, workerID int64, from, to string) ([]attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []attendance.Record
	for _, r := range m.records[workerID] {
		if r.Date >= from && r.Date <= to {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryAttendance) Create(_ context.Context, workerID int64, r attendance.Record) error {
	if _, err := strconv.ParseInt(r.ID, 10, 64); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list := append([]attendance.Record{r}, m.records[workerID]...)
	sort.SliceStable(list, func(i, j int) bool {
		return recordID(list[i]) > recordID(list[j])
	})
	m.records[workerID] = list
	return nil
}

func (m *MemoryAttendance) Update(_ context.Context, workerID int64, r attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.records[workerID]
	for i := range list {
		if list[i].ID == r.ID {
			next := make([]attendance.Record, len(list))
			copy(next, list)
			next[i] = r
			m.records[workerID] = next
			return nil
		}
	}
	return ErrRecordNotFound
}

func recordID(r attendance.Record) int64 {
	id, _ := strconv.ParseInt(r.ID, 10, 64)
	return id
}
