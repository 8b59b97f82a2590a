package attendance

// Store 按时间倒序保存考勤记录，下标 0 为最新记录。
// 所有修改都是写时复制：每次生成新的底层切片，已返回的快照不会再被改动。
type Store struct {
	records []Record
}

// NewStore 用已有历史（最新在前）初始化，定位信息会被复制
func NewStore(history []Record) *Store {
	records := make([]Record, len(history))
	for i, r := range history {
		records[i] = r.detached()
	}
	return &Store{records: records}
}

func (s *Store) Prepend(r Record) {
	next := make([]Record, 0, len(s.records)+1)
	next = append(next, r.detached())
	next = append(next, s.records...)
	s.records = next
}

// ReplaceHead 替换最新一条记录，store 为空时不做任何事
func (s *Store) ReplaceHead(r Record) bool {
	if len(s.records) == 0 {
		return false
	}
	next := make([]Record, len(s.records))
	copy(next, s.records)
	next[0] = r.detached()
	s.records = next
	return true
}

func (s *Store) Head() (Record, bool) {
	if len(s.records) == 0 {
		return Record{}, false
	}
	return s.records[0].detached(), true
}

// All 返回快照，最新在前；定位信息同样复制，调用方修改不会影响 Store
func (s *Store) All() []Record {
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.detached()
	}
	return out
}

// CountOn 统计指定日历日期的记录数，按日期比较而不是按时间跨度
func (s *Store) CountOn(date string) int {
	n := 0
	for _, r := range s.records {
		if r.Date == date {
			n++
		}
	}
	return n
}

func (s *Store) Len() int {
	return len(s.records)
}

// detached 返回不与原记录共享定位指针的副本
func (r Record) detached() Record {
	r.CheckInLocation = cloneLocation(r.CheckInLocation)
	r.CheckOutLocation = cloneLocation(r.CheckOutLocation)
	return r
}
