// Package attendance 实现员工每日考勤的核心状态机：
// absent → present → paused → present → absent（签退后）。
//
// Engine 的所有操作都是同步、无 I/O 的；定位信息由调用方提前解析后传入。
// Engine 本身不是并发安全的，同一员工同一时刻只能有一个写入者（见 service 层的锁）。
// History() 返回的快照是不可变的，可以与后续状态变更并发读取。
package attendance
