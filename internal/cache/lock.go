package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"Pointage/pkg/logger"
	"Pointage/storage/redis"
)

// 员工级别的状态变更锁，SETNX + 随机 token，释放时校验 token
const lockPrefix = "lock:attendance"

var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock 尝试获取锁，返回持有 token；未获取到时 token 为空
func TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	fullKey := redis.Key(lockPrefix, key)
	token := uuid.NewString()

	ok, err := redis.Client().SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// Unlock 仅当 token 匹配时删除锁，过期后被他人持有的锁不会被误删
func Unlock(ctx context.Context, key, token string) error {
	fullKey := redis.Key(lockPrefix, key)
	return unlockScript.Run(ctx, redis.Client(), []string{fullKey}, token).Err()
}

// RedisLocker 基于 redis 的员工锁
type RedisLocker struct {
	TTL time.Duration
}

func NewRedisLocker(ttl time.Duration) *RedisLocker {
	return &RedisLocker{TTL: ttl}
}

// TryLock 获取员工锁，acquired 为 false 表示已有其他请求在处理
func (l *RedisLocker) TryLock(ctx context.Context, workerID int64) (func(), bool, error) {
	key := strconv.FormatInt(workerID, 10)
	token, err := TryLock(ctx, key, l.TTL)
	if err != nil {
		return nil, false, err
	}
	if token == "" {
		return nil, false, nil
	}

	release := func() {
		// 请求 ctx 可能已取消，释放锁使用独立超时
		unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := Unlock(unlockCtx, key, token); err != nil {
			logger.Logger.Warn("Failed to release attendance lock",
				zap.Int64("worker_id", workerID),
				zap.Error(err),
			)
		}
	}
	return release, true, nil
}

// MemoryLocker 进程内的员工锁，用于 memory 存储驱动和测试
type MemoryLocker struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[int64]struct{})}
}

func (l *MemoryLocker) TryLock(_ context.Context, workerID int64) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[workerID]; ok {
		return nil, false, nil
	}
	l.held[workerID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, workerID)
			l.mu.Unlock()
		})
	}
	return release, true, nil
}
