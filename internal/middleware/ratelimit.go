package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"Pointage/pkg/errors"
	"Pointage/pkg/logger"
	"Pointage/pkg/response"
	"Pointage/storage/redis"
)

// Limiter 判断 key 在当前窗口内是否还能请求，remaining 为窗口剩余次数
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
}

// RedisLimiter 基于 zset 的滑动窗口，多实例共享
type RedisLimiter struct {
	Prefix      string
	Window      time.Duration
	MaxRequests int
}

func NewRedisLimiter(maxRequests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{Prefix: "rate:attendance", Window: window, MaxRequests: maxRequests}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	redisKey := redis.Key(l.Prefix, key)
	now := time.Now()
	windowStart := now.Add(-l.Window)

	pipe := redis.Client().Pipeline()
	// 先清理窗口外的请求，再记录本次
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, redisKey, redislib.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	card := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.Window+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}

	count := int(card.Val())
	return count <= l.MaxRequests, max(l.MaxRequests-count, 0), nil
}

// MemoryLimiter 进程内令牌桶，每个 key 一个 rate.Limiter
type MemoryLimiter struct {
	rps   int
	mu    sync.Mutex
	perID map[string]*rate.Limiter
}

func NewMemoryLimiter(rps int) *MemoryLimiter {
	return &MemoryLimiter{rps: rps, perID: make(map[string]*rate.Limiter)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, int, error) {
	l.mu.Lock()
	lim, ok := l.perID[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.rps), l.rps)
		l.perID[key] = lim
	}
	l.mu.Unlock()

	allowed := lim.Allow()
	return allowed, max(int(lim.Tokens()), 0), nil
}

// RateLimitMiddleware 按员工限流，未认证请求按客户端 IP 限流。
// 限流器自身故障时放行，考勤操作不因 redis 抖动失败
func RateLimitMiddleware(l Limiter, limit int) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		key := "ip:" + c.ClientIP()
		if workerID, ok := GetWorkerID(ctx, c); ok {
			key = "worker:" + strconv.FormatInt(workerID, 10)
		}

		allowed, remaining, err := l.Allow(ctx, key)
		if err != nil {
			logger.Logger.Warn("Rate limiter unavailable, allowing request",
				zap.String("key", key),
				zap.Error(err),
			)
			c.Next(ctx)
			return
		}

		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Abort()
			response.Error(ctx, c, errors.RateLimited)
			return
		}

		c.Next(ctx)
	}
}
