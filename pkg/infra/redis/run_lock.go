package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultRunLockKey 检测运行锁
	DefaultRunLockKey = "fieldaudit:anomaly_scan:lock"
	// DefaultRunLockTTL 锁过期时间，应大于单次运行的最长耗时
	DefaultRunLockTTL = 10 * time.Minute
)

// RunLock 基于 redislock 的运行锁，跨实例串行化检测运行
type RunLock struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
}

// NewRunLock 创建运行锁
func NewRunLock(client *redis.Client, key string, ttl time.Duration) *RunLock {
	if key == "" {
		key = DefaultRunLockKey
	}
	if ttl <= 0 {
		ttl = DefaultRunLockTTL
	}
	return &RunLock{
		locker: redislock.New(client),
		key:    key,
		ttl:    ttl,
	}
}

// TryLock 非阻塞加锁；已被占用时 obtained=false
func (l *RunLock) TryLock(ctx context.Context) (func(context.Context) error, bool, error) {
	lock, err := l.locker.Obtain(ctx, l.key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to obtain run lock: %w", err)
	}

	release := func(ctx context.Context) error {
		err := lock.Release(ctx)
		if err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}
	return release, true, nil
}
