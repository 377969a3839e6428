package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁实现
// ============================================================================
//
// 【为什么需要分布式锁？】
//
// 场景：同一用户同时发起两次余额操作（比如双击"使用余额"按钮）
//
// 如果没有锁：
//   goroutine1: 查询余额=1 -> 扣减1 -> 余额=0   OK
//   goroutine2: 查询余额=1 -> 扣减1 -> 余额=-1  超扣了！
//
// 加了锁之后，同一用户的操作被串行化；不同用户之间互不影响。
// 扣减语句本身还带有 balance >= ? 条件，作为第二道防线。
//
// 【Redis 分布式锁原理】
//
// 加锁：SET key value NX EX timeout
//   - NX: 只有 key 不存在时才设置（保证互斥）
//   - EX: 设置过期时间（防止死锁）
//   - value: 锁持有者标识（释放时验证，防止误删别人的锁）
//
// 释放锁：使用 Lua 脚本保证"检查+删除"的原子性
//
// ============================================================================

var (
	ErrLockFailed  = errors.New("获取分布式锁失败")
	ErrLockExpired = errors.New("锁已过期")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 锁的 value（用于验证锁的持有者）
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
//
// 先检查 value 是否是自己的，再删除 key。
// 否则 A 的锁过期后 B 拿到锁，A 执行完 Unlock 会把 B 的锁删掉。
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewBalanceLock 创建余额操作锁（按用户维度）
//
// 按用户加锁而不是全局加锁：同一用户的购买/消耗串行执行，
// 不同用户可以并发，互不等待。value 使用本次操作的流水号，便于追踪持有者。
func NewBalanceLock(client *redis.Client, userUUID string, holder string) *DistributedLock {
	key := fmt.Sprintf("balance:lock:user:%s", userUUID)
	return NewDistributedLock(client, key, holder, 30*time.Second)
}
