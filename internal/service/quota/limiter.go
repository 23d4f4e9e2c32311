package quota

import (
	"context"
	"time"
)

// 限流默认值：每 IP 每分钟 10 次请求
const (
	DefaultWindow = 60 * time.Second
	DefaultLimit  = 10
)

// Limiter 按 key 的固定滑动窗口限流器
type Limiter struct {
	store  BucketStore
	window time.Duration
	limit  int
	now    func() time.Time
}

// NewLimiter 创建限流器
func NewLimiter(store BucketStore, window time.Duration, limit int) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Limiter{
		store:  store,
		window: window,
		limit:  limit,
		now:    time.Now,
	}
}

// Check 返回该 key 的本次请求是否放行
// 窗口内计数始终递增，超限的请求也计数（不是干净重置）；窗口过期后重置为 {1, now}
func (l *Limiter) Check(ctx context.Context, key string) (bool, error) {
	now := l.now()

	b, err := l.store.Get(ctx, key)
	if err != nil {
		return false, err
	}

	if b != nil && now.Sub(b.Start) < l.window {
		b.Count++
		if err := l.store.Put(ctx, key, b); err != nil {
			return false, err
		}
		return b.Count <= l.limit, nil
	}

	if err := l.store.Put(ctx, key, &Bucket{Start: now, Count: 1}); err != nil {
		return false, err
	}
	return true, nil
}
