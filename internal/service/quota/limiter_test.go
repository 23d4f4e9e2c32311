package quota

import (
	"context"
	"testing"
	"time"
)

// ========== 限流器测试 ==========

func newTestLimiter(limit int) (*Limiter, *MemoryStore, *time.Time) {
	store := NewMemoryStore()
	l := NewLimiter(store, DefaultWindow, limit)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, store, &now
}

func TestLimiter_AllowsWithinLimit(t *testing.T) {
	l, _, _ := newTestLimiter(10)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		ok, err := l.Check(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		if !ok {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
}

func TestLimiter_BlocksOverLimit(t *testing.T) {
	l, _, _ := newTestLimiter(10)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if ok, _ := l.Check(ctx, "1.2.3.4"); !ok {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}

	// 第 LIMIT+1 次被拒绝
	ok, err := l.Check(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if ok {
		t.Error("call 11 should be blocked")
	}
}

func TestLimiter_OverLimitStillCounts(t *testing.T) {
	l, store, _ := newTestLimiter(2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.Check(ctx, "k")
	}

	b, _ := store.Get(ctx, "k")
	if b == nil {
		t.Fatal("bucket should exist")
	}
	// 超限请求依然计数，不是干净重置
	if b.Count != 5 {
		t.Errorf("Count = %d, want 5", b.Count)
	}
}

func TestLimiter_ResetsAfterWindow(t *testing.T) {
	l, store, now := newTestLimiter(2)
	ctx := context.Background()

	l.Check(ctx, "k")
	l.Check(ctx, "k")
	if ok, _ := l.Check(ctx, "k"); ok {
		t.Fatal("call 3 should be blocked")
	}

	// 窗口过期后重新开始，计数回到 1
	*now = now.Add(DefaultWindow)
	ok, err := l.Check(ctx, "k")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Error("first call of fresh window should be allowed")
	}
	b, _ := store.Get(ctx, "k")
	if b.Count != 1 {
		t.Errorf("Count = %d, want 1", b.Count)
	}
}

func TestLimiter_IndependentKeys(t *testing.T) {
	l, _, _ := newTestLimiter(1)
	ctx := context.Background()

	if ok, _ := l.Check(ctx, "a"); !ok {
		t.Error("key a should be allowed")
	}
	if ok, _ := l.Check(ctx, "b"); !ok {
		t.Error("key b should be allowed")
	}
	if ok, _ := l.Check(ctx, "a"); ok {
		t.Error("key a second call should be blocked")
	}
}

// ========== MemoryStore 测试 ==========

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()
	b, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if b != nil {
		t.Error("missing key should return nil bucket")
	}
}

func TestMemoryStore_PutReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	orig := &Bucket{Start: time.Now(), Count: 1}
	store.Put(ctx, "k", orig)
	orig.Count = 99

	b, _ := store.Get(ctx, "k")
	if b.Count != 1 {
		t.Errorf("Count = %d, want 1 (store must not alias caller's bucket)", b.Count)
	}
}

func TestMemoryStore_Reset(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Put(ctx, "k", &Bucket{Start: time.Now(), Count: 3})
	store.Reset()

	b, _ := store.Get(ctx, "k")
	if b != nil {
		t.Error("Reset() should drop all buckets")
	}
}
