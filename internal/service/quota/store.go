package quota

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Bucket 单个限流窗口的计数
type Bucket struct {
	Start time.Time
	Count int
}

// BucketStore 限流桶存储
// 显式注入而非包级全局，便于测试重置和多实例部署时换用共享后端
type BucketStore interface {
	Get(ctx context.Context, key string) (*Bucket, error)
	Put(ctx context.Context, key string, b *Bucket) error
}

// MemoryStore 进程内桶存储
// 不淘汰过期 key，跨大量 key 会持续增长；仅在 key 基数低（按 IP）时可接受
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
}

// NewMemoryStore 创建进程内桶存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*Bucket)}
}

// Get 获取桶，不存在时返回 nil
func (s *MemoryStore) Get(ctx context.Context, key string) (*Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

// Put 写入桶
func (s *MemoryStore) Put(ctx context.Context, key string, b *Bucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *b
	s.buckets[key] = &copied
	return nil
}

// Reset 清空全部桶（测试用）
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = make(map[string]*Bucket)
}

const bucketKeyPrefix = "quota:bucket:"

// RedisStore Redis 桶存储，供多实例部署共享限流状态
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore 创建 Redis 桶存储
// ttl 应大于限流窗口，过期桶由 Redis 自行清理
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Get 获取桶，不存在时返回 nil
func (s *RedisStore) Get(ctx context.Context, key string) (*Bucket, error) {
	fields, err := s.client.HGetAll(ctx, bucketKeyPrefix+key).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	startMs, err := strconv.ParseInt(fields["start"], 10, 64)
	if err != nil {
		return nil, err
	}
	count, err := strconv.Atoi(fields["count"])
	if err != nil {
		return nil, err
	}
	return &Bucket{Start: time.UnixMilli(startMs), Count: count}, nil
}

// Put 写入桶并刷新过期时间
func (s *RedisStore) Put(ctx context.Context, key string, b *Bucket) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, bucketKeyPrefix+key, "start", b.Start.UnixMilli(), "count", b.Count)
	pipe.Expire(ctx, bucketKeyPrefix+key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}
