package service

import (
	"context"
	"log"
	"time"

	"github.com/CMD-Gremlin/wobble/internal/config"
	"github.com/CMD-Gremlin/wobble/internal/repository"
	"github.com/CMD-Gremlin/wobble/internal/service/auth"
	"github.com/CMD-Gremlin/wobble/internal/service/billing"
	"github.com/CMD-Gremlin/wobble/internal/service/generate"
	"github.com/CMD-Gremlin/wobble/internal/service/llm"
	"github.com/CMD-Gremlin/wobble/internal/service/plugin"
	"github.com/CMD-Gremlin/wobble/internal/service/quota"
	"github.com/CMD-Gremlin/wobble/internal/service/tool"
	"github.com/CMD-Gremlin/wobble/internal/service/toolchain"
	"github.com/CMD-Gremlin/wobble/internal/service/vector"
	"github.com/cloudwego/eino-ext/components/embedding/dashscope"
	openaiembed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Services 服务集合
type Services struct {
	Auth      *auth.Service
	Quota     *quota.Service
	Generate  *generate.Service
	Tool      *tool.Service
	Plugin    *plugin.Service
	Toolchain *toolchain.Service
	Billing   *billing.Service // Stripe 未配置时为 nil
	Signer    *billing.Signer

	// LLM 接入
	Adapters    *llm.Registry
	Credentials *llm.Resolver

	// 向量索引（ES 或 embedding 未配置时为 nil，降级为不索引）
	Index *vector.Index

	Config *config.Config
}

// NewServices 创建所有服务
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	ctx := context.Background()

	// 限流桶存储：默认进程内，redis 时跨实例共享
	store := newBucketStore(cfg, redisClient)
	limiter := quota.NewLimiter(store, time.Duration(cfg.Quota.WindowSeconds)*time.Second, cfg.Quota.Limit)
	quotaSvc := quota.NewService(limiter, repo.Plan, repo.Plan, func() string { return uuid.New().String() })

	// 向量索引链路：embedder → es8 indexer/retriever
	embedder := newEmbedder(ctx, cfg)
	var index *vector.Index
	if embedder != nil {
		var err error
		index, err = vector.New(ctx, cfg, embedder)
		if err != nil {
			log.Printf("Warning: failed to create vector index: %v", err)
		} else if err := index.EnsureIndex(ctx); err != nil {
			log.Printf("Warning: failed to ensure chunk index: %v", err)
		}
	} else {
		log.Printf("Warning: embedder not configured, chunk indexing disabled")
	}

	// LLM 适配器：封闭集合，Mistral 走 OpenAI 兼容端点
	adapters := llm.NewRegistry(map[llm.Provider]llm.Adapter{
		llm.ProviderOpenAI:    llm.NewOpenAIAdapter(cfg.AI.OpenAI.BaseURL),
		llm.ProviderAnthropic: llm.NewAnthropicAdapter(cfg.AI.Anthropic.BaseURL),
		llm.ProviderMistral:   llm.NewOpenAIAdapter(cfg.AI.Mistral.BaseURL),
	})
	credentials := llm.NewResolver(&cfg.AI)

	var chunkIndex tool.ChunkIndex
	if index != nil {
		chunkIndex = index
	}
	toolSvc := tool.NewService(repo.Tool, chunkIndex)

	// 生成固定走 OpenAI 适配器
	genAdapter, err := adapters.For(llm.ProviderOpenAI)
	if err != nil {
		return nil, err
	}
	generateSvc := generate.NewService(genAdapter, cfg.AI.OpenAI.Model, toolSvc)

	billingSvc := billing.NewService(cfg.Stripe, repo.Plan)
	if billingSvc == nil {
		log.Printf("Warning: stripe not configured, billing disabled")
	}

	return &Services{
		Auth:        auth.NewService(repo.Auth),
		Quota:       quotaSvc,
		Generate:    generateSvc,
		Tool:        toolSvc,
		Plugin:      plugin.NewService(repo.Plugin, nil),
		Toolchain:   toolchain.NewService(repo.Toolchain),
		Billing:     billingSvc,
		Signer:      billing.NewSigner(cfg.Embed.Secret),
		Adapters:    adapters,
		Credentials: credentials,
		Index:       index,
		Config:      cfg,
	}, nil
}

// newBucketStore 按配置选择限流桶后端
func newBucketStore(cfg *config.Config, redisClient *redis.Client) quota.BucketStore {
	if cfg.Quota.Store == "redis" && redisClient != nil {
		ttl := 2 * time.Duration(cfg.Quota.WindowSeconds) * time.Second
		return quota.NewRedisStore(redisClient, ttl)
	}
	if cfg.Quota.Store == "redis" {
		log.Printf("Warning: quota store set to redis but redis is unavailable, using memory store")
	}
	return quota.NewMemoryStore()
}

// newEmbedder 创建 Embedding 器
func newEmbedder(ctx context.Context, cfg *config.Config) embedding.Embedder {
	embCfg := cfg.AI.Embedding

	if embCfg.APIKey == "" {
		log.Printf("Warning: embedding api_key is empty")
		return nil
	}

	switch embCfg.Provider {
	case "openai", "":
		embConfig := &openaiembed.EmbeddingConfig{
			APIKey:  embCfg.APIKey,
			Model:   embCfg.Model,
			BaseURL: embCfg.BaseURL,
		}
		if embCfg.Timeout > 0 {
			embConfig.Timeout = time.Duration(embCfg.Timeout) * time.Second
		}
		if embCfg.Dimensions > 0 {
			embConfig.Dimensions = &embCfg.Dimensions
		}
		embedder, err := openaiembed.NewEmbedder(ctx, embConfig)
		if err != nil {
			log.Printf("Warning: failed to create embedder: %v", err)
			return nil
		}
		return embedder

	case "alibaba", "qwen", "dashscope":
		embConfig := &dashscope.EmbeddingConfig{
			APIKey: embCfg.APIKey,
			Model:  embCfg.Model,
		}
		if embCfg.Timeout > 0 {
			embConfig.Timeout = time.Duration(embCfg.Timeout) * time.Second
		}
		if embCfg.Dimensions > 0 {
			embConfig.Dimensions = &embCfg.Dimensions
		}
		embedder, err := dashscope.NewEmbedder(ctx, embConfig)
		if err != nil {
			log.Printf("Warning: failed to create embedder: %v", err)
			return nil
		}
		return embedder

	default:
		log.Printf("Warning: unsupported embedding provider: %s", embCfg.Provider)
		return nil
	}
}
