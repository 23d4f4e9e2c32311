package handler

import (
	"github.com/CMD-Gremlin/wobble/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Auth      *AuthHandler
	Tool      *ToolHandler
	Proxy     *ProxyHandler
	Plugin    *PluginHandler
	Toolchain *ToolchainHandler
	Billing   *BillingHandler
	Embed     *EmbedHandler
	Chunk     *ChunkHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Auth:      NewAuthHandler(svc),
		Tool:      NewToolHandler(svc),
		Proxy:     NewProxyHandler(svc),
		Plugin:    NewPluginHandler(svc),
		Toolchain: NewToolchainHandler(svc),
		Billing:   NewBillingHandler(svc),
		Embed:     NewEmbedHandler(svc),
		Chunk:     NewChunkHandler(svc),
	}
}
