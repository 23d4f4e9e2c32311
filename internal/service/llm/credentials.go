package llm

import (
	"strings"

	"github.com/CMD-Gremlin/wobble/internal/config"
)

// HeaderAPIKey 调用方自带 key 的请求头
const HeaderAPIKey = "X-Api-Key"

// Resolver 按提供商解析 API key
type Resolver struct {
	cfg *config.AIConfig
}

// NewResolver 创建凭证解析器
func NewResolver(cfg *config.AIConfig) *Resolver {
	return &Resolver{cfg: cfg}
}

// KeyFor 解析 key：调用方请求头（去空白后非空）无条件优先，
// 其次提供商配置；未知提供商返回空串，适配器在使用时报鉴权错误
func (r *Resolver) KeyFor(headerKey string, provider Provider) string {
	if k := strings.TrimSpace(headerKey); k != "" {
		return k
	}

	switch provider {
	case ProviderOpenAI:
		return r.cfg.OpenAI.APIKey
	case ProviderAnthropic:
		return r.cfg.Anthropic.APIKey
	case ProviderMistral:
		return r.cfg.Mistral.APIKey
	default:
		return ""
	}
}
