package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
)

// Anthropic 响应的 token 上限；Claude API 要求显式指定
const anthropicMaxTokens = 4096

// AnthropicAdapter Anthropic Claude 适配器
type AnthropicAdapter struct {
	baseURL string
}

// NewAnthropicAdapter 创建 Anthropic 适配器
func NewAnthropicAdapter(baseURL string) *AnthropicAdapter {
	return &AnthropicAdapter{baseURL: baseURL}
}

// Chat 执行一次对话
func (a *AnthropicAdapter) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req.Key == "" {
		return nil, fmt.Errorf("api key is required")
	}

	cfg := &claude.Config{
		APIKey:      req.Key,
		Model:       req.Model,
		MaxTokens:   anthropicMaxTokens,
		Temperature: req.Temperature,
	}
	if a.baseURL != "" {
		cfg.BaseURL = &a.baseURL
	}

	cm, err := claude.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	msg, err := cm.Generate(ctx, req.Messages)
	if err != nil {
		return nil, err
	}
	return responseFrom(msg), nil
}
