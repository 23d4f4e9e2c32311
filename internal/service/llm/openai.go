package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
)

// OpenAIAdapter OpenAI 兼容端点适配器
// OpenAI 本身和 Mistral（OpenAI 兼容 API）都走这里，仅 BaseURL 不同
type OpenAIAdapter struct {
	baseURL string
}

// NewOpenAIAdapter 创建 OpenAI 兼容适配器
func NewOpenAIAdapter(baseURL string) *OpenAIAdapter {
	return &OpenAIAdapter{baseURL: baseURL}
}

// Chat 执行一次对话
// key 逐请求传入（调用方可用自己的 key），因此模型客户端按请求构建
func (a *OpenAIAdapter) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req.Key == "" {
		return nil, fmt.Errorf("api key is required")
	}

	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      req.Key,
		BaseURL:     a.baseURL,
		Model:       req.Model,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	msg, err := cm.Generate(ctx, req.Messages)
	if err != nil {
		return nil, err
	}
	return responseFrom(msg), nil
}
