package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
)

// ChatRequest 统一的对话请求
type ChatRequest struct {
	Key         string
	Model       string
	Messages    []*schema.Message
	Temperature *float32
}

// ChatResponse 统一的对话响应
// Result 在模型返回空内容时为空串，不报错；传输和鉴权错误原样上抛
type ChatResponse struct {
	Result string
	Usage  *schema.TokenUsage
}

// Adapter 屏蔽各提供商请求/响应差异的统一接口
type Adapter interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// Registry 按 Provider 选择适配器
type Registry struct {
	adapters map[Provider]Adapter
}

// NewRegistry 创建适配器注册表
func NewRegistry(adapters map[Provider]Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// For 获取指定提供商的适配器
func (r *Registry) For(p Provider) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("no adapter for provider: %s", p)
	}
	return a, nil
}

// responseFrom 从 eino 消息提取统一响应
func responseFrom(msg *schema.Message) *ChatResponse {
	resp := &ChatResponse{}
	if msg != nil {
		resp.Result = msg.Content
		if msg.ResponseMeta != nil {
			resp.Usage = msg.ResponseMeta.Usage
		}
	}
	return resp
}

// RoleFromString 将字符串角色转换为 schema.RoleType
func RoleFromString(role string) schema.RoleType {
	switch role {
	case "system":
		return schema.System
	case "assistant":
		return schema.Assistant
	case "tool":
		return schema.Tool
	default:
		return schema.User
	}
}
