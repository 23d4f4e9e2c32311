package handler

import (
	"encoding/json"

	"github.com/CMD-Gremlin/wobble/internal/middleware"
	"github.com/CMD-Gremlin/wobble/internal/service"
	"github.com/CMD-Gremlin/wobble/internal/service/llm"
	"github.com/CMD-Gremlin/wobble/internal/service/quota"
	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
)

// 配额响应头
const (
	headerPlan     = "X-Wobble-Plan"
	headerQuota    = "X-Wobble-Quota"
	headerQuotaLow = "low"
)

// ProxyHandler 工具到 LLM 的代理对话处理器
type ProxyHandler struct {
	svc *service.Services
}

// NewProxyHandler 创建代理处理器
func NewProxyHandler(svc *service.Services) *ProxyHandler {
	return &ProxyHandler{svc: svc}
}

// ProxyChatRequest 代理对话请求
type ProxyChatRequest struct {
	Provider string         `json:"provider"`
	Model    string         `json:"model" binding:"required"`
	Messages []ProxyMessage `json:"messages" binding:"required,min=1"`
	ToolID   string         `json:"tool_id"`
}

// ProxyMessage 对话消息
type ProxyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content" binding:"required"`
}

// Chat 代理一次 LLM 对话
//
// 两段配额：调用前仅限流，调用后带实际 token 数记账。
// 响应头回带订阅状态，剩余预算低于两成时加 X-Wobble-Quota: low
func (h *ProxyHandler) Chat(c *gin.Context) {
	var req ProxyChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	provider, err := llm.ParseProvider(req.Provider)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	adapter, err := h.svc.Adapters.For(provider)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	ip := quota.ClientIP(c.Request)
	userID, _ := middleware.GetUserID(c)

	if _, err := h.svc.Quota.CheckQuota(ctx, ip, userID, nil); err != nil {
		Error(c, err)
		return
	}

	messages := make([]*schema.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = &schema.Message{Role: llm.RoleFromString(m.Role), Content: m.Content}
	}

	key := h.svc.Credentials.KeyFor(c.GetHeader(llm.HeaderAPIKey), provider)
	resp, chatErr := adapter.Chat(ctx, &llm.ChatRequest{
		Key:      key,
		Model:    req.Model,
		Messages: messages,
	})

	var tokens *quota.Tokens
	if chatErr == nil && resp.Usage != nil {
		tokens = &quota.Tokens{Prompt: resp.Usage.PromptTokens, Completion: resp.Usage.CompletionTokens}
	}

	info, quotaErr := h.svc.Quota.CheckQuota(ctx, ip, userID, &quota.Usage{
		ToolID: req.ToolID,
		UserID: userID,
		Tokens: tokens,
	})
	if info != nil {
		planJSON, _ := json.Marshal(gin.H{"plan": info.Plan, "remaining": info.Remaining})
		c.Header(headerPlan, string(planJSON))
		if info.Low {
			c.Header(headerQuota, headerQuotaLow)
		}
	}

	if chatErr != nil {
		Error(c, chatErr)
		return
	}
	if quotaErr != nil {
		Error(c, quotaErr)
		return
	}

	out := gin.H{"result": resp.Result}
	if resp.Usage != nil {
		out["usage"] = gin.H{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		}
	}
	Success(c, out)
}
