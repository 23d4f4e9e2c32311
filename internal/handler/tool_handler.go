package handler

import (
	"fmt"

	"github.com/CMD-Gremlin/wobble/internal/middleware"
	"github.com/CMD-Gremlin/wobble/internal/model"
	"github.com/CMD-Gremlin/wobble/internal/service"
	"github.com/CMD-Gremlin/wobble/internal/service/chunker"
	"github.com/CMD-Gremlin/wobble/internal/service/llm"
	"github.com/CMD-Gremlin/wobble/internal/service/quota"
	"github.com/gin-gonic/gin"
)

// ToolHandler 工具处理器
type ToolHandler struct {
	svc *service.Services
}

// NewToolHandler 创建工具处理器
func NewToolHandler(svc *service.Services) *ToolHandler {
	return &ToolHandler{svc: svc}
}

// GenerateRequest 生成请求
type GenerateRequest struct {
	Prompt   string `json:"prompt" binding:"required"`
	PluginID string `json:"plugin_id"`
}

// Generate 从自然语言描述生成工具
//
// 配额分两段：LLM 调用前只做限流（不带 token 数），调用后带实际消耗
// 再查一次。生成失败时 token 已经花掉，用量照样落账
func (h *ToolHandler) Generate(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	ctx := c.Request.Context()

	var plug *model.Plugin
	if req.PluginID != "" {
		var err error
		plug, err = h.svc.Plugin.Get(ctx, req.PluginID)
		if err != nil {
			Error(c, err)
			return
		}
	}

	ip := quota.ClientIP(c.Request)
	if _, err := h.svc.Quota.CheckQuota(ctx, ip, userID, nil); err != nil {
		Error(c, err)
		return
	}

	key := h.svc.Credentials.KeyFor(c.GetHeader(llm.HeaderAPIKey), llm.ProviderOpenAI)
	tool, usage, genErr := h.svc.Generate.GenerateTool(ctx, key, userID, req.Prompt, plug)

	// 成本已经发生，成功与否都过一遍配额记账
	if usage != nil {
		toolID := ""
		if tool != nil {
			toolID = tool.ID
		}
		_, quotaErr := h.svc.Quota.CheckQuota(ctx, ip, userID, &quota.Usage{
			ToolID: toolID,
			UserID: userID,
			Tokens: &quota.Tokens{Prompt: usage.PromptTokens, Completion: usage.CompletionTokens},
		})
		if genErr == nil && quotaErr != nil {
			Error(c, quotaErr)
			return
		}
	}

	if genErr != nil {
		Error(c, genErr)
		return
	}

	Success(c, gin.H{
		"id":        tool.ID,
		"tool_name": tool.Name,
		"html":      tool.HTML,
		"script":    tool.Script,
	})
}

// PatchRequest 修补请求
type PatchRequest struct {
	UserRequest string `json:"user_request" binding:"required"`
}

// Patch 用自然语言修改既有工具
func (h *ToolHandler) Patch(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req PatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	tool, err := h.svc.Tool.Get(ctx, userID, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	ip := quota.ClientIP(c.Request)
	if _, err := h.svc.Quota.CheckQuota(ctx, ip, userID, nil); err != nil {
		Error(c, err)
		return
	}

	key := h.svc.Credentials.KeyFor(c.GetHeader(llm.HeaderAPIKey), llm.ProviderOpenAI)
	patch, usage, patchErr := h.svc.Generate.Patch(ctx, key, tool, req.UserRequest)

	if usage != nil {
		_, quotaErr := h.svc.Quota.CheckQuota(ctx, ip, userID, &quota.Usage{
			ToolID: tool.ID,
			UserID: userID,
			Tokens: &quota.Tokens{Prompt: usage.PromptTokens, Completion: usage.CompletionTokens},
		})
		if patchErr == nil && quotaErr != nil {
			Error(c, quotaErr)
			return
		}
	}

	if patchErr != nil {
		Error(c, patchErr)
		return
	}

	if err := h.svc.Tool.ApplyPatch(ctx, tool, patch); err != nil {
		Error(c, err)
		return
	}

	Success(c, gin.H{
		"patched": chunker.Compose(patch.HTML, patch.Script),
		"version": tool.CurrentVersion,
	})
}

// List 列出调用方的工具
func (h *ToolHandler) List(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	tools, err := h.svc.Tool.List(c.Request.Context(), userID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, tools)
}

// Get 获取单个工具
func (h *ToolHandler) Get(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	tool, err := h.svc.Tool.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, tool)
}

// Versions 列出工具的版本快照
func (h *ToolHandler) Versions(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	versions, err := h.svc.Tool.Versions(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, versions)
}

// Delete 删除工具及其索引块
func (h *ToolHandler) Delete(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	if err := h.svc.Tool.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		Error(c, err)
		return
	}
	NoContent(c)
}

// EmbedURLRequest 嵌入链接请求
type EmbedURLRequest struct {
	Version int `json:"version"`
}

// EmbedURL 为工具的某个版本签发嵌入链接
func (h *ToolHandler) EmbedURL(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req EmbedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	tool, err := h.svc.Tool.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	version := req.Version
	if version <= 0 {
		version = tool.CurrentVersion
	}
	sig := h.svc.Signer.Sign(tool.ID, version)

	Success(c, gin.H{
		"url": fmt.Sprintf("/api/v1/embed/%s?v=%d&sig=%s", tool.ID, version, sig),
		"sig": sig,
		"v":   version,
	})
}
