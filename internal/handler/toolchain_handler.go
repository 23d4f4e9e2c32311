package handler

import (
	"github.com/CMD-Gremlin/wobble/internal/middleware"
	"github.com/CMD-Gremlin/wobble/internal/model"
	"github.com/CMD-Gremlin/wobble/internal/service"
	"github.com/gin-gonic/gin"
)

// ToolchainHandler 工具链处理器
type ToolchainHandler struct {
	svc *service.Services
}

// NewToolchainHandler 创建工具链处理器
func NewToolchainHandler(svc *service.Services) *ToolchainHandler {
	return &ToolchainHandler{svc: svc}
}

// ToolchainRequest 工具链创建请求
type ToolchainRequest struct {
	Name    string   `json:"name" binding:"required"`
	ToolIDs []string `json:"tool_ids" binding:"required,min=1"`
}

// toolchainView 工具链响应（节点展开为列表）
func toolchainView(chain *model.Toolchain) gin.H {
	return gin.H{"toolchain": chain, "tool_ids": chain.NodeIDs()}
}

// Create 创建工具链
func (h *ToolchainHandler) Create(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req ToolchainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	chain, err := h.svc.Toolchain.Create(c.Request.Context(), userID, req.Name, req.ToolIDs)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, toolchainView(chain))
}

// List 列出工具链
func (h *ToolchainHandler) List(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	chains, err := h.svc.Toolchain.List(c.Request.Context(), userID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, chains)
}

// Get 获取工具链
func (h *ToolchainHandler) Get(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	chain, err := h.svc.Toolchain.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, toolchainView(chain))
}

// Delete 删除工具链
func (h *ToolchainHandler) Delete(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	if err := h.svc.Toolchain.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		Error(c, err)
		return
	}
	NoContent(c)
}
