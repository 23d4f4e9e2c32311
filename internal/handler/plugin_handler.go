package handler

import (
	"github.com/CMD-Gremlin/wobble/internal/middleware"
	"github.com/CMD-Gremlin/wobble/internal/model"
	"github.com/CMD-Gremlin/wobble/internal/service"
	"github.com/gin-gonic/gin"
)

// PluginHandler 插件处理器
type PluginHandler struct {
	svc *service.Services
}

// NewPluginHandler 创建插件处理器
func NewPluginHandler(svc *service.Services) *PluginHandler {
	return &PluginHandler{svc: svc}
}

// PluginRequest 插件注册/更新请求
type PluginRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	APIURL       string `json:"api_url" binding:"required,url"`
	Method       string `json:"method" binding:"omitempty,oneof=GET POST"`
	InputSchema  string `json:"input_schema"`
	OutputSchema string `json:"output_schema"`
	Visibility   string `json:"visibility" binding:"omitempty,oneof=private public"`
}

// Create 注册插件
func (h *PluginHandler) Create(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req PluginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	p := &model.Plugin{
		Name:         req.Name,
		Description:  req.Description,
		APIURL:       req.APIURL,
		Method:       req.Method,
		InputSchema:  req.InputSchema,
		OutputSchema: req.OutputSchema,
		Visibility:   req.Visibility,
		CreatedBy:    userID,
	}
	if err := h.svc.Plugin.Create(c.Request.Context(), p); err != nil {
		BadRequest(c, err.Error())
		return
	}

	Created(c, p)
}

// List 列出插件
func (h *PluginHandler) List(c *gin.Context) {
	plugins, err := h.svc.Plugin.List(c.Request.Context(), c.Query("visibility"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, plugins)
}

// Get 获取插件
func (h *PluginHandler) Get(c *gin.Context) {
	p, err := h.svc.Plugin.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, p)
}

// Update 更新插件
func (h *PluginHandler) Update(c *gin.Context) {
	var req PluginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	p, err := h.svc.Plugin.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	p.Name = req.Name
	p.Description = req.Description
	p.APIURL = req.APIURL
	if req.Method != "" {
		p.Method = req.Method
	}
	p.InputSchema = req.InputSchema
	p.OutputSchema = req.OutputSchema
	if req.Visibility != "" {
		p.Visibility = req.Visibility
	}

	if err := h.svc.Plugin.Update(c.Request.Context(), p); err != nil {
		BadRequest(c, err.Error())
		return
	}
	Success(c, p)
}

// Delete 删除插件
func (h *PluginHandler) Delete(c *gin.Context) {
	if err := h.svc.Plugin.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Error(c, err)
		return
	}
	NoContent(c)
}

// Execute 调用插件
func (h *PluginHandler) Execute(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	result, err := h.svc.Plugin.Execute(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}
