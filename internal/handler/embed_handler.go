package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/CMD-Gremlin/wobble/internal/service"
	"github.com/CMD-Gremlin/wobble/internal/service/chunker"
	"github.com/gin-gonic/gin"
)

// 嵌入页面的内容安全策略：只允许内联资源，禁止外联脚本
const embedCSP = "default-src 'none'; script-src 'unsafe-inline'; style-src 'unsafe-inline'; img-src data:; connect-src *"

// EmbedHandler 工具嵌入处理器（公开端点，HMAC 签名鉴权）
type EmbedHandler struct {
	svc *service.Services
}

// NewEmbedHandler 创建嵌入处理器
func NewEmbedHandler(svc *service.Services) *EmbedHandler {
	return &EmbedHandler{svc: svc}
}

// Serve 渲染工具某个版本的 HTML 页面
// 签名或版本不对一律 403，不区分原因
func (h *EmbedHandler) Serve(c *gin.Context) {
	toolID := c.Param("toolId")
	sig := c.Query("sig")

	version, err := strconv.Atoi(c.Query("v"))
	if err != nil || version <= 0 || sig == "" {
		Forbidden(c, "invalid embed signature")
		return
	}

	if !h.svc.Signer.Verify(toolID, version, sig) {
		Forbidden(c, "invalid embed signature")
		return
	}

	v, err := h.svc.Tool.GetVersion(c.Request.Context(), toolID, version)
	if err != nil {
		Forbidden(c, "invalid embed signature")
		return
	}

	page := fmt.Sprintf("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"></head>\n<body>\n%s\n</body>\n</html>",
		chunker.Compose(v.HTML, v.Script))

	c.Header("Content-Security-Policy", embedCSP)
	c.Header("X-Frame-Options", "SAMEORIGIN")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}
