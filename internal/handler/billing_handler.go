package handler

import (
	"io"

	"github.com/CMD-Gremlin/wobble/internal/middleware"
	"github.com/CMD-Gremlin/wobble/internal/service"
	"github.com/gin-gonic/gin"
)

// BillingHandler 计费处理器
type BillingHandler struct {
	svc *service.Services
}

// NewBillingHandler 创建计费处理器
func NewBillingHandler(svc *service.Services) *BillingHandler {
	return &BillingHandler{svc: svc}
}

// Checkout 创建 Pro 订阅的 Checkout 会话
func (h *BillingHandler) Checkout(c *gin.Context) {
	if h.svc.Billing == nil {
		InternalServerError(c, "billing is not configured")
		return
	}

	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		Unauthorized(c, "Not authenticated")
		return
	}

	url, err := h.svc.Billing.CreateCheckoutSession(c.Request.Context(), user.ID, user.Email)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"url": url})
}

// Webhook 处理 Stripe 回调
// 签名校验需要原始请求体，不能走 JSON 绑定
func (h *BillingHandler) Webhook(c *gin.Context) {
	if h.svc.Billing == nil {
		InternalServerError(c, "billing is not configured")
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		BadRequest(c, "failed to read payload")
		return
	}

	if err := h.svc.Billing.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		BadRequest(c, err.Error())
		return
	}
	Success(c, nil)
}

// Usage 当前计费周期的用量汇总
func (h *BillingHandler) Usage(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	summary, err := h.svc.Quota.UsageSummary(c.Request.Context(), userID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, summary)
}
