package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/CMD-Gremlin/wobble/internal/config"
	"github.com/CMD-Gremlin/wobble/internal/model"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"
	"gorm.io/gorm"
)

// PlanStore 订阅数据访问，由 repository.PlanRepository 实现
type PlanStore interface {
	GetPlan(ctx context.Context, userID string) (*model.Plan, error)
	UpsertPlan(ctx context.Context, plan *model.Plan) error
	RenewByCustomer(ctx context.Context, customer string, renewsAt time.Time) error
	SetTierByCustomer(ctx context.Context, customer, tier string) error
}

// Service Stripe 订阅计费服务
type Service struct {
	cfg    config.StripeConfig
	client *client.API
	plans  PlanStore
	now    func() time.Time
}

// NewService 创建计费服务；SecretKey 为空时返回 nil（未启用计费）
func NewService(cfg config.StripeConfig, plans PlanStore) *Service {
	if cfg.SecretKey == "" {
		return nil
	}
	c := &client.API{}
	c.Init(cfg.SecretKey, nil)
	return &Service{cfg: cfg, client: c, plans: plans, now: time.Now}
}

// CreateCheckoutSession 创建 Pro 订阅的 Checkout 会话，返回跳转 URL
// 已有 Stripe customer 的用户复用，避免重复建档
func (s *Service) CreateCheckoutSession(ctx context.Context, userID, email string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.cfg.ProPriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		ClientReferenceID: stripe.String(userID),
	}

	plan, err := s.plans.GetPlan(ctx, userID)
	switch {
	case err == nil && plan.StripeCustomer != "":
		params.Customer = stripe.String(plan.StripeCustomer)
	case err == nil || errors.Is(err, gorm.ErrRecordNotFound):
		if email != "" {
			params.CustomerEmail = stripe.String(email)
		}
	default:
		return "", fmt.Errorf("failed to load plan: %w", err)
	}

	session, err := s.client.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return session.URL, nil
}

// HandleWebhook 处理 Stripe 回调
//
// checkout.session.completed 建立/升级订阅并绑定 customer；
// invoice.payment_succeeded 刷新计费窗口起点；
// customer.subscription.deleted 降回 free。
// 其余事件确认收到即可
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := webhook.ConstructEvent(payload, sigHeader, s.cfg.WebhookSecret)
	if err != nil {
		return fmt.Errorf("invalid webhook signature: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("failed to parse checkout session: %w", err)
		}
		if session.ClientReferenceID == "" || session.Customer == nil {
			return fmt.Errorf("checkout session missing reference or customer")
		}
		return s.plans.UpsertPlan(ctx, &model.Plan{
			UserID:         session.ClientReferenceID,
			Tier:           model.TierPro,
			RenewsAt:       s.now(),
			StripeCustomer: session.Customer.ID,
		})

	case "invoice.payment_succeeded":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("failed to parse invoice: %w", err)
		}
		if invoice.Customer == nil {
			return fmt.Errorf("invoice missing customer")
		}
		return s.plans.RenewByCustomer(ctx, invoice.Customer.ID, s.now())

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to parse subscription: %w", err)
		}
		if sub.Customer == nil {
			return fmt.Errorf("subscription missing customer")
		}
		return s.downgradeByCustomer(ctx, sub.Customer.ID)
	}

	return nil
}

// downgradeByCustomer 订阅取消后降回 free，计费窗口从当下重开
func (s *Service) downgradeByCustomer(ctx context.Context, customer string) error {
	if err := s.plans.RenewByCustomer(ctx, customer, s.now()); err != nil {
		return err
	}
	return s.plans.SetTierByCustomer(ctx, customer, model.TierFree)
}
