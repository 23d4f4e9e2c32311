package quota

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CMD-Gremlin/wobble/internal/model"
)

// PlanLimits 档位到计费周期 token 预算的映射
var PlanLimits = map[string]int64{
	model.TierFree: 100000,
	model.TierPro:  1000000,
	model.TierTiny: 1,
}

// PlanSource 订阅读取
type PlanSource interface {
	GetPlan(ctx context.Context, userID string) (*model.Plan, error)
}

// UsageLedger 用量流水读写
type UsageLedger interface {
	Record(ctx context.Context, rec *model.UsageRecord) error
	SumSince(ctx context.Context, userID string, since time.Time) (int64, error)
}

// Tokens 单次调用的 token 消耗
type Tokens struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
}

// Usage 用量描述；UserID 为空时从会话解析
type Usage struct {
	ToolID string
	UserID string
	Tokens *Tokens
}

// Info 配额结果
type Info struct {
	Plan      string `json:"plan"`
	Remaining int64  `json:"remaining"`
	Low       bool   `json:"low,omitempty"`
}

// Service 配额策略：IP 限流 + 按订阅档位的 token 预算核算
type Service struct {
	limiter *Limiter
	plans   PlanSource
	ledger  UsageLedger
	newID   func() string
}

// NewService 创建配额服务
func NewService(limiter *Limiter, plans PlanSource, ledger UsageLedger, newID func() string) *Service {
	return &Service{limiter: limiter, plans: plans, ledger: ledger, newID: newID}
}

// CheckQuota 配额检查
//
// 调用方每次生成请求调用两次：一次在 LLM 调用前不带 usage（仅限流），
// 一次在调用后带实际 token 数。预算在成本已发生之后才生效，是软性预算
// 而非硬性准入控制；不要改成先扣费模型。
//
// usage 为 nil 时仅做 IP 限流并返回 (nil, nil)。
// 解析不到用户时匿名记录用量后返回，不做配额计算。
// 超预算时返回 ErrQuotaExceeded，但本次用量流水已经落库。
func (s *Service) CheckQuota(ctx context.Context, ip, sessionUserID string, usage *Usage) (*Info, error) {
	allowed, err := s.limiter.Check(ctx, ip)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrRateLimited
	}

	if usage == nil {
		return nil, nil
	}

	uid := usage.UserID
	if uid == "" {
		uid = sessionUserID
	}
	if uid == "" {
		// 未认证调用：匿名记录（无用户时为 no-op），不做配额计算
		if err := s.RecordUsage(ctx, usage); err != nil {
			return nil, err
		}
		return nil, nil
	}

	tier := model.TierFree
	since := time.Unix(0, 0)
	if plan, err := s.plans.GetPlan(ctx, uid); err == nil && plan != nil {
		if plan.Tier != "" {
			tier = plan.Tier
		}
		if !plan.RenewsAt.IsZero() {
			since = plan.RenewsAt
		}
	}

	limit, ok := PlanLimits[tier]
	if !ok {
		limit = PlanLimits[model.TierFree]
	}

	used, err := s.ledger.SumSince(ctx, uid, since)
	if err != nil {
		return nil, err
	}

	var tokensNow int64
	if usage.Tokens != nil {
		tokensNow = int64(usage.Tokens.Prompt) + int64(usage.Tokens.Completion)
	}

	remaining := limit - used - tokensNow
	info := &Info{
		Plan:      tier,
		Remaining: remaining,
		Low:       float64(remaining)/float64(limit) < 0.2,
	}

	// 先落库再判超限，保证每次尝试都进入配额状态
	recorded := *usage
	recorded.UserID = uid
	if err := s.RecordUsage(ctx, &recorded); err != nil {
		return nil, err
	}

	if remaining < 0 {
		return nil, ErrQuotaExceeded
	}
	return info, nil
}

// RecordUsage 追加一条用量流水；无法确定用户时静默跳过
// 底层存储的错误原样上抛
func (s *Service) RecordUsage(ctx context.Context, usage *Usage) error {
	if usage == nil || usage.UserID == "" {
		return nil
	}
	rec := &model.UsageRecord{
		ID:     s.newID(),
		UserID: usage.UserID,
		ToolID: usage.ToolID,
	}
	if usage.Tokens != nil {
		rec.PromptTokens = usage.Tokens.Prompt
		rec.CompletionTokens = usage.Tokens.Completion
	}
	return s.ledger.Record(ctx, rec)
}

// Summary 当前计费周期的用量汇总（计费面板用）
type Summary struct {
	Plan      string    `json:"plan"`
	Limit     int64     `json:"limit"`
	Used      int64     `json:"used"`
	Remaining int64     `json:"remaining"`
	RenewsAt  time.Time `json:"renews_at"`
}

// UsageSummary 汇总用户当前计费周期的消耗
func (s *Service) UsageSummary(ctx context.Context, userID string) (*Summary, error) {
	tier := model.TierFree
	since := time.Unix(0, 0)
	if plan, err := s.plans.GetPlan(ctx, userID); err == nil && plan != nil {
		if plan.Tier != "" {
			tier = plan.Tier
		}
		if !plan.RenewsAt.IsZero() {
			since = plan.RenewsAt
		}
	}

	limit, ok := PlanLimits[tier]
	if !ok {
		limit = PlanLimits[model.TierFree]
	}

	used, err := s.ledger.SumSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Plan:      tier,
		Limit:     limit,
		Used:      used,
		Remaining: limit - used,
		RenewsAt:  since,
	}, nil
}

// ClientIP 解析调用方 IP：X-Forwarded-For 第一段，其次连接地址，兜底 "unknown"
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}
