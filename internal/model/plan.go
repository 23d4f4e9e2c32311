package model

import "time"

// 订阅档位
const (
	TierFree = "free"
	TierPro  = "pro"
	TierTiny = "tiny"
)

// Plan 用户订阅，每用户一条；tier 决定 token 预算，renews_at 锚定计费窗口
type Plan struct {
	UserID         string    `gorm:"primaryKey;size:36" json:"user_id"`
	Tier           string    `gorm:"size:20;default:free" json:"tier"` // free, pro, tiny
	RenewsAt       time.Time `json:"renews_at"`
	StripeCustomer string    `gorm:"index;size:100" json:"stripe_customer"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Plan) TableName() string {
	return "plans"
}

// UsageRecord token 消耗流水，只追加不修改
// 自 renews_at 起的求和即当前计费周期的消耗
type UsageRecord struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	UserID           string    `gorm:"index;size:36;not null" json:"user_id"`
	ToolID           string    `gorm:"index;size:36" json:"tool_id"`
	PromptTokens     int       `gorm:"default:0" json:"prompt_tokens"`
	CompletionTokens int       `gorm:"default:0" json:"completion_tokens"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定表名
func (UsageRecord) TableName() string {
	return "usage_records"
}
