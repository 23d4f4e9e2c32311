package repository

import (
	"context"
	"time"

	"github.com/CMD-Gremlin/wobble/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlanRepository 订阅与用量数据访问
type PlanRepository struct {
	db *gorm.DB
}

// NewPlanRepository 创建订阅仓库
func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// GetPlan 获取用户订阅；不存在时返回 gorm.ErrRecordNotFound
func (r *PlanRepository) GetPlan(ctx context.Context, userID string) (*model.Plan, error) {
	var plan model.Plan
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// UpsertPlan 按 user_id 插入或更新订阅
func (r *PlanRepository) UpsertPlan(ctx context.Context, plan *model.Plan) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tier", "renews_at", "stripe_customer", "updated_at"}),
	}).Create(plan).Error
}

// RenewByCustomer 按 Stripe customer 刷新计费窗口起点
func (r *PlanRepository) RenewByCustomer(ctx context.Context, customer string, renewsAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Plan{}).
		Where("stripe_customer = ?", customer).
		Update("renews_at", renewsAt).Error
}

// SetTierByCustomer 按 Stripe customer 调整档位（订阅取消时降级）
func (r *PlanRepository) SetTierByCustomer(ctx context.Context, customer, tier string) error {
	return r.db.WithContext(ctx).Model(&model.Plan{}).
		Where("stripe_customer = ?", customer).
		Update("tier", tier).Error
}

// Record 追加一条用量流水
func (r *PlanRepository) Record(ctx context.Context, rec *model.UsageRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// SumSince 汇总用户自 since 起的 token 消耗（prompt + completion）
func (r *PlanRepository) SumSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.UsageRecord{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Select("COALESCE(SUM(prompt_tokens + completion_tokens), 0)").
		Scan(&total).Error
	return total, err
}

// ListSince 列出用户自 since 起的用量流水（新的在前）
func (r *PlanRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]*model.UsageRecord, error) {
	var records []*model.UsageRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at DESC").Find(&records).Error
	return records, err
}
