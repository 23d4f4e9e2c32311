package repository

import (
	"github.com/CMD-Gremlin/wobble/internal/model"
	"gorm.io/gorm"
)

// ToolchainRepository 工具链数据访问
type ToolchainRepository struct {
	db *gorm.DB
}

// NewToolchainRepository 创建工具链仓库
func NewToolchainRepository(db *gorm.DB) *ToolchainRepository {
	return &ToolchainRepository{db: db}
}

// Create 创建工具链
func (r *ToolchainRepository) Create(chain *model.Toolchain) error {
	return r.db.Create(chain).Error
}

// GetByID 获取工具链
func (r *ToolchainRepository) GetByID(id string) (*model.Toolchain, error) {
	var chain model.Toolchain
	err := r.db.Where("id = ?", id).First(&chain).Error
	if err != nil {
		return nil, err
	}
	return &chain, nil
}

// ListByUser 列出用户的工具链
func (r *ToolchainRepository) ListByUser(userID string) ([]*model.Toolchain, error) {
	var chains []*model.Toolchain
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&chains).Error
	return chains, err
}

// Delete 删除工具链
func (r *ToolchainRepository) Delete(id string) error {
	return r.db.Delete(&model.Toolchain{}, "id = ?", id).Error
}
