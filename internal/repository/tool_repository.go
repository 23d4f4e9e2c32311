package repository

import (
	"github.com/CMD-Gremlin/wobble/internal/model"
	"gorm.io/gorm"
)

// ToolRepository 工具数据访问
type ToolRepository struct {
	db *gorm.DB
}

// NewToolRepository 创建工具仓库
func NewToolRepository(db *gorm.DB) *ToolRepository {
	return &ToolRepository{db: db}
}

// Create 创建工具
func (r *ToolRepository) Create(tool *model.Tool) error {
	return r.db.Create(tool).Error
}

// GetByID 获取工具
func (r *ToolRepository) GetByID(id string) (*model.Tool, error) {
	var tool model.Tool
	err := r.db.Where("id = ?", id).First(&tool).Error
	if err != nil {
		return nil, err
	}
	return &tool, nil
}

// GetByUserAndName 按 (user_id, name) 获取工具，用于生成时的 upsert
func (r *ToolRepository) GetByUserAndName(userID, name string) (*model.Tool, error) {
	var tool model.Tool
	err := r.db.Where("user_id = ? AND name = ?", userID, name).First(&tool).Error
	if err != nil {
		return nil, err
	}
	return &tool, nil
}

// ListByUser 列出用户的工具
func (r *ToolRepository) ListByUser(userID string) ([]*model.Tool, error) {
	var tools []*model.Tool
	err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&tools).Error
	return tools, err
}

// Update 更新工具
func (r *ToolRepository) Update(tool *model.Tool) error {
	return r.db.Save(tool).Error
}

// Delete 删除工具及其全部版本
func (r *ToolRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.ToolVersion{}, "tool_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Tool{}, "id = ?", id).Error
	})
}

// CreateVersion 追加一条不可变版本快照
func (r *ToolRepository) CreateVersion(version *model.ToolVersion) error {
	return r.db.Create(version).Error
}

// GetVersion 获取指定版本
func (r *ToolRepository) GetVersion(toolID string, version int) (*model.ToolVersion, error) {
	var v model.ToolVersion
	err := r.db.Where("tool_id = ? AND version = ?", toolID, version).First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVersions 列出工具的版本（新的在前）
func (r *ToolRepository) ListVersions(toolID string) ([]*model.ToolVersion, error) {
	var versions []*model.ToolVersion
	err := r.db.Where("tool_id = ?", toolID).Order("version DESC").Find(&versions).Error
	return versions, err
}
