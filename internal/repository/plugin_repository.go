package repository

import (
	"github.com/CMD-Gremlin/wobble/internal/model"
	"gorm.io/gorm"
)

// PluginRepository 插件数据访问
type PluginRepository struct {
	db *gorm.DB
}

// NewPluginRepository 创建插件仓库
func NewPluginRepository(db *gorm.DB) *PluginRepository {
	return &PluginRepository{db: db}
}

// Create 创建插件
func (r *PluginRepository) Create(plugin *model.Plugin) error {
	return r.db.Create(plugin).Error
}

// GetByID 获取插件
func (r *PluginRepository) GetByID(id string) (*model.Plugin, error) {
	var plugin model.Plugin
	err := r.db.Where("id = ?", id).First(&plugin).Error
	if err != nil {
		return nil, err
	}
	return &plugin, nil
}

// List 列出插件，visibility 为空时不过滤
func (r *PluginRepository) List(visibility string) ([]*model.Plugin, error) {
	var plugins []*model.Plugin
	q := r.db.Order("created_at DESC")
	if visibility != "" {
		q = q.Where("visibility = ?", visibility)
	}
	err := q.Find(&plugins).Error
	return plugins, err
}

// Update 更新插件
func (r *PluginRepository) Update(plugin *model.Plugin) error {
	return r.db.Save(plugin).Error
}

// Delete 删除插件
func (r *PluginRepository) Delete(id string) error {
	return r.db.Delete(&model.Plugin{}, "id = ?", id).Error
}
