package model

import "time"

// Plugin 外部 API 插件契约，生成时可被模型引用，调用时按 schema 校验
type Plugin struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	APIURL       string    `gorm:"size:500;not null" json:"api_url"`
	Method       string    `gorm:"size:10;default:POST" json:"method"` // GET, POST
	InputSchema  string    `gorm:"type:jsonb" json:"input_schema"`
	OutputSchema string    `gorm:"type:jsonb" json:"output_schema"`
	Visibility   string    `gorm:"size:20;default:private" json:"visibility"` // public, private
	CreatedBy    string    `gorm:"index;size:36" json:"created_by"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Plugin) TableName() string {
	return "ai_plugins"
}
