package model

import "time"

// 工具可见性
const (
	VisibilityPrivate  = "private"
	VisibilityUnlisted = "unlisted"
	VisibilityPublic   = "public"
)

// Tool 生成的微工具（HTML + 脚本）
// (user_id, name) 唯一，用于生成时的 upsert；其他地方以 id 为准
type Tool struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	UserID         string    `gorm:"index:idx_tools_user_name,unique;size:36;not null" json:"user_id"`
	Name           string    `gorm:"index:idx_tools_user_name,unique;size:255;not null" json:"name"`
	HTML           string    `gorm:"type:text" json:"html"`
	Script         string    `gorm:"type:text" json:"script"`
	Visibility     string    `gorm:"size:20;default:private" json:"visibility"` // private, unlisted, public
	Price          int64     `gorm:"default:0" json:"price"`
	PaidOnly       bool      `gorm:"default:false" json:"paid_only"`
	CurrentVersion int       `gorm:"default:0" json:"current_version"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Tool) TableName() string {
	return "tools"
}

// ToolVersion 工具代码的不可变快照，每次代码变更追加一条
type ToolVersion struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ToolID    string    `gorm:"index:idx_tool_versions_tool_ver,unique;size:36;not null" json:"tool_id"`
	Version   int       `gorm:"index:idx_tool_versions_tool_ver,unique;not null" json:"version"`
	HTML      string    `gorm:"type:text" json:"html"`
	Script    string    `gorm:"type:text" json:"script"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (ToolVersion) TableName() string {
	return "tool_versions"
}
