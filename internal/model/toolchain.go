package model

import (
	"encoding/json"
	"time"
)

// Toolchain 工具链：按顺序执行的工具 id 列表（平面列表，非图）
type Toolchain struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;size:36;not null" json:"user_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Nodes     string    `gorm:"type:jsonb" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Toolchain) TableName() string {
	return "toolchains"
}

// NodeIDs 解析节点工具 id 列表
func (t *Toolchain) NodeIDs() []string {
	if t.Nodes == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(t.Nodes), &ids); err != nil {
		return nil
	}
	return ids
}

// SetNodeIDs 设置节点工具 id 列表
func (t *Toolchain) SetNodeIDs(ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	t.Nodes = string(data)
	return nil
}
