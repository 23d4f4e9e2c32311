package repository

import "gorm.io/gorm"

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	DB        *gorm.DB // 直接访问数据库
	Auth      *AuthRepository
	Tool      *ToolRepository
	Plugin    *PluginRepository
	Toolchain *ToolchainRepository
	Plan      *PlanRepository
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:        db,
		Auth:      NewAuthRepository(db),
		Tool:      NewToolRepository(db),
		Plugin:    NewPluginRepository(db),
		Toolchain: NewToolchainRepository(db),
		Plan:      NewPlanRepository(db),
	}
}
