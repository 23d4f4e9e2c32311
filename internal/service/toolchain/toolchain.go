// Package toolchain 工具链的增删查
// 仅存储顺序列表，不做环检测，也没有执行端点
package toolchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/CMD-Gremlin/wobble/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound 工具链不存在
var ErrNotFound = errors.New("toolchain not found")

// Store 工具链数据访问，由 repository.ToolchainRepository 实现
type Store interface {
	Create(chain *model.Toolchain) error
	GetByID(id string) (*model.Toolchain, error)
	ListByUser(userID string) ([]*model.Toolchain, error)
	Delete(id string) error
}

// Service 工具链服务
type Service struct {
	repo Store
}

// NewService 创建工具链服务
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Create 创建工具链
func (s *Service) Create(ctx context.Context, userID, name string, toolIDs []string) (*model.Toolchain, error) {
	chain := &model.Toolchain{
		ID:     uuid.New().String(),
		UserID: userID,
		Name:   name,
	}
	if err := chain.SetNodeIDs(toolIDs); err != nil {
		return nil, fmt.Errorf("failed to encode node ids: %w", err)
	}
	if err := s.repo.Create(chain); err != nil {
		return nil, fmt.Errorf("failed to create toolchain: %w", err)
	}
	return chain, nil
}

// Get 获取调用方自己的工具链
func (s *Service) Get(ctx context.Context, userID, id string) (*model.Toolchain, error) {
	chain, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if chain.UserID != userID {
		return nil, ErrNotFound
	}
	return chain, nil
}

// List 列出调用方的工具链
func (s *Service) List(ctx context.Context, userID string) ([]*model.Toolchain, error) {
	return s.repo.ListByUser(userID)
}

// Delete 删除工具链
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(id)
}
