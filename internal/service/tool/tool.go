// Package tool 工具的持久化与索引维护
package tool

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/CMD-Gremlin/wobble/internal/model"
	"github.com/CMD-Gremlin/wobble/internal/service/chunker"
	"github.com/CMD-Gremlin/wobble/internal/service/generate"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound 工具或版本不存在（含无权访问，不区分以免泄露存在性）
var ErrNotFound = errors.New("tool not found")

// Store 工具数据访问，由 repository.ToolRepository 实现
type Store interface {
	Create(tool *model.Tool) error
	GetByID(id string) (*model.Tool, error)
	GetByUserAndName(userID, name string) (*model.Tool, error)
	ListByUser(userID string) ([]*model.Tool, error)
	Update(tool *model.Tool) error
	Delete(id string) error
	CreateVersion(version *model.ToolVersion) error
	GetVersion(toolID string, version int) (*model.ToolVersion, error)
	ListVersions(toolID string) ([]*model.ToolVersion, error)
}

// ChunkIndex 代码块向量索引
type ChunkIndex interface {
	Store(ctx context.Context, chunks []chunker.Chunk) ([]string, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

// Service 工具服务
// index 可为 nil（ES 未配置时降级为只存库不索引）
type Service struct {
	repo  Store
	index ChunkIndex
}

// NewService 创建工具服务
func NewService(repo Store, index ChunkIndex) *Service {
	return &Service{repo: repo, index: index}
}

// SaveGenerated 保存一次生成结果
// 按 (user_id, name) upsert，初始可见性 private，代码变更追加版本快照并重建索引
func (s *Service) SaveGenerated(ctx context.Context, userID string, res *generate.Result) (*model.Tool, error) {
	tool, err := s.repo.GetByUserAndName(userID, res.ToolName)
	switch {
	case err == nil:
		// 已有同名工具：先摘掉旧代码的索引块
		if err := s.deleteChunks(ctx, tool); err != nil {
			return nil, err
		}
		tool.HTML = res.HTML
		tool.Script = res.Script
		tool.CurrentVersion++
		if err := s.repo.Update(tool); err != nil {
			return nil, fmt.Errorf("failed to update tool: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		tool = &model.Tool{
			ID:             uuid.New().String(),
			UserID:         userID,
			Name:           res.ToolName,
			HTML:           res.HTML,
			Script:         res.Script,
			Visibility:     model.VisibilityPrivate,
			CurrentVersion: 1,
		}
		if err := s.repo.Create(tool); err != nil {
			return nil, fmt.Errorf("failed to create tool: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to look up tool: %w", err)
	}

	if err := s.appendVersion(tool); err != nil {
		return nil, err
	}
	if err := s.indexChunks(ctx, tool); err != nil {
		return nil, err
	}
	return tool, nil
}

// ApplyPatch 应用修补结果：更新代码、追加版本、重建索引
func (s *Service) ApplyPatch(ctx context.Context, tool *model.Tool, patch *generate.PatchResult) error {
	if err := s.deleteChunks(ctx, tool); err != nil {
		return err
	}

	tool.HTML = patch.HTML
	tool.Script = patch.Script
	tool.CurrentVersion++
	if err := s.repo.Update(tool); err != nil {
		return fmt.Errorf("failed to update tool: %w", err)
	}
	if err := s.appendVersion(tool); err != nil {
		return err
	}
	return s.indexChunks(ctx, tool)
}

// Get 按 id 获取调用方自己的工具
func (s *Service) Get(ctx context.Context, userID, id string) (*model.Tool, error) {
	tool, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if tool.UserID != userID {
		return nil, ErrNotFound
	}
	return tool, nil
}

// GetPublic 获取可公开访问的工具（嵌入场景）
func (s *Service) GetPublic(ctx context.Context, id string) (*model.Tool, error) {
	tool, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if tool.Visibility == model.VisibilityPrivate {
		return nil, ErrNotFound
	}
	return tool, nil
}

// List 列出调用方的全部工具
func (s *Service) List(ctx context.Context, userID string) ([]*model.Tool, error) {
	return s.repo.ListByUser(userID)
}

// Versions 列出工具的版本快照
func (s *Service) Versions(ctx context.Context, userID, id string) ([]*model.ToolVersion, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(id)
}

// GetVersion 获取指定版本快照（嵌入按版本号取）
func (s *Service) GetVersion(ctx context.Context, toolID string, version int) (*model.ToolVersion, error) {
	v, err := s.repo.GetVersion(toolID, version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// Delete 删除工具：基于存量代码重算块 id 摘索引，再删行（含版本）
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	tool, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.deleteChunks(ctx, tool); err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete tool: %w", err)
	}
	return nil
}

// appendVersion 追加不可变版本快照
func (s *Service) appendVersion(tool *model.Tool) error {
	v := &model.ToolVersion{
		ID:      uuid.New().String(),
		ToolID:  tool.ID,
		Version: tool.CurrentVersion,
		HTML:    tool.HTML,
		Script:  tool.Script,
	}
	if err := s.repo.CreateVersion(v); err != nil {
		return fmt.Errorf("failed to create tool version: %w", err)
	}
	return nil
}

// indexChunks 把当前代码切块写入向量索引
func (s *Service) indexChunks(ctx context.Context, tool *model.Tool) error {
	if s.index == nil {
		log.Printf("Warning: vector index not configured, skipping indexing for tool %s", tool.ID)
		return nil
	}
	chunks := chunker.Split(chunker.Compose(tool.HTML, tool.Script), chunker.DefaultFile)
	if _, err := s.index.Store(ctx, chunks); err != nil {
		return fmt.Errorf("failed to index tool chunks: %w", err)
	}
	return nil
}

// deleteChunks 重算存量代码的块 id 并从索引摘除
// 内容寻址保证这里算出的 id 与索引时一致
func (s *Service) deleteChunks(ctx context.Context, tool *model.Tool) error {
	if s.index == nil {
		return nil
	}
	ids := chunker.IDs(chunker.Split(chunker.Compose(tool.HTML, tool.Script), chunker.DefaultFile))
	if err := s.index.DeleteByIDs(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete tool chunks: %w", err)
	}
	return nil
}
