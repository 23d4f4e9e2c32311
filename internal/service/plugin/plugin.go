// Package plugin 外部 API 插件的注册与调用
//
// 插件描述一个外部 HTTP 能力：端点、方法和输入/输出的 JSON Schema。
// 注册时校验 schema 本身合法，调用时对请求和响应双向校验
package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/CMD-Gremlin/wobble/internal/model"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound 插件不存在
var ErrNotFound = errors.New("plugin not found")

// Store 插件数据访问，由 repository.PluginRepository 实现
type Store interface {
	Create(plugin *model.Plugin) error
	GetByID(id string) (*model.Plugin, error)
	List(visibility string) ([]*model.Plugin, error)
	Update(plugin *model.Plugin) error
	Delete(id string) error
}

// Service 插件服务
type Service struct {
	repo   Store
	client *http.Client
}

// NewService 创建插件服务
func NewService(repo Store, client *http.Client) *Service {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{repo: repo, client: client}
}

// Create 注册插件；输入/输出 schema 必须是合法的 JSON Schema
func (s *Service) Create(ctx context.Context, p *model.Plugin) error {
	if err := checkSchemas(p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Method == "" {
		p.Method = http.MethodPost
	}
	if p.Visibility == "" {
		p.Visibility = model.VisibilityPrivate
	}
	return s.repo.Create(p)
}

// Get 获取插件
func (s *Service) Get(ctx context.Context, id string) (*model.Plugin, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List 列出插件
func (s *Service) List(ctx context.Context, visibility string) ([]*model.Plugin, error) {
	return s.repo.List(visibility)
}

// Update 更新插件，schema 重新校验
func (s *Service) Update(ctx context.Context, p *model.Plugin) error {
	if _, err := s.Get(ctx, p.ID); err != nil {
		return err
	}
	if err := checkSchemas(p); err != nil {
		return err
	}
	return s.repo.Update(p)
}

// Delete 删除插件
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(id)
}

// Execute 调用插件
// 流程：payload 按 input_schema 校验 → 请求端点 → 非 2xx 报错 →
// 响应按 output_schema 校验。任何一步失败即中止，不重试
func (s *Service) Execute(ctx context.Context, id string, payload map[string]any) (any, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := validateAgainst(p.InputSchema, payload); err != nil {
		return nil, fmt.Errorf("payload rejected by input schema: %w", err)
	}

	req, err := s.buildRequest(ctx, p, payload)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plugin call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("plugin returned status %d: %s", resp.StatusCode, body)
	}

	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("plugin response is not JSON: %w", err)
	}
	if err := validateAgainst(p.OutputSchema, result); err != nil {
		return nil, fmt.Errorf("response rejected by output schema: %w", err)
	}
	return result, nil
}

// buildRequest GET 走查询串，POST 走 JSON body
func (s *Service) buildRequest(ctx context.Context, p *model.Plugin, payload map[string]any) (*http.Request, error) {
	if p.Method == http.MethodGet {
		u, err := url.Parse(p.APIURL)
		if err != nil {
			return nil, fmt.Errorf("invalid plugin url: %w", err)
		}
		q := u.Query()
		for k, v := range payload {
			q.Set(k, fmt.Sprintf("%v", v))
		}
		u.RawQuery = q.Encode()
		return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.APIURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// checkSchemas 注册/更新时校验两份 schema 都能解析
func checkSchemas(p *model.Plugin) error {
	if _, err := parseSchema(p.InputSchema); err != nil {
		return fmt.Errorf("invalid input schema: %w", err)
	}
	if _, err := parseSchema(p.OutputSchema); err != nil {
		return fmt.Errorf("invalid output schema: %w", err)
	}
	return nil
}

// parseSchema 解析并 resolve 一份 JSON Schema；空串视为不约束
func parseSchema(raw string) (*jsonschema.Resolved, error) {
	if raw == "" {
		return nil, nil
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		return nil, err
	}
	return schema.Resolve(nil)
}

// validateAgainst 按 schema 校验实例；schema 为空时放行
func validateAgainst(raw string, instance any) error {
	resolved, err := parseSchema(raw)
	if err != nil {
		return err
	}
	if resolved == nil {
		return nil
	}
	return resolved.Validate(instance)
}
