// Package generate 自然语言描述到微工具代码的生成编排
package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/CMD-Gremlin/wobble/internal/model"
	"github.com/CMD-Gremlin/wobble/internal/service/llm"
	"github.com/cloudwego/eino/schema"
)

// 生成温度固定为 0，保证可复现
var zeroTemperature float32 = 0

// Result 一次生成的结果
type Result struct {
	ToolName string `json:"tool_name"`
	HTML     string `json:"html"`
	Script   string `json:"script"`
}

// PatchResult 一次修补的结果
type PatchResult struct {
	HTML   string `json:"html"`
	Script string `json:"script"`
}

// InvalidGenerationError 模型输出不符合约定的 JSON 形状
// Raw 保留原始输出便于排查；不自动重试，由调用方决定是否重发
type InvalidGenerationError struct {
	Raw string
}

// Error 实现 error 接口
func (e *InvalidGenerationError) Error() string {
	return fmt.Sprintf("invalid generation output: %s", e.Raw)
}

// ToolSaver 生成结果的持久化入口
type ToolSaver interface {
	SaveGenerated(ctx context.Context, userID string, res *Result) (*model.Tool, error)
}

// Service 生成编排服务
type Service struct {
	adapter llm.Adapter
	model   string
	tools   ToolSaver
}

// NewService 创建生成服务
func NewService(adapter llm.Adapter, modelName string, tools ToolSaver) *Service {
	return &Service{
		adapter: adapter,
		model:   modelName,
		tools:   tools,
	}
}

// Generate 根据描述生成工具代码
// 要求模型整段输出为仅含 tool_name/html/script 三键的严格 JSON，
// 不满足则返回 InvalidGenerationError，不修复不重试
func (s *Service) Generate(ctx context.Context, key, prompt string, plugin *model.Plugin) (*Result, *schema.TokenUsage, error) {
	resp, err := s.adapter.Chat(ctx, &llm.ChatRequest{
		Key:   key,
		Model: s.model,
		Messages: []*schema.Message{
			schema.SystemMessage(generateSystemPrompt(plugin)),
			schema.UserMessage(prompt),
		},
		Temperature: &zeroTemperature,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to call model: %w", err)
	}

	res, err := parseGeneration(resp.Result)
	if err != nil {
		return nil, resp.Usage, err
	}
	return res, resp.Usage, nil
}

// GenerateTool 生成并持久化工具
// upsert 按 (user_id, name)，初始可见性 private，并追加版本快照
func (s *Service) GenerateTool(ctx context.Context, key, userID, prompt string, plugin *model.Plugin) (*model.Tool, *schema.TokenUsage, error) {
	res, usage, err := s.Generate(ctx, key, prompt, plugin)
	if err != nil {
		return nil, usage, err
	}

	tool, err := s.tools.SaveGenerated(ctx, userID, res)
	if err != nil {
		return nil, usage, fmt.Errorf("failed to save tool: %w", err)
	}
	return tool, usage, nil
}

// Patch 根据自然语言修改请求修补既有工具代码
// 模型包一层废话是常态，解析采用宽松策略（见 parsePatch）
func (s *Service) Patch(ctx context.Context, key string, tool *model.Tool, userRequest string) (*PatchResult, *schema.TokenUsage, error) {
	resp, err := s.adapter.Chat(ctx, &llm.ChatRequest{
		Key:   key,
		Model: s.model,
		Messages: []*schema.Message{
			schema.SystemMessage(patchSystemPrompt),
			schema.UserMessage(patchUserPrompt(tool, userRequest)),
		},
		Temperature: &zeroTemperature,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to call model: %w", err)
	}

	res, err := parsePatch(resp.Result)
	if err != nil {
		return nil, resp.Usage, err
	}
	return res, resp.Usage, nil
}

const generateSystemBase = `You are a generator of small self-contained web tools.
Given a description, produce an HTML fragment and a JavaScript snippet implementing it.
Respond with a single JSON object and nothing else, with exactly these keys:
  "tool_name": a short snake_case name for the tool
  "html": the HTML fragment (no <html> or <body> wrapper)
  "script": the JavaScript code (no <script> tags)
Do not include markdown fences, comments or any text outside the JSON object.`

const patchSystemPrompt = `You are modifying an existing small web tool.
Apply the requested change to the given HTML and script.
Respond with a single JSON object and nothing else, with exactly these keys:
  "html": the full updated HTML fragment
  "script": the full updated JavaScript code
Do not include markdown fences or any text outside the JSON object.`

// generateSystemPrompt 构建系统指令，带上可选的插件契约
func generateSystemPrompt(plugin *model.Plugin) string {
	if plugin == nil {
		return generateSystemBase
	}
	var b strings.Builder
	b.WriteString(generateSystemBase)
	b.WriteString("\n\nThe tool may call this external API from its script:\n")
	fmt.Fprintf(&b, "  name: %s\n", plugin.Name)
	fmt.Fprintf(&b, "  description: %s\n", plugin.Description)
	fmt.Fprintf(&b, "  endpoint: %s %s\n", plugin.Method, plugin.APIURL)
	fmt.Fprintf(&b, "  input schema: %s\n", plugin.InputSchema)
	fmt.Fprintf(&b, "  output schema: %s\n", plugin.OutputSchema)
	return b.String()
}

// patchUserPrompt 构建修补请求，附上存量代码
func patchUserPrompt(tool *model.Tool, userRequest string) string {
	var b strings.Builder
	b.WriteString("Current HTML:\n")
	b.WriteString(tool.HTML)
	b.WriteString("\n\nCurrent script:\n")
	b.WriteString(tool.Script)
	b.WriteString("\n\nRequested change:\n")
	b.WriteString(userRequest)
	return b.String()
}
