package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/CMD-Gremlin/wobble/internal/model"
	"github.com/CMD-Gremlin/wobble/internal/service/llm"
	"github.com/cloudwego/eino/schema"
)

// ========== 测试用假件 ==========

type fakeAdapter struct {
	reply   string
	err     error
	lastReq *llm.ChatRequest
}

func (f *fakeAdapter) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{
		Result: f.reply,
		Usage:  &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 20},
	}, nil
}

type fakeSaver struct {
	err   error
	saved *Result
}

func (f *fakeSaver) SaveGenerated(ctx context.Context, userID string, res *Result) (*model.Tool, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.saved = res
	return &model.Tool{ID: "tool-1", UserID: userID, Name: res.ToolName, HTML: res.HTML, Script: res.Script}, nil
}

func newTestService(reply string) (*Service, *fakeAdapter, *fakeSaver) {
	a := &fakeAdapter{reply: reply}
	s := &fakeSaver{}
	return NewService(a, "gpt-4o-mini", s), a, s
}

// ========== 生成测试 ==========

func TestGenerate_StrictJSON(t *testing.T) {
	svc, a, _ := newTestService(`{"tool_name":"counter","html":"<div></div>","script":"let n=0;"}`)
	res, usage, err := svc.Generate(context.Background(), "sk-test", "a counter", nil)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if res.ToolName != "counter" || res.HTML != "<div></div>" || res.Script != "let n=0;" {
		t.Errorf("result = %+v", res)
	}
	if usage == nil || usage.PromptTokens != 10 || usage.CompletionTokens != 20 {
		t.Errorf("usage = %+v", usage)
	}
	if a.lastReq.Temperature == nil || *a.lastReq.Temperature != 0 {
		t.Error("generation must run at temperature 0")
	}
}

func TestGenerate_NonJSONIsInvalid(t *testing.T) {
	svc, _, _ := newTestService("Sure! Here is your tool: <div></div>")
	_, usage, err := svc.Generate(context.Background(), "sk-test", "a counter", nil)

	var invalid *InvalidGenerationError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidGenerationError", err)
	}
	if !strings.Contains(invalid.Raw, "Sure!") {
		t.Error("error must carry the raw model output")
	}
	if usage == nil {
		t.Error("usage must be returned even when parsing fails")
	}
}

func TestGenerate_MissingKeyIsInvalid(t *testing.T) {
	svc, _, _ := newTestService(`{"tool_name":"x","html":"<div></div>"}`)
	if _, _, err := svc.Generate(context.Background(), "sk-test", "p", nil); err == nil {
		t.Error("missing script key must fail")
	}
}

func TestGenerate_ExtraKeyIsInvalid(t *testing.T) {
	svc, _, _ := newTestService(`{"tool_name":"x","html":"a","script":"b","notes":"extra"}`)
	if _, _, err := svc.Generate(context.Background(), "sk-test", "p", nil); err == nil {
		t.Error("extra keys must fail the strict shape check")
	}
}

func TestGenerate_PluginContractInSystemPrompt(t *testing.T) {
	svc, a, _ := newTestService(`{"tool_name":"x","html":"a","script":"b"}`)
	plugin := &model.Plugin{
		Name:        "weather",
		Description: "current weather by city",
		APIURL:      "https://api.example.com/weather",
		Method:      "GET",
		InputSchema: `{"type":"object"}`,
	}
	if _, _, err := svc.Generate(context.Background(), "sk-test", "p", plugin); err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	system := a.lastReq.Messages[0].Content
	for _, want := range []string{"weather", "https://api.example.com/weather", "GET"} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt missing plugin contract part %q", want)
		}
	}
}

func TestGenerate_AdapterErrorPropagates(t *testing.T) {
	a := &fakeAdapter{err: fmt.Errorf("connection refused")}
	svc := NewService(a, "gpt-4o-mini", &fakeSaver{})
	if _, _, err := svc.Generate(context.Background(), "sk-test", "p", nil); err == nil {
		t.Error("transport error must propagate")
	}
}

// ========== 生成并持久化测试 ==========

func TestGenerateTool_Persists(t *testing.T) {
	svc, _, saver := newTestService(`{"tool_name":"counter","html":"<div></div>","script":"let n=0;"}`)
	tool, usage, err := svc.GenerateTool(context.Background(), "sk-test", "user-1", "a counter", nil)
	if err != nil {
		t.Fatalf("GenerateTool error: %v", err)
	}
	if tool.UserID != "user-1" || tool.Name != "counter" {
		t.Errorf("tool = %+v", tool)
	}
	if saver.saved == nil {
		t.Error("result must be passed to the saver")
	}
	if usage == nil {
		t.Error("usage missing")
	}
}

func TestGenerateTool_SaveErrorPropagates(t *testing.T) {
	a := &fakeAdapter{reply: `{"tool_name":"x","html":"a","script":"b"}`}
	svc := NewService(a, "gpt-4o-mini", &fakeSaver{err: fmt.Errorf("db down")})
	if _, _, err := svc.GenerateTool(context.Background(), "sk-test", "user-1", "p", nil); err == nil {
		t.Error("save failure must propagate")
	}
}

// ========== 修补解析测试 ==========

func patchTool() *model.Tool {
	return &model.Tool{ID: "tool-1", HTML: "<div></div>", Script: "let n=0;"}
}

func TestPatch_StrictJSON(t *testing.T) {
	svc, a, _ := newTestService(`{"html":"<div>v2</div>","script":"let n=1;"}`)
	res, _, err := svc.Patch(context.Background(), "sk-test", patchTool(), "bump the counter")
	if err != nil {
		t.Fatalf("Patch error: %v", err)
	}
	if res.HTML != "<div>v2</div>" || res.Script != "let n=1;" {
		t.Errorf("result = %+v", res)
	}
	user := a.lastReq.Messages[1].Content
	if !strings.Contains(user, "<div></div>") || !strings.Contains(user, "bump the counter") {
		t.Error("patch prompt must include the existing code and the change request")
	}
}

func TestPatch_WrapperTextFallback(t *testing.T) {
	svc, _, _ := newTestService("Here is the updated tool:\n```json\n{\"html\":\"<p>ok</p>\",\"script\":\"x()\"}\n```\nEnjoy!")
	res, _, err := svc.Patch(context.Background(), "sk-test", patchTool(), "change")
	if err != nil {
		t.Fatalf("brace extraction should tolerate wrapper text: %v", err)
	}
	if res.HTML != "<p>ok</p>" {
		t.Errorf("html = %q", res.HTML)
	}
}

func TestPatch_RepairedJSON(t *testing.T) {
	// 缺引号的键名靠 jsonrepair 救回
	svc, _, _ := newTestService(`{html: "<p>ok</p>", script: "x()"}`)
	res, _, err := svc.Patch(context.Background(), "sk-test", patchTool(), "change")
	if err != nil {
		t.Fatalf("jsonrepair fallback failed: %v", err)
	}
	if res.Script != "x()" {
		t.Errorf("script = %q", res.Script)
	}
}

func TestPatch_UnparseableIsInvalid(t *testing.T) {
	svc, _, _ := newTestService("I could not change the tool, sorry.")
	_, _, err := svc.Patch(context.Background(), "sk-test", patchTool(), "change")
	var invalid *InvalidGenerationError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidGenerationError", err)
	}
}
