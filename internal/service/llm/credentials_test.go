package llm

import (
	"testing"

	"github.com/CMD-Gremlin/wobble/internal/config"
)

// ========== 凭证解析测试 ==========

func newTestResolver() *Resolver {
	return NewResolver(&config.AIConfig{
		OpenAI:    config.ProviderConfig{APIKey: "sk-openai"},
		Anthropic: config.ProviderConfig{APIKey: "sk-anthropic"},
		Mistral:   config.ProviderConfig{APIKey: "sk-mistral"},
	})
}

func TestKeyFor_HeaderWins(t *testing.T) {
	r := newTestResolver()
	if k := r.KeyFor("caller-key", ProviderOpenAI); k != "caller-key" {
		t.Errorf("KeyFor = %q, caller header must win", k)
	}
}

func TestKeyFor_HeaderTrimmed(t *testing.T) {
	r := newTestResolver()
	if k := r.KeyFor("  caller-key  ", ProviderOpenAI); k != "caller-key" {
		t.Errorf("KeyFor = %q, header should be trimmed", k)
	}
}

func TestKeyFor_BlankHeaderFallsBack(t *testing.T) {
	r := newTestResolver()
	if k := r.KeyFor("   ", ProviderAnthropic); k != "sk-anthropic" {
		t.Errorf("KeyFor = %q, blank header should fall back to config", k)
	}
}

func TestKeyFor_PerProvider(t *testing.T) {
	r := newTestResolver()
	cases := map[Provider]string{
		ProviderOpenAI:    "sk-openai",
		ProviderAnthropic: "sk-anthropic",
		ProviderMistral:   "sk-mistral",
	}
	for p, want := range cases {
		if k := r.KeyFor("", p); k != want {
			t.Errorf("KeyFor(%s) = %q, want %q", p, k, want)
		}
	}
}

func TestKeyFor_UnknownProviderEmpty(t *testing.T) {
	r := newTestResolver()
	if k := r.KeyFor("", Provider("cohere")); k != "" {
		t.Errorf("KeyFor = %q, unknown provider must be empty", k)
	}
}

// ========== Provider 测试 ==========

func TestParseProvider(t *testing.T) {
	if p, err := ParseProvider(""); err != nil || p != ProviderOpenAI {
		t.Errorf("empty provider should default to openai, got %v, %v", p, err)
	}
	if p, err := ParseProvider("mistral"); err != nil || p != ProviderMistral {
		t.Errorf("ParseProvider(mistral) = %v, %v", p, err)
	}
	if _, err := ParseProvider("cohere"); err == nil {
		t.Error("unsupported provider should error")
	}
}
