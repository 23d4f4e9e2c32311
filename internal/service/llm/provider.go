package llm

import "fmt"

// Provider LLM 提供商，封闭集合
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderMistral   Provider = "mistral"
)

// ParseProvider 解析提供商标识；空串默认 openai
func ParseProvider(s string) (Provider, error) {
	switch s {
	case "", "openai":
		return ProviderOpenAI, nil
	case "anthropic":
		return ProviderAnthropic, nil
	case "mistral":
		return ProviderMistral, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", s)
	}
}
