package generate

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// parseGeneration 严格解析生成输出
// 必须是仅含 tool_name/html/script 三键的 JSON 对象，不做任何修复
func parseGeneration(raw string) (*Result, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, &InvalidGenerationError{Raw: raw}
	}
	if len(keys) != 3 {
		return nil, &InvalidGenerationError{Raw: raw}
	}
	for _, k := range []string{"tool_name", "html", "script"} {
		if _, ok := keys[k]; !ok {
			return nil, &InvalidGenerationError{Raw: raw}
		}
	}

	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, &InvalidGenerationError{Raw: raw}
	}
	if res.ToolName == "" {
		return nil, &InvalidGenerationError{Raw: raw}
	}
	return &res, nil
}

// parsePatch 宽松解析修补输出
// 三段式：严格解析 → 截取首尾大括号之间再解析 → jsonrepair 修复后解析；
// 全部失败才算 InvalidGenerationError
func parsePatch(raw string) (*PatchResult, error) {
	if res, ok := tryPatch(raw); ok {
		return res, nil
	}

	// 模型常在 JSON 外包说明文字或 markdown 围栏，截出大括号段再试
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		if res, ok := tryPatch(raw[start : end+1]); ok {
			return res, nil
		}
		// 最后用 jsonrepair 强力修复
		if repaired, err := jsonrepair.JSONRepair(raw[start : end+1]); err == nil {
			if res, ok := tryPatch(repaired); ok {
				return res, nil
			}
		}
	}

	return nil, &InvalidGenerationError{Raw: raw}
}

func tryPatch(s string) (*PatchResult, bool) {
	var res PatchResult
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		return nil, false
	}
	if res.HTML == "" && res.Script == "" {
		return nil, false
	}
	return &res, true
}
