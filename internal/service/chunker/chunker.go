// Package chunker 将生成的 HTML+脚本切分为可索引的内容寻址块
//
// 顶层的 function / class 声明各成一块，id 为块文本的 sha256，
// 相同代码得到相同 id：索引和删除只要从同一份代码出发就能对上
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// 块类型
const (
	KindFunction = "function_declaration"
	KindClass    = "class_declaration"
	KindFile     = "file"
)

// DefaultFile 未指定来源时的文件标签
const DefaultFile = "widget.html"

// Meta 块的来源信息
type Meta struct {
	File string `json:"file"`
	Kind string `json:"kind"`
	Line int    `json:"line"`
}

// Chunk 内容寻址的代码块
type Chunk struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Meta Meta   `json:"meta"`
}

// Compose 工具代码的拼接约定，索引和删除共用同一份拼接
func Compose(html, script string) string {
	return html + "\n<script>\n" + script + "\n</script>"
}

// IDs 提取块 id 列表
func IDs(chunks []Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}

// Split 将源码切分为块
// 找不到任何顶层声明时，整个输入作为单个整文件块返回
func Split(source, file string) []Chunk {
	if file == "" {
		file = DefaultFile
	}

	var chunks []Chunk
	n := len(source)
	depth := 0

	for i := 0; i < n; {
		switch {
		case startsLineComment(source, i):
			i = skipLineComment(source, i)
		case startsBlockComment(source, i):
			i = skipBlockComment(source, i)
		case isQuote(source[i]):
			i = skipString(source, i)
		case source[i] == '{':
			depth++
			i++
		case source[i] == '}':
			if depth > 0 {
				depth--
			}
			i++
		default:
			if depth == 0 {
				if kind, ok := declKindAt(source, i); ok {
					if end := declEnd(source, i); end > i {
						text := source[i:end]
						chunks = append(chunks, Chunk{
							ID:   hashOf(text),
							Code: text,
							Meta: Meta{File: file, Kind: kind, Line: lineOf(source, i)},
						})
						i = end
						continue
					}
				}
			}
			i++
		}
	}

	if len(chunks) == 0 {
		chunks = append(chunks, Chunk{
			ID:   hashOf(source),
			Code: source,
			Meta: Meta{File: file, Kind: KindFile, Line: 0},
		})
	}

	return chunks
}

// hashOf 块文本的 sha256 十六进制
func hashOf(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// lineOf 起始位置所在行（从 0 开始）
func lineOf(source string, pos int) int {
	return strings.Count(source[:pos], "\n")
}

// declKindAt 判断位置 i 是否为顶层声明的起点
func declKindAt(source string, i int) (string, bool) {
	if i > 0 && isIdentByte(source[i-1]) {
		return "", false
	}
	if hasKeyword(source, i, "function") {
		return KindFunction, true
	}
	if hasKeyword(source, i, "class") {
		return KindClass, true
	}
	// async function 也算函数声明
	if hasKeyword(source, i, "async") {
		j := i + len("async")
		for j < len(source) && (source[j] == ' ' || source[j] == '\t') {
			j++
		}
		if hasKeyword(source, j, "function") {
			return KindFunction, true
		}
	}
	return "", false
}

// declEnd 从声明起点扫到函数/类体右大括号之后；失败返回 -1
func declEnd(source string, start int) int {
	n := len(source)
	depth := 0
	opened := false

	for i := start; i < n; {
		switch {
		case startsLineComment(source, i):
			i = skipLineComment(source, i)
		case startsBlockComment(source, i):
			i = skipBlockComment(source, i)
		case isQuote(source[i]):
			i = skipString(source, i)
		case source[i] == '{':
			depth++
			opened = true
			i++
		case source[i] == '}':
			depth--
			i++
			if opened && depth == 0 {
				return i
			}
		default:
			// 声明头部不应跨过分号或标签边界
			if !opened && (source[i] == ';' || source[i] == '<') {
				return -1
			}
			i++
		}
	}
	return -1
}

func hasKeyword(source string, i int, kw string) bool {
	if !strings.HasPrefix(source[i:], kw) {
		return false
	}
	end := i + len(kw)
	return end >= len(source) || !isIdentByte(source[end])
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isQuote(c byte) bool {
	return c == '"' || c == '\'' || c == '`'
}

func startsLineComment(source string, i int) bool {
	return source[i] == '/' && i+1 < len(source) && source[i+1] == '/'
}

func startsBlockComment(source string, i int) bool {
	return source[i] == '/' && i+1 < len(source) && source[i+1] == '*'
}

func skipLineComment(source string, i int) int {
	for i < len(source) && source[i] != '\n' {
		i++
	}
	return i
}

func skipBlockComment(source string, i int) int {
	end := strings.Index(source[i+2:], "*/")
	if end < 0 {
		return len(source)
	}
	return i + 2 + end + 2
}

// skipString 跳过字符串字面量（含转义）
func skipString(source string, i int) int {
	quote := source[i]
	i++
	for i < len(source) {
		if source[i] == '\\' {
			i += 2
			continue
		}
		if source[i] == quote {
			return i + 1
		}
		// 普通字符串不跨行；模板串可以
		if source[i] == '\n' && quote != '`' {
			return i
		}
		i++
	}
	return i
}
