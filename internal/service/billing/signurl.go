// Package billing 嵌入签名与 Stripe 订阅计费
package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signer 嵌入 URL 的 HMAC 签名器
// 签名串固定为 "toolId|version"，密钥来自配置
type Signer struct {
	secret []byte
}

// NewSigner 创建签名器
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign 计算工具某一版本的嵌入签名
func (s *Signer) Sign(toolID string, version int) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%d", toolID, version)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify 校验签名
// 普通字符串相等而非常量时间比较，嵌入签名不是高价值秘密，维持简单
func (s *Signer) Verify(toolID string, version int, sig string) bool {
	return s.Sign(toolID, version) == sig
}
