// Package testutil 提供测试辅助工具
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"
)

// RedirectRoundTripper 把出站请求改写到测试服务器
// 插件调用等登记了外部地址的场景用它对接本地 mock
type RedirectRoundTripper struct {
	base *url.URL
	next http.RoundTripper
}

// RoundTrip 实现 http.RoundTripper
func (t *RedirectRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := *req
	u := *req.URL
	u.Scheme = t.base.Scheme
	u.Host = t.base.Host
	cloned.URL = &u
	return t.next.RoundTrip(&cloned)
}

// NewTestClient 创建把所有请求重定向到测试服务器的 HTTP 客户端
func NewTestClient(ts *httptest.Server) *http.Client {
	u, _ := url.Parse(ts.URL)
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &RedirectRoundTripper{
			base: u,
			next: http.DefaultTransport,
		},
	}
}
