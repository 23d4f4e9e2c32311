package handler

import (
	"errors"
	"net/http"

	"github.com/CMD-Gremlin/wobble/internal/service/generate"
	"github.com/CMD-Gremlin/wobble/internal/service/plugin"
	"github.com/CMD-Gremlin/wobble/internal/service/quota"
	"github.com/CMD-Gremlin/wobble/internal/service/tool"
	"github.com/CMD-Gremlin/wobble/internal/service/toolchain"
	"github.com/gin-gonic/gin"
)

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Raw  string `json:"raw,omitempty"`
}

// Success 成功响应 (200)
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// Created 创建成功响应 (201)
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: data})
}

// NoContent 无内容响应 (204)
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Msg: msg})
}

// Unauthorized 401 错误响应
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Code: 401, Msg: msg})
}

// Forbidden 403 错误响应
func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, ErrorResponse{Code: 403, Msg: msg})
}

// NotFound 404 错误响应
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Code: 404, Msg: msg})
}

// InternalServerError 500 错误响应
func InternalServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Msg: msg})
}

// Error 按错误类型映射状态码
//
// 配额类错误带自己的状态码（429）；生成解析失败回 500 并附带原始模型
// 输出便于排查；各服务的 NotFound 哨兵映射 404；其余一律 500
func Error(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var qe *quota.QuotaError
	if errors.As(err, &qe) {
		c.JSON(qe.Status, ErrorResponse{Code: qe.Status, Msg: qe.Message})
		return
	}

	var invalid *generate.InvalidGenerationError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code: 500,
			Msg:  "model output did not match the expected shape",
			Raw:  invalid.Raw,
		})
		return
	}

	switch {
	case errors.Is(err, tool.ErrNotFound):
		NotFound(c, "tool not found")
	case errors.Is(err, plugin.ErrNotFound):
		NotFound(c, "plugin not found")
	case errors.Is(err, toolchain.ErrNotFound):
		NotFound(c, "toolchain not found")
	default:
		InternalServerError(c, err.Error())
	}
}
