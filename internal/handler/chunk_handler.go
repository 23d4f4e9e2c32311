package handler

import (
	"strconv"

	"github.com/CMD-Gremlin/wobble/internal/service"
	"github.com/gin-gonic/gin"
)

// ChunkHandler 代码块检索处理器
type ChunkHandler struct {
	svc *service.Services
}

// NewChunkHandler 创建代码块检索处理器
func NewChunkHandler(svc *service.Services) *ChunkHandler {
	return &ChunkHandler{svc: svc}
}

// Search 语义检索已索引的代码块
func (h *ChunkHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		BadRequest(c, "query parameter q is required")
		return
	}
	if h.svc.Index == nil {
		InternalServerError(c, "vector index is not configured")
		return
	}

	topK, _ := strconv.Atoi(c.DefaultQuery("top_k", "10"))
	docs, err := h.svc.Index.Search(c.Request.Context(), query, topK)
	if err != nil {
		Error(c, err)
		return
	}

	results := make([]gin.H, 0, len(docs))
	for _, doc := range docs {
		item := gin.H{
			"id":      doc.ID,
			"content": doc.Content,
			"score":   doc.Score(),
		}
		if doc.MetaData != nil {
			item["meta"] = doc.MetaData
		}
		results = append(results, item)
	}

	Success(c, gin.H{"results": results, "total": len(results)})
}
