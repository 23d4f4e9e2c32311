// Package vector 提供代码块的 ES8 向量索引
// 使用 eino-ext 官方 es8 Indexer/Retriever，块 id 即 ES 文档 _id，
// 内容寻址保证删除工具时重算的 id 与索引时一致
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/CMD-Gremlin/wobble/internal/config"
	"github.com/CMD-Gremlin/wobble/internal/service/chunker"
	es8indexer "github.com/cloudwego/eino-ext/components/indexer/es8"
	es8retriever "github.com/cloudwego/eino-ext/components/retriever/es8"
	"github.com/cloudwego/eino-ext/components/retriever/es8/search_mode"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Index 代码块索引
type Index struct {
	indexer   *es8indexer.Indexer
	retriever *es8retriever.Retriever
	client    *elasticsearch.Client
	indexName string
	dims      int
}

// New 创建代码块索引
func New(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) (*Index, error) {
	esCfg := cfg.Elastic
	if esCfg.Host == "" {
		return nil, fmt.Errorf("elasticsearch host not configured")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esCfg.Host},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create es client: %w", err)
	}

	indexName := esCfg.IndexPrefix + "_chunks"

	idx, err := es8indexer.NewIndexer(ctx, &es8indexer.IndexerConfig{
		Client:    client,
		Index:     indexName,
		BatchSize: 10,
		Embedding: embedder,
		DocumentToFields: func(ctx context.Context, doc *schema.Document) (map[string]es8indexer.FieldValue, error) {
			return documentToESFields(doc), nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create es8 indexer: %w", err)
	}

	ret, err := es8retriever.NewRetriever(ctx, &es8retriever.RetrieverConfig{
		Client:     client,
		Index:      indexName,
		TopK:       10,
		SearchMode: search_mode.SearchModeDenseVectorSimilarity(search_mode.DenseVectorSimilarityTypeCosineSimilarity, "content_vector"),
		Embedding:  embedder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create es8 retriever: %w", err)
	}

	return &Index{
		indexer:   idx,
		retriever: ret,
		client:    client,
		indexName: indexName,
		dims:      cfg.AI.Embedding.Dimensions,
	}, nil
}

// Store 索引一批代码块，返回写入的文档 id
func (x *Index) Store(ctx context.Context, chunks []chunker.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	docs := make([]*schema.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = &schema.Document{
			ID:      c.ID,
			Content: c.Code,
			MetaData: map[string]any{
				"file": c.Meta.File,
				"kind": c.Meta.Kind,
				"line": c.Meta.Line,
			},
		}
	}
	return x.indexer.Store(ctx, docs)
}

// DeleteByIDs 按文档 id 删除；不存在的 id 跳过
func (x *Index) DeleteByIDs(ctx context.Context, ids []string) error {
	for _, id := range ids {
		res, err := x.client.Delete(x.indexName, id, x.client.Delete.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("failed to delete chunk %s: %w", id, err)
		}
		if res.IsError() && res.StatusCode != 404 {
			res.Body.Close()
			return fmt.Errorf("failed to delete chunk %s: %s", id, res.String())
		}
		res.Body.Close()
	}
	return nil
}

// Search 语义检索代码块
func (x *Index) Search(ctx context.Context, query string, topK int) ([]*schema.Document, error) {
	if topK <= 0 {
		topK = 10
	}
	return x.retriever.Retrieve(ctx, query, retriever.WithTopK(topK))
}

// EnsureIndex 确保索引存在（如不存在则创建）
func (x *Index) EnsureIndex(ctx context.Context) error {
	res, err := x.client.Indices.Exists([]string{x.indexName})
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	dims := x.dims
	if dims == 0 {
		dims = 1536 // 默认 OpenAI 维度
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"content": map[string]interface{}{
					"type": "text",
				},
				"content_vector": map[string]interface{}{
					"type":       "dense_vector",
					"dims":       dims,
					"index":      true,
					"similarity": "cosine",
				},
				"file": map[string]interface{}{
					"type": "keyword",
				},
				"kind": map[string]interface{}{
					"type": "keyword",
				},
				"line": map[string]interface{}{
					"type": "integer",
				},
			},
		},
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
	}

	mappingData, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	req := esapi.IndicesCreateRequest{
		Index: x.indexName,
		Body:  bytes.NewReader(mappingData),
	}

	createRes, err := req.Do(ctx, x.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	log.Printf("Index %s created with %d dimensions", x.indexName, dims)
	return nil
}

// documentToESFields 将 Eino Document 转换为 ES 字段
func documentToESFields(doc *schema.Document) map[string]es8indexer.FieldValue {
	fields := make(map[string]es8indexer.FieldValue)

	// 内容字段（需要向量化）
	fields["content"] = es8indexer.FieldValue{
		Value:    doc.Content,
		EmbedKey: "content_vector",
	}

	// 元数据字段直接存储
	if doc.MetaData != nil {
		for k, v := range doc.MetaData {
			fields[k] = es8indexer.FieldValue{Value: v}
		}
	}

	return fields
}
