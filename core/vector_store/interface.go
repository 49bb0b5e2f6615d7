package vector_store

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// VectorSearcher 向量检索能力
// 返回按粗召回相似度降序排列的文档，后续由reranker重新打分
type VectorSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]*schema.Document, error)
}

// VectorStore 向量数据库接口
type VectorStore interface {
	VectorSearcher

	// CreateCollection 创建集合（含索引并加载到内存）
	CreateCollection(ctx context.Context, collectionName string) error

	// CollectionExists 检查集合是否存在
	CollectionExists(ctx context.Context, collectionName string) (bool, error)

	// DeleteCollection 删除集合
	DeleteCollection(ctx context.Context, collectionName string) error

	// InsertVectors 插入文档分片及对应向量
	InsertVectors(ctx context.Context, collectionName string, chunks []*schema.Document, vectors [][]float32) ([]string, error)

	// DeleteByDocumentID 根据文档ID删除所有相关分片
	DeleteByDocumentID(ctx context.Context, collectionName string, documentID string) error

	// Close 关闭底层连接
	Close(ctx context.Context) error
}
