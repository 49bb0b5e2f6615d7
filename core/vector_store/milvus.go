package vector_store

import (
	"context"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/google/uuid"
	"github.com/kemet-ai/kemet/core/common"
	"github.com/kemet-ai/kemet/core/config"
	"github.com/kemet-ai/kemet/core/errors"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

// 集合字段名
const (
	FieldID         = "id"
	FieldText       = "text"
	FieldVector     = "vector"
	FieldDocumentID = "document_id"
	FieldMetadata   = "metadata"
)

// MilvusStore Milvus向量数据库实现
type MilvusStore struct {
	client     *milvusclient.Client
	database   string
	collection string
	embedder   *common.CustomEmbedder
	dimension  int
	metricType entity.MetricType
}

// InitializeMilvusStore 连接Milvus并构造检索用的store
// 查询向量化复用embedding配置，保证与入库向量同一模型同一维度
func InitializeMilvusStore(ctx context.Context, conf *config.RetrieverConfig) (*MilvusStore, error) {
	address := g.Cfg().MustGet(ctx, "milvus.address", "").String()
	database := g.Cfg().MustGet(ctx, "milvus.database", "default").String()
	collection := g.Cfg().MustGet(ctx, "milvus.collection", "chronicle_chunks").String()

	if address == "" {
		return nil, errors.New(errors.ErrVectorStoreInit, "milvus.address is required but not found in config file")
	}

	g.Log().Infof(ctx, "Connecting to Milvus at: %s, database: %s", address, database)

	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address: address,
		DBName:  database,
	})
	if err != nil {
		return nil, errors.Newf(errors.ErrVectorStoreInit, "failed to create milvus client (address: %s, database: %s): %v", address, database, err)
	}

	embedder, err := common.NewEmbedding(ctx, conf)
	if err != nil {
		return nil, err
	}

	return &MilvusStore{
		client:     client,
		database:   database,
		collection: collection,
		embedder:   embedder,
		dimension:  conf.Dimension,
		metricType: parseMetricType(conf.MetricType),
	}, nil
}

func parseMetricType(s string) entity.MetricType {
	switch strings.ToUpper(s) {
	case "L2":
		return entity.L2
	case "IP":
		return entity.IP
	default:
		return entity.COSINE
	}
}

// Search 向量相似度检索
// 将查询向量化后搜索集合，结果按相似度降序，去重后返回
func (m *MilvusStore) Search(ctx context.Context, query string, topK int) ([]*schema.Document, error) {
	vectors, err := m.embedder.EmbedStrings(ctx, []string{query}, m.dimension)
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, errors.Newf(errors.ErrEmbeddingFailed, "invalid return length of vector, got=%d, expected=1", len(vectors))
	}

	entityVectors := []entity.Vector{entity.FloatVector(vectors[0])}

	searchOpt := milvusclient.NewSearchOption(m.collection, topK, entityVectors).
		WithANNSField(FieldVector).
		WithOutputFields(FieldID, FieldText, FieldDocumentID, FieldMetadata).
		WithConsistencyLevel(entity.ClBounded)

	results, err := m.client.Search(ctx, searchOpt)
	if err != nil {
		return nil, errors.Newf(errors.ErrVectorSearch, "search has error: %v", err)
	}

	if len(results) == 0 {
		return []*schema.Document{}, nil
	}

	docs, err := convertResultsToDocuments(results[0].Fields, results[0].Scores)
	if err != nil {
		return nil, err
	}

	// 按ID去重，Milvus在分片合并时偶尔返回重复命中
	docs = common.RemoveDuplicates(docs, func(doc *schema.Document) string {
		return doc.ID
	})

	g.Log().Debugf(ctx, "vector search done: query_len=%d, topK=%d, hits=%d", len(query), topK, len(docs))
	return docs, nil
}

// convertResultsToDocuments 将搜索结果列数据转换为文档
func convertResultsToDocuments(columns []column.Column, scores []float32) ([]*schema.Document, error) {
	if len(columns) == 0 {
		return []*schema.Document{}, nil
	}

	numDocs := columns[0].Len()
	result := make([]*schema.Document, numDocs)
	for i := range result {
		result[i] = &schema.Document{
			MetaData: make(map[string]any),
		}
	}

	for i := 0; i < numDocs && i < len(scores); i++ {
		result[i].WithScore(float64(scores[i]))
	}

	for _, col := range columns {
		switch col.Name() {
		case FieldID:
			for i := 0; i < col.Len(); i++ {
				val, err := col.Get(i)
				if err != nil {
					return nil, errors.Newf(errors.ErrVectorSearch, "failed to get id: %v", err)
				}
				if str, ok := val.(string); ok {
					result[i].ID = str
				}
			}
		case FieldText:
			for i := 0; i < col.Len(); i++ {
				val, err := col.Get(i)
				if err != nil {
					return nil, errors.Newf(errors.ErrVectorSearch, "failed to get text: %v", err)
				}
				if str, ok := val.(string); ok {
					result[i].Content = str
				}
			}
		case FieldMetadata:
			for i := 0; i < col.Len(); i++ {
				val, err := col.Get(i)
				if err != nil || val == nil {
					continue
				}
				switch v := val.(type) {
				case string:
					var metadata map[string]any
					if err := sonic.Unmarshal([]byte(v), &metadata); err == nil {
						for k, mv := range metadata {
							result[i].MetaData[k] = mv
						}
					}
				case []byte:
					var metadata map[string]any
					if err := sonic.Unmarshal(v, &metadata); err == nil {
						for k, mv := range metadata {
							result[i].MetaData[k] = mv
						}
					}
				}
			}
		case FieldDocumentID:
			for i := 0; i < col.Len(); i++ {
				val, err := col.Get(i)
				if err != nil {
					continue
				}
				if str, ok := val.(string); ok {
					result[i].MetaData[FieldDocumentID] = str
				}
			}
		default:
			for i := 0; i < col.Len(); i++ {
				val, err := col.Get(i)
				if err != nil {
					continue
				}
				result[i].MetaData[col.Name()] = val
			}
		}
	}

	return result, nil
}

// CreateCollection 创建集合并建立HNSW索引
func (m *MilvusStore) CreateCollection(ctx context.Context, collectionName string) error {
	collSchema := &entity.Schema{
		CollectionName: collectionName,
		Description:    "存储编年史文档分片及其向量",
		AutoID:         false,
		Fields: []*entity.Field{
			entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true),
			entity.NewField().WithName(FieldText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535),
			entity.NewField().WithName(FieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(m.dimension)),
			entity.NewField().WithName(FieldDocumentID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64),
			entity.NewField().WithName(FieldMetadata).WithDataType(entity.FieldTypeJSON),
		},
	}

	err := m.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(collectionName, collSchema).WithIndexOptions(
		milvusclient.NewCreateIndexOption(collectionName, FieldVector, index.NewHNSWIndex(m.metricType, 64, 128))))
	if err != nil {
		return errors.Newf(errors.ErrVectorStoreInit, "failed to create Milvus collection: %v", err)
	}

	_, err = m.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(collectionName))
	if err != nil {
		return errors.Newf(errors.ErrVectorStoreInit, "failed to load Milvus collection: %v", err)
	}

	g.Log().Infof(ctx, "Collection '%s' created with dimension %d, index built and loaded", collectionName, m.dimension)
	return nil
}

// CollectionExists 检查集合是否存在
func (m *MilvusStore) CollectionExists(ctx context.Context, collectionName string) (bool, error) {
	has, err := m.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(collectionName))
	if err != nil {
		return false, errors.Newf(errors.ErrVectorStoreInit, "failed to check if collection exists: %v", err)
	}
	return has, nil
}

// DeleteCollection 删除集合
func (m *MilvusStore) DeleteCollection(ctx context.Context, collectionName string) error {
	err := m.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(collectionName))
	if err != nil {
		return errors.Newf(errors.ErrVectorStoreInit, "failed to delete collection: %v", err)
	}
	g.Log().Infof(ctx, "Collection '%s' deleted", collectionName)
	return nil
}

// InsertVectors 插入文档分片及对应向量
func (m *MilvusStore) InsertVectors(ctx context.Context, collectionName string, chunks []*schema.Document, vectors [][]float32) ([]string, error) {
	if len(chunks) != len(vectors) {
		return nil, errors.Newf(errors.ErrInvalidParameter, "chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}

	ids := make([]string, len(chunks))
	texts := make([]string, len(chunks))
	documentIds := make([]string, len(chunks))
	metadataList := make([][]byte, len(chunks))

	for idx, chunk := range chunks {
		if len(chunk.ID) == 0 {
			chunk.ID = uuid.New().String()
		}
		ids[idx] = chunk.ID
		texts[idx] = truncateString(chunk.Content, 65535)

		docID := ""
		if chunk.MetaData != nil {
			if v, ok := chunk.MetaData[FieldDocumentID].(string); ok {
				docID = v
			}
		}
		documentIds[idx] = docID

		metaBytes, err := marshalMetadata(chunk.MetaData)
		if err != nil {
			return nil, errors.Newf(errors.ErrInvalidParameter, "failed to marshal metadata: %v", err)
		}
		metadataList[idx] = metaBytes
	}

	columns := []column.Column{
		column.NewColumnVarChar(FieldID, ids),
		column.NewColumnVarChar(FieldText, texts),
		column.NewColumnFloatVector(FieldVector, m.dimension, vectors),
		column.NewColumnVarChar(FieldDocumentID, documentIds),
		column.NewColumnJSONBytes(FieldMetadata, metadataList),
	}

	result, err := m.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(collectionName, columns...))
	if err != nil {
		return nil, errors.Newf(errors.ErrVectorStoreInit, "failed to insert vectors: %v", err)
	}

	g.Log().Infof(ctx, "Successfully inserted %d vectors into collection '%s'", result.InsertCount, collectionName)
	return ids, nil
}

// DeleteByDocumentID 根据文档ID删除所有相关分片
func (m *MilvusStore) DeleteByDocumentID(ctx context.Context, collectionName string, documentID string) error {
	// 校验UUID格式，防止filter表达式注入
	if _, err := uuid.Parse(documentID); err != nil {
		return errors.Newf(errors.ErrInvalidParameter, "invalid document ID format: %s (must be valid UUID)", documentID)
	}

	filterExpr := FieldDocumentID + ` == "` + documentID + `"`
	result, err := m.client.Delete(ctx, milvusclient.NewDeleteOption(collectionName).WithExpr(filterExpr))
	if err != nil {
		return errors.Newf(errors.ErrVectorStoreInit, "failed to delete document %s: %v", documentID, err)
	}

	g.Log().Infof(ctx, "Delete operation completed for document %s, affected rows: %d", documentID, result.DeleteCount)
	return nil
}

// Close 关闭底层连接
func (m *MilvusStore) Close(ctx context.Context) error {
	return m.client.Close(ctx)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if len(metadata) == 0 {
		return []byte("{}"), nil
	}
	return sonic.Marshal(metadata)
}
