package chat

import (
	"context"

	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/util/gconv"
	"github.com/google/uuid"
	"github.com/kemet-ai/kemet/core/file_store"
	"github.com/kemet-ai/kemet/core/generator"
	"github.com/kemet-ai/kemet/core/retriever"
	gormModel "github.com/kemet-ai/kemet/internal/model/gorm"
)

// Retriever 检索编排能力
type Retriever interface {
	Retrieve(ctx context.Context, req *retriever.Request) (*retriever.Result, error)
}

// AnswerGenerator 回答生成能力
type AnswerGenerator interface {
	Generate(ctx context.Context, p *generator.Params) (string, error)
}

// ConversationStore 会话存储能力
type ConversationStore interface {
	Create(ctx context.Context, title string) (*gormModel.Conversation, error)
	Append(ctx context.Context, convID, role, content string, imagePaths []string) error
	History(ctx context.Context, convID string, limit int) ([]*schema.Message, error)
}

// Service 问答服务
// 一轮问答 = 建档/取历史 → 记用户消息 → 检索 → 生成 → 记助手消息
type Service struct {
	retriever    Retriever
	generator    AnswerGenerator
	store        ConversationStore
	historyLimit int
}

// NewService 创建问答服务
func NewService(r Retriever, gen AnswerGenerator, store ConversationStore, historyLimit int) *Service {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &Service{
		retriever:    r,
		generator:    gen,
		store:        store,
		historyLimit: historyLimit,
	}
}

// ImageUpload 随提问上传的图片
type ImageUpload struct {
	Name string
	Data []byte
}

// AskRequest 问答请求
type AskRequest struct {
	ConversationID string        // 为空则新建会话
	Query          string        // 用户问题
	TopK           *int          // 粗召回数量，nil用服务端默认值
	Images         []ImageUpload // 附带图片
}

// Source 回答引用的来源
type Source struct {
	Content string  `json:"content"`
	File    string  `json:"file"`
	Page    string  `json:"page"`
	Score   float64 `json:"score"`
}

// AskResponse 问答结果
type AskResponse struct {
	ConversationID    string   `json:"conversationId"`
	Answer            string   `json:"answer"`
	RewrittenQuery    string   `json:"rewrittenQuery"`
	SearchQuery       string   `json:"searchQuery"` // 实际用于检索的查询（含识图补充）
	ImageDescriptions []string `json:"imageDescriptions,omitempty"`
	TopK              int      `json:"topK"` // 实际生效的粗召回数量
	Sources           []Source `json:"sources"`
}

// Ask 执行一轮问答
// 用户消息在检索前就落库，助手消息只在生成成功后落库：
// 中途失败时留下的是"有问无答"而不是半截回答
func (s *Service) Ask(ctx context.Context, req *AskRequest) (*AskResponse, error) {
	convID := req.ConversationID
	if convID == "" {
		conv, err := s.store.Create(ctx, truncateTitle(req.Query))
		if err != nil {
			return nil, err
		}
		convID = conv.ConvID
	}

	// 历史在写入本轮用户消息之前取，改写看到的是之前的轮次
	history, err := s.store.History(ctx, convID, s.historyLimit)
	if err != nil {
		return nil, err
	}

	imagePaths := s.saveImages(ctx, convID, req.Images)

	if err := s.store.Append(ctx, convID, "user", req.Query, imagePaths); err != nil {
		return nil, err
	}

	images := make([][]byte, 0, len(req.Images))
	for _, img := range req.Images {
		images = append(images, img.Data)
	}

	result, err := s.retriever.Retrieve(ctx, &retriever.Request{
		Query:   req.Query,
		TopK:    req.TopK,
		Images:  images,
		History: history,
	})
	if err != nil {
		return nil, err
	}

	answer, err := s.generator.Generate(ctx, &generator.Params{
		Query:      result.OriginalQuery,
		Context:    result.Context,
		ImageHints: result.ImageHints,
		History:    history,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.Append(ctx, convID, "assistant", answer, nil); err != nil {
		return nil, err
	}

	return &AskResponse{
		ConversationID:    convID,
		Answer:            answer,
		RewrittenQuery:    result.RewrittenQuery,
		SearchQuery:       result.EnrichedQuery,
		ImageDescriptions: result.ImageHints,
		TopK:              result.TopK,
		Sources:           SourcesFromDocuments(result.Documents),
	}, nil
}

// saveImages 将图片落盘留档
// 留档是旁路功能，失败只告警，不影响本轮问答
func (s *Service) saveImages(ctx context.Context, convID string, images []ImageUpload) []string {
	var paths []string
	for _, img := range images {
		name := img.Name
		if name == "" {
			name = uuid.New().String()
		}
		path, err := file_store.SaveQueryImage(ctx, convID, name, img.Data)
		if err != nil {
			g.Log().Warningf(ctx, "failed to archive query image %s: %v", name, err)
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

// SourcesFromDocuments 将重排后的文档转为来源引用
func SourcesFromDocuments(docs []*schema.Document) []Source {
	sources := make([]Source, 0, len(docs))
	for _, doc := range docs {
		src := Source{
			Content: doc.Content,
			File:    "Unknown",
			Page:    "N/A",
			Score:   doc.Score(),
		}
		if doc.MetaData != nil {
			if v, ok := doc.MetaData["source"]; ok && gconv.String(v) != "" {
				src.File = gconv.String(v)
			}
			if v, ok := doc.MetaData["page"]; ok && gconv.String(v) != "" {
				src.Page = gconv.String(v)
			}
		}
		sources = append(sources, src)
	}
	return sources
}

// truncateTitle 新会话标题取问题前若干字符
func truncateTitle(query string) string {
	runes := []rune(query)
	if len(runes) > 50 {
		return string(runes[:50])
	}
	return query
}
