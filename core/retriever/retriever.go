package retriever

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/kemet-ai/kemet/core/config"
	"github.com/kemet-ai/kemet/core/errors"
	"golang.org/x/sync/errgroup"
)

// Searcher 粗召回能力
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]*schema.Document, error)
}

// Reranker 重排能力
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []*schema.Document, finalWidth int) ([]*schema.Document, error)
}

// Rewriter 多轮改写能力
// 实现方内部处理降级，返回的查询总是可用的
type Rewriter interface {
	Rewrite(ctx context.Context, query string, history []*schema.Message) (string, error)
}

// Describer 识图能力
// 结果与输入图片同序，单图失败以占位符形式保留在原位置
type Describer interface {
	DescribeImages(ctx context.Context, images [][]byte) ([]string, error)
}

// Request 检索请求
type Request struct {
	Query   string            // 用户原始查询
	TopK    *int              // 粗召回数量，nil表示使用配置默认值
	Images  [][]byte          // 随查询附带的图片
	History []*schema.Message // 多轮对话历史，用于指代消解
}

// Result 检索结果
type Result struct {
	Documents      []*schema.Document // 重排后的文档，降序
	Context        string             // 拼装好的上下文文本
	OriginalQuery  string             // 用户原始查询
	RewrittenQuery string             // 改写后的独立查询
	EnrichedQuery  string             // 拼入识图结果后的最终检索查询
	ImageHints     []string           // 识图结果（含失败占位符，与输入图片同序）
	TopK           int                // 实际生效的粗召回数量
}

// Orchestrator 检索编排器
// 串联改写、识图、粗召回、重排、上下文拼装五个阶段
type Orchestrator struct {
	searcher  Searcher
	reranker  Reranker
	rewriter  Rewriter
	describer Describer
	conf      *config.RetrieverConfig
}

// NewOrchestrator 创建检索编排器
// rewriter和describer可为nil，对应阶段直接跳过
func NewOrchestrator(searcher Searcher, reranker Reranker, rewriter Rewriter, describer Describer, conf *config.RetrieverConfig) *Orchestrator {
	return &Orchestrator{
		searcher:  searcher,
		reranker:  reranker,
		rewriter:  rewriter,
		describer: describer,
		conf:      conf,
	}
}

// Retrieve 执行完整检索流程
// 入参校验失败立即返回，不触碰任何下游依赖
func (o *Orchestrator) Retrieve(ctx context.Context, req *Request) (*Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, errors.New(errors.ErrEmptyQuery, "query cannot be empty")
	}

	topK, err := o.resolveTopK(req.TopK)
	if err != nil {
		return nil, err
	}

	// 改写与识图互不依赖，并行执行
	// 改写失败在rewriter内部降级为原查询，这里的err只来自识图
	rewritten := query
	var hints []string
	eg, gCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		rewritten = o.rewriteQuery(gCtx, query, req.History)
		return nil
	})
	eg.Go(func() error {
		var descErr error
		hints, descErr = o.describeImages(gCtx, req.Images)
		return descErr
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	enriched := EnrichQuery(rewritten, hints)

	docs, err := o.searcher.Search(ctx, enriched, topK)
	if err != nil {
		return nil, err
	}

	reranked, err := o.reranker.Rerank(ctx, enriched, docs, o.conf.RerankTopK)
	if err != nil {
		return nil, err
	}

	g.Log().Infof(ctx, "retrieval done: coarse=%d, reranked=%d, topK=%d", len(docs), len(reranked), topK)

	return &Result{
		Documents:      reranked,
		Context:        AssembleContext(reranked),
		OriginalQuery:  query,
		RewrittenQuery: rewritten,
		EnrichedQuery:  enriched,
		ImageHints:     hints,
		TopK:           topK,
	}, nil
}

// resolveTopK 解析粗召回数量
// 缺省取配置默认，显式指定的值必须落在配置范围内
// 显式的0同样越界：越界直接报错，不做静默修正
func (o *Orchestrator) resolveTopK(topK *int) (int, error) {
	if topK == nil {
		return o.conf.TopK, nil
	}
	if *topK < o.conf.MinTopK || *topK > o.conf.MaxTopK {
		return 0, errors.Newf(errors.ErrTopKOutOfRange, "top_k must be between %d and %d, got %d", o.conf.MinTopK, o.conf.MaxTopK, *topK)
	}
	return *topK, nil
}

func (o *Orchestrator) rewriteQuery(ctx context.Context, query string, history []*schema.Message) string {
	if o.rewriter == nil || len(history) == 0 {
		return query
	}
	rewritten, err := o.rewriter.Rewrite(ctx, query, history)
	if err != nil {
		// 改写是优化项不是必经项，失败回退到原查询继续检索
		g.Log().Warningf(ctx, "query rewrite degraded, using original query: %v", err)
		return query
	}
	if strings.TrimSpace(rewritten) == "" {
		return query
	}
	return rewritten
}

func (o *Orchestrator) describeImages(ctx context.Context, images [][]byte) ([]string, error) {
	if o.describer == nil || len(images) == 0 {
		return nil, nil
	}
	return o.describer.DescribeImages(ctx, images)
}
