package rerank

import (
	"context"
	"sort"

	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/kemet-ai/kemet/core/errors"
	"golang.org/x/sync/errgroup"
)

// Scorer 交叉编码器打分能力
// 输入(query, 文档内容)对，输出与输入同序的相关性分数
type Scorer interface {
	ScoreBatch(ctx context.Context, query string, documents []string) ([]float64, error)
}

// Reranker 重排序器
// 忽略粗召回分数，用交叉编码器重新打分后降序排列
type Reranker struct {
	scorer    Scorer
	batchSize int
}

// NewReranker 创建重排序器
func NewReranker(scorer Scorer, batchSize int) *Reranker {
	if batchSize <= 0 {
		batchSize = 30
	}
	return &Reranker{
		scorer:    scorer,
		batchSize: batchSize,
	}
}

// Rerank 对候选文档重新打分并截取前finalWidth个
// 分数相同的文档保持粗召回顺序（稳定排序），保证多次运行结果一致
// 打分失败直接上抛：静默回退到未重排的顺序会掩盖精度劣化
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []*schema.Document, finalWidth int) ([]*schema.Document, error) {
	// 空候选集不触发打分调用
	if len(candidates) == 0 {
		return []*schema.Document{}, nil
	}

	if finalWidth <= 0 || finalWidth > len(candidates) {
		finalWidth = len(candidates)
	}

	scores, err := r.scoreAll(ctx, query, candidates)
	if err != nil {
		return nil, err
	}

	// 覆盖粗召回分数。粗分与细分量纲不同，不可混用
	reranked := make([]*schema.Document, len(candidates))
	for i, doc := range candidates {
		reranked[i] = doc.WithScore(scores[i])
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score() > reranked[j].Score()
	})

	reranked = reranked[:finalWidth]

	g.Log().Debugf(ctx, "rerank done: candidates=%d, kept=%d", len(candidates), len(reranked))
	return reranked, nil
}

// scoreAll 分批并行打分，结果按候选集原始顺序归位
func (r *Reranker) scoreAll(ctx context.Context, query string, candidates []*schema.Document) ([]float64, error) {
	contents := make([]string, len(candidates))
	for i, doc := range candidates {
		contents[i] = doc.Content
	}

	scores := make([]float64, len(contents))

	eg, gCtx := errgroup.WithContext(ctx)
	for start := 0; start < len(contents); start += r.batchSize {
		start := start
		end := start + r.batchSize
		if end > len(contents) {
			end = len(contents)
		}
		eg.Go(func() error {
			batchScores, err := r.scorer.ScoreBatch(gCtx, query, contents[start:end])
			if err != nil {
				return err
			}
			if len(batchScores) != end-start {
				return errors.Newf(errors.ErrRerankFailed, "scorer returned %d scores for %d documents", len(batchScores), end-start)
			}
			// 每个goroutine只写自己的切片区间，无共享写
			copy(scores[start:end], batchScores)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}
