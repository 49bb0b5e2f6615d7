package retriever

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/kemet-ai/kemet/core/config"
	"github.com/kemet-ai/kemet/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	calls    int
	lastTopK int
	lastQ    string
	docs     []*schema.Document
	err      error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, topK int) ([]*schema.Document, error) {
	f.calls++
	f.lastQ = query
	f.lastTopK = topK
	return f.docs, f.err
}

type fakeReranker struct {
	calls int
	err   error
}

func (f *fakeReranker) Rerank(ctx context.Context, query string, candidates []*schema.Document, finalWidth int) ([]*schema.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if finalWidth > len(candidates) {
		finalWidth = len(candidates)
	}
	return candidates[:finalWidth], nil
}

type fakeRewriter struct {
	result string
	err    error
}

func (f *fakeRewriter) Rewrite(ctx context.Context, query string, history []*schema.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

type fakeDescriber struct {
	hints []string
	err   error
}

func (f *fakeDescriber) DescribeImages(ctx context.Context, images [][]byte) ([]string, error) {
	return f.hints, f.err
}

func testConf() *config.RetrieverConfig {
	return &config.RetrieverConfig{
		TopK:       30,
		MinTopK:    1,
		MaxTopK:    100,
		RerankTopK: 8,
	}
}

func intp(v int) *int { return &v }

func makeDocs(n int) []*schema.Document {
	docs := make([]*schema.Document, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, (&schema.Document{
			ID:      fmt.Sprintf("doc-%d", i),
			Content: fmt.Sprintf("content %d", i),
		}).WithScore(1.0-float64(i)*0.01))
	}
	return docs
}

func TestOrchestratorRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("空查询直接报错不触碰下游", func(t *testing.T) {
		searcher := &fakeSearcher{}
		reranker := &fakeReranker{}
		o := NewOrchestrator(searcher, reranker, nil, nil, testConf())

		_, err := o.Retrieve(ctx, &Request{Query: "   "})
		require.Error(t, err)
		assert.Equal(t, errors.ErrEmptyQuery, errors.GetAppError(err).Code)
		assert.Equal(t, 0, searcher.calls)
		assert.Equal(t, 0, reranker.calls)
	})

	t.Run("top_k越界直接报错不触碰下游", func(t *testing.T) {
		// 显式传0也是越界，不回退到默认值
		for _, topK := range []int{0, -1, 101, 1000} {
			searcher := &fakeSearcher{}
			reranker := &fakeReranker{}
			o := NewOrchestrator(searcher, reranker, nil, nil, testConf())

			_, err := o.Retrieve(ctx, &Request{Query: "q", TopK: intp(topK)})
			require.Error(t, err, "topK=%d", topK)
			assert.Equal(t, errors.ErrTopKOutOfRange, errors.GetAppError(err).Code)
			assert.Equal(t, 0, searcher.calls, "topK=%d", topK)
			assert.Equal(t, 0, reranker.calls, "topK=%d", topK)
		}
	})

	t.Run("top_k缺省使用配置默认", func(t *testing.T) {
		searcher := &fakeSearcher{docs: makeDocs(30)}
		o := NewOrchestrator(searcher, &fakeReranker{}, nil, nil, testConf())

		result, err := o.Retrieve(ctx, &Request{Query: "q"})
		require.NoError(t, err)
		assert.Equal(t, 30, searcher.lastTopK)
		assert.Equal(t, 30, result.TopK)
	})

	t.Run("显式top_k在范围内原样生效", func(t *testing.T) {
		searcher := &fakeSearcher{docs: makeDocs(5)}
		o := NewOrchestrator(searcher, &fakeReranker{}, nil, nil, testConf())

		_, err := o.Retrieve(ctx, &Request{Query: "q", TopK: intp(50)})
		require.NoError(t, err)
		assert.Equal(t, 50, searcher.lastTopK)
	})

	t.Run("结果截到重排宽度", func(t *testing.T) {
		searcher := &fakeSearcher{docs: makeDocs(30)}
		o := NewOrchestrator(searcher, &fakeReranker{}, nil, nil, testConf())

		result, err := o.Retrieve(ctx, &Request{Query: "q"})
		require.NoError(t, err)
		assert.Len(t, result.Documents, 8)
	})

	t.Run("改写结果用于检索_原查询保留", func(t *testing.T) {
		searcher := &fakeSearcher{docs: makeDocs(3)}
		rw := &fakeRewriter{result: "standalone query"}
		o := NewOrchestrator(searcher, &fakeReranker{}, rw, nil, testConf())

		history := []*schema.Message{{Role: schema.User, Content: "earlier"}}
		result, err := o.Retrieve(ctx, &Request{Query: "his reign?", History: history})
		require.NoError(t, err)
		assert.Equal(t, "standalone query", searcher.lastQ)
		assert.Equal(t, "standalone query", result.RewrittenQuery)
		assert.Equal(t, "his reign?", result.OriginalQuery)
	})

	t.Run("无历史时不走改写", func(t *testing.T) {
		searcher := &fakeSearcher{docs: makeDocs(3)}
		rw := &fakeRewriter{result: "should not be used"}
		o := NewOrchestrator(searcher, &fakeReranker{}, rw, nil, testConf())

		result, err := o.Retrieve(ctx, &Request{Query: "who built the pyramids"})
		require.NoError(t, err)
		assert.Equal(t, "who built the pyramids", searcher.lastQ)
		assert.Equal(t, "who built the pyramids", result.RewrittenQuery)
	})

	t.Run("改写失败降级为原查询", func(t *testing.T) {
		searcher := &fakeSearcher{docs: makeDocs(3)}
		rw := &fakeRewriter{err: errors.New(errors.ErrLLMCallFailed, "boom")}
		o := NewOrchestrator(searcher, &fakeReranker{}, rw, nil, testConf())

		history := []*schema.Message{{Role: schema.User, Content: "earlier"}}
		result, err := o.Retrieve(ctx, &Request{Query: "his reign?", History: history})
		require.NoError(t, err)
		assert.Equal(t, "his reign?", searcher.lastQ)
		assert.Equal(t, "his reign?", result.RewrittenQuery)
	})

	t.Run("识图结果拼入检索查询", func(t *testing.T) {
		searcher := &fakeSearcher{docs: makeDocs(3)}
		desc := &fakeDescriber{hints: []string{"Ramses II", "[Image 2 processing failed: x]"}}
		o := NewOrchestrator(searcher, &fakeReranker{}, nil, desc, testConf())

		result, err := o.Retrieve(ctx, &Request{Query: "who is this", Images: [][]byte{{1}, {2}}})
		require.NoError(t, err)
		assert.Equal(t, "who is this. Context: Ramses II", searcher.lastQ)
		assert.Equal(t, []string{"Ramses II", "[Image 2 processing failed: x]"}, result.ImageHints)
	})

	t.Run("检索失败向上传播", func(t *testing.T) {
		searcher := &fakeSearcher{err: errors.New(errors.ErrVectorSearch, "milvus down")}
		o := NewOrchestrator(searcher, &fakeReranker{}, nil, nil, testConf())

		_, err := o.Retrieve(ctx, &Request{Query: "q"})
		require.Error(t, err)
		assert.True(t, errors.IsUpstream(err))
	})

	t.Run("重排失败向上传播不回退粗排序", func(t *testing.T) {
		searcher := &fakeSearcher{docs: makeDocs(5)}
		reranker := &fakeReranker{err: errors.New(errors.ErrRerankFailed, "rerank down")}
		o := NewOrchestrator(searcher, reranker, nil, nil, testConf())

		_, err := o.Retrieve(ctx, &Request{Query: "q"})
		require.Error(t, err)
		assert.True(t, errors.IsUpstream(err))
	})

	t.Run("空命中返回哨兵上下文", func(t *testing.T) {
		searcher := &fakeSearcher{docs: []*schema.Document{}}
		o := NewOrchestrator(searcher, &fakeReranker{}, nil, nil, testConf())

		result, err := o.Retrieve(ctx, &Request{Query: "unknown topic"})
		require.NoError(t, err)
		assert.Empty(t, result.Documents)
		assert.Equal(t, NoRelevantContext, result.Context)
	})
}
