package rerank

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/kemet-ai/kemet/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScorer 按文档内容查表打分
type fakeScorer struct {
	mu     sync.Mutex
	calls  int
	scores map[string]float64
	err    error
}

func (f *fakeScorer) ScoreBatch(ctx context.Context, query string, documents []string) ([]float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float64, len(documents))
	for i, d := range documents {
		out[i] = f.scores[d]
	}
	return out, nil
}

func docsOf(contents ...string) []*schema.Document {
	docs := make([]*schema.Document, 0, len(contents))
	for i, c := range contents {
		docs = append(docs, (&schema.Document{
			ID:      fmt.Sprintf("d%d", i),
			Content: c,
		}).WithScore(0.5))
	}
	return docs
}

func TestRerank(t *testing.T) {
	ctx := context.Background()

	t.Run("空候选集不触发打分", func(t *testing.T) {
		scorer := &fakeScorer{}
		r := NewReranker(scorer, 30)

		got, err := r.Rerank(ctx, "q", nil, 8)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, 0, scorer.calls)
	})

	t.Run("按新分数降序排列", func(t *testing.T) {
		scorer := &fakeScorer{scores: map[string]float64{"a": 0.2, "b": 0.9, "c": 0.5}}
		r := NewReranker(scorer, 30)

		got, err := r.Rerank(ctx, "q", docsOf("a", "b", "c"), 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "b", got[0].Content)
		assert.Equal(t, "c", got[1].Content)
		assert.Equal(t, "a", got[2].Content)
		assert.Equal(t, 0.9, got[0].Score())
	})

	t.Run("同分保持粗召回顺序", func(t *testing.T) {
		scorer := &fakeScorer{scores: map[string]float64{"x": 0.5, "y": 0.5, "z": 0.5}}
		r := NewReranker(scorer, 30)

		got, err := r.Rerank(ctx, "q", docsOf("x", "y", "z"), 3)
		require.NoError(t, err)
		assert.Equal(t, "x", got[0].Content)
		assert.Equal(t, "y", got[1].Content)
		assert.Equal(t, "z", got[2].Content)
	})

	t.Run("截取到最终宽度", func(t *testing.T) {
		scorer := &fakeScorer{scores: map[string]float64{"a": 0.9, "b": 0.8, "c": 0.7, "d": 0.6}}
		r := NewReranker(scorer, 30)

		got, err := r.Rerank(ctx, "q", docsOf("a", "b", "c", "d"), 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].Content)
		assert.Equal(t, "b", got[1].Content)
	})

	t.Run("候选少于宽度时全部返回", func(t *testing.T) {
		scorer := &fakeScorer{scores: map[string]float64{"a": 0.9, "b": 0.8}}
		r := NewReranker(scorer, 30)

		got, err := r.Rerank(ctx, "q", docsOf("a", "b"), 8)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("分批打分后结果正确归位", func(t *testing.T) {
		scores := make(map[string]float64)
		contents := make([]string, 0, 10)
		for i := 0; i < 10; i++ {
			c := fmt.Sprintf("doc-%d", i)
			contents = append(contents, c)
			scores[c] = float64(i) / 10.0
		}
		scorer := &fakeScorer{scores: scores}
		r := NewReranker(scorer, 3) // 10条文档分4批

		got, err := r.Rerank(ctx, "q", docsOf(contents...), 10)
		require.NoError(t, err)
		require.Len(t, got, 10)
		assert.GreaterOrEqual(t, scorer.calls, 4)
		// 最高分的doc-9排第一
		assert.Equal(t, "doc-9", got[0].Content)
		assert.Equal(t, "doc-0", got[9].Content)
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].Score(), got[i].Score())
		}
	})

	t.Run("打分失败直接上抛", func(t *testing.T) {
		scorer := &fakeScorer{err: errors.New(errors.ErrRerankFailed, "upstream down")}
		r := NewReranker(scorer, 30)

		_, err := r.Rerank(ctx, "q", docsOf("a", "b"), 2)
		require.Error(t, err)
		assert.True(t, errors.IsUpstream(err))
	})
}

// lengthMismatchScorer 返回长度不匹配的打分结果
type lengthMismatchScorer struct{}

func (s *lengthMismatchScorer) ScoreBatch(ctx context.Context, query string, documents []string) ([]float64, error) {
	return []float64{0.1}, nil
}

func TestRerankScoreLengthMismatch(t *testing.T) {
	r := NewReranker(&lengthMismatchScorer{}, 30)
	_, err := r.Rerank(context.Background(), "q", docsOf("a", "b", "c"), 3)
	require.Error(t, err)
	assert.Equal(t, errors.ErrRerankFailed, errors.GetAppError(err).Code)
}
