package common

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRerankConfig 用于测试的mock配置
type mockRerankConfig struct {
	apiKey  string
	baseURL string
	model   string
}

func (m *mockRerankConfig) GetRerankAPIKey() string  { return m.apiKey }
func (m *mockRerankConfig) GetRerankBaseURL() string { return m.baseURL }
func (m *mockRerankConfig) GetRerankModel() string   { return m.model }

func TestNewRerankerValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("缺少baseURL报错", func(t *testing.T) {
		_, err := NewReranker(ctx, &mockRerankConfig{apiKey: "k", model: "m"})
		assert.Error(t, err)
	})

	t.Run("缺少model使用默认值", func(t *testing.T) {
		r, err := NewReranker(ctx, &mockRerankConfig{baseURL: "http://localhost:9000"})
		require.NoError(t, err)
		assert.Equal(t, "bge-reranker-base", r.model)
	})
}

func newTestReranker(t *testing.T, handler http.HandlerFunc) (*CustomReranker, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	r, err := NewReranker(context.Background(), &mockRerankConfig{
		apiKey:  "test-key",
		baseURL: server.URL,
		model:   "rerank-test",
	})
	require.NoError(t, err)
	return r, server
}

func TestScoreBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("空文档列表不发请求", func(t *testing.T) {
		called := false
		r, _ := newTestReranker(t, func(w http.ResponseWriter, req *http.Request) {
			called = true
		})

		scores, err := r.ScoreBatch(ctx, "q", nil)
		require.NoError(t, err)
		assert.Empty(t, scores)
		assert.False(t, called)
	})

	t.Run("乱序返回按index归位", func(t *testing.T) {
		r, _ := newTestReranker(t, func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "/rerank", req.URL.Path)
			assert.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))

			var body RerankRequest
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, len(body.Documents), body.TopN)
			assert.False(t, body.ReturnDocuments)

			// 上游按相关度降序返回，index指向原始文档位置
			resp := RerankResponse{
				Results: []*RerankResult{
					{Index: 2, RelevanceScore: 0.9},
					{Index: 0, RelevanceScore: 0.6},
					{Index: 1, RelevanceScore: 0.3},
				},
			}
			_ = json.NewEncoder(w).Encode(resp)
		})

		scores, err := r.ScoreBatch(ctx, "q", []string{"a", "b", "c"})
		require.NoError(t, err)
		assert.Equal(t, []float64{0.6, 0.3, 0.9}, scores)
	})

	t.Run("结果数量不匹配报错", func(t *testing.T) {
		r, _ := newTestReranker(t, func(w http.ResponseWriter, req *http.Request) {
			resp := RerankResponse{
				Results: []*RerankResult{{Index: 0, RelevanceScore: 0.9}},
			}
			_ = json.NewEncoder(w).Encode(resp)
		})

		_, err := r.ScoreBatch(ctx, "q", []string{"a", "b"})
		assert.Error(t, err)
	})

	t.Run("非法index报错", func(t *testing.T) {
		r, _ := newTestReranker(t, func(w http.ResponseWriter, req *http.Request) {
			resp := RerankResponse{
				Results: []*RerankResult{
					{Index: 0, RelevanceScore: 0.9},
					{Index: 5, RelevanceScore: 0.1},
				},
			}
			_ = json.NewEncoder(w).Encode(resp)
		})

		_, err := r.ScoreBatch(ctx, "q", []string{"a", "b"})
		assert.Error(t, err)
	})

	t.Run("重复index导致缺失位置报错", func(t *testing.T) {
		r, _ := newTestReranker(t, func(w http.ResponseWriter, req *http.Request) {
			resp := RerankResponse{
				Results: []*RerankResult{
					{Index: 0, RelevanceScore: 0.9},
					{Index: 0, RelevanceScore: 0.1},
				},
			}
			_ = json.NewEncoder(w).Encode(resp)
		})

		_, err := r.ScoreBatch(ctx, "q", []string{"a", "b"})
		assert.Error(t, err)
	})

	t.Run("上游非200报错", func(t *testing.T) {
		r, _ := newTestReranker(t, func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
		})

		_, err := r.ScoreBatch(ctx, "q", []string{"a"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model overloaded")
	})
}
