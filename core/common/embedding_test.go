package common

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEmbeddingConfig struct {
	apiKey  string
	baseURL string
	model   string
}

func (m *mockEmbeddingConfig) GetAPIKey() string         { return m.apiKey }
func (m *mockEmbeddingConfig) GetBaseURL() string        { return m.baseURL }
func (m *mockEmbeddingConfig) GetEmbeddingModel() string { return m.model }

func TestL2Normalize(t *testing.T) {
	t.Run("归一化为单位向量", func(t *testing.T) {
		out := L2Normalize([]float64{3, 4})
		assert.InDelta(t, 0.6, out[0], 1e-6)
		assert.InDelta(t, 0.8, out[1], 1e-6)

		var norm float64
		for _, v := range out {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
	})

	t.Run("零向量原样返回", func(t *testing.T) {
		out := L2Normalize([]float64{0, 0, 0})
		assert.Equal(t, []float32{0, 0, 0}, out)
	})
}

func TestEmbedStrings(t *testing.T) {
	ctx := context.Background()

	t.Run("空输入不发请求", func(t *testing.T) {
		e, err := NewEmbedding(ctx, &mockEmbeddingConfig{apiKey: "k", baseURL: "http://localhost:1", model: "m"})
		require.NoError(t, err)

		out, err := e.EmbedStrings(ctx, nil, 4)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("乱序响应按index归位且归一化", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "/embeddings", req.URL.Path)
			resp := EmbeddingResponse{}
			resp.Data = []struct {
				Embedding []float64 `json:"embedding"`
				Index     int       `json:"index"`
				Object    string    `json:"object"`
			}{
				{Embedding: []float64{0, 2}, Index: 1},
				{Embedding: []float64{3, 4}, Index: 0},
			}
			_ = json.NewEncoder(w).Encode(resp)
		}))
		t.Cleanup(server.Close)

		e, err := NewEmbedding(ctx, &mockEmbeddingConfig{apiKey: "k", baseURL: server.URL, model: "m"})
		require.NoError(t, err)

		out, err := e.EmbedStrings(ctx, []string{"first", "second"}, 2)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.InDelta(t, 0.6, out[0][0], 1e-6)
		assert.InDelta(t, 0.8, out[0][1], 1e-6)
		assert.InDelta(t, 0.0, out[1][0], 1e-6)
		assert.InDelta(t, 1.0, out[1][1], 1e-6)
	})

	t.Run("配置缺失报错", func(t *testing.T) {
		_, err := NewEmbedding(ctx, &mockEmbeddingConfig{})
		assert.Error(t, err)
	})
}
