package common

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/kemet-ai/kemet/core/errors"
)

// RerankConfig 接口，用于提取rerank配置
type RerankConfig interface {
	GetRerankAPIKey() string
	GetRerankBaseURL() string
	GetRerankModel() string
}

// CustomReranker 自定义rerank客户端
// 封装交叉编码器打分服务：输入(query, document)对，输出细粒度相关性分数
type CustomReranker struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// RerankRequest rerank API请求结构
type RerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n"`
	ReturnDocuments bool     `json:"return_documents"`
}

// RerankResult rerank结果项
type RerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// RerankResponse rerank API响应结构
type RerankResponse struct {
	ID      string          `json:"id"`
	Results []*RerankResult `json:"results"`
}

// RerankErrorResponse API错误响应
type RerankErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

// NewReranker 创建rerank客户端
func NewReranker(ctx context.Context, conf RerankConfig) (*CustomReranker, error) {
	apiKey := conf.GetRerankAPIKey()
	baseURL := conf.GetRerankBaseURL()
	model := conf.GetRerankModel()

	if baseURL == "" {
		return nil, errors.New(errors.ErrInvalidParameter, "rerank baseURL is required")
	}
	if model == "" {
		model = "bge-reranker-base"
	}

	// rerank 通常比 embedding 快，超时可以更紧
	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &http.Transport{
			Dial: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).Dial,
			TLSHandshakeTimeout:   30 * time.Second,
			ResponseHeaderTimeout: 60 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
		},
	}

	return &CustomReranker{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
	}, nil
}

// ScoreBatch 对一批(query, document)对打分
// 返回的分数与输入documents顺序一一对应；任何缺失的index都视为上游返回异常数据
func (r *CustomReranker) ScoreBatch(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return []float64{}, nil
	}

	// TopN 设为文档总数以取回每个文档的分数
	req := RerankRequest{
		Model:           r.model,
		Query:           query,
		Documents:       documents,
		TopN:            len(documents),
		ReturnDocuments: false,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Newf(errors.ErrRerankFailed, "failed to marshal request: %v", err)
	}

	url := r.baseURL + "/rerank"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, errors.Newf(errors.ErrRerankFailed, "failed to create request: %v", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Newf(errors.ErrRerankFailed, "failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp RerankErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return nil, errors.Newf(errors.ErrRerankFailed, "HTTP %d: failed to decode error response: %v", resp.StatusCode, err)
		}
		return nil, errors.Newf(errors.ErrRerankFailed, "API error (HTTP %d): %s", resp.StatusCode, errResp.Error.Message)
	}

	var rerankResp RerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rerankResp); err != nil {
		return nil, errors.Newf(errors.ErrRerankFailed, "failed to decode response: %v", err)
	}

	if len(rerankResp.Results) != len(documents) {
		return nil, errors.Newf(errors.ErrRerankFailed, "response results length (%d) doesn't match input length (%d)", len(rerankResp.Results), len(documents))
	}

	// 按index归位，保证输出顺序与输入一致
	scores := make([]float64, len(documents))
	seen := make([]bool, len(documents))
	for _, res := range rerankResp.Results {
		if res.Index < 0 || res.Index >= len(documents) {
			return nil, errors.Newf(errors.ErrRerankFailed, "invalid result index: %d", res.Index)
		}
		scores[res.Index] = res.RelevanceScore
		seen[res.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, errors.Newf(errors.ErrRerankFailed, "missing score for document %d", i)
		}
	}

	return scores, nil
}
