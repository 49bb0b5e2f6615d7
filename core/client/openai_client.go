package client

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/kemet-ai/kemet/core/errors"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClient 统一的OpenAI API客户端
// 负责处理所有OpenAI格式的对话补全请求
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient 创建OpenAI客户端
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
	}
}

// ChatCompletionRequest 聊天请求参数
type ChatCompletionRequest struct {
	Model               string
	Messages            []openai.ChatCompletionMessage
	Temperature         float32
	MaxCompletionTokens int
	TopP                float32
	N                   int
	Stop                []string
	ResponseFormat      *openai.ChatCompletionResponseFormat
}

// ChatCompletion 执行一次对话补全
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	openaiReq := openai.ChatCompletionRequest{
		Model:               req.Model,
		Messages:            req.Messages,
		Temperature:         req.Temperature,
		MaxCompletionTokens: req.MaxCompletionTokens,
		TopP:                req.TopP,
		N:                   req.N,
		Stop:                req.Stop,
		ResponseFormat:      req.ResponseFormat,
	}

	g.Log().Debugf(ctx, "[OpenAI Client] 发送请求 - Model: %s, Messages: %d, Temp: %.2f, MaxTokens: %d",
		req.Model, len(req.Messages), req.Temperature, req.MaxCompletionTokens)

	resp, err := c.client.CreateChatCompletion(ctx, openaiReq)
	if err != nil {
		g.Log().Errorf(ctx, "[OpenAI Client] API调用失败 - Model: %s, Error: %v", req.Model, err)
		return nil, errors.Newf(errors.ErrLLMCallFailed, "failed to create chat completion: %v", err)
	}

	g.Log().Debugf(ctx, "[OpenAI Client] 收到响应 - ID: %s, Model: %s, Choices: %d, Usage: %+v",
		resp.ID, resp.Model, len(resp.Choices), resp.Usage)

	return &resp, nil
}
