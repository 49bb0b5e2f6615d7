package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
	"github.com/kemet-ai/kemet/core/client"
	"github.com/kemet-ai/kemet/core/errors"
	formatterPkg "github.com/kemet-ai/kemet/core/formatter"
	"github.com/sashabaranov/go-openai"
)

// ModelService 统一的模型服务
// 上层只传schema.Message，格式适配交给formatter
type ModelService struct {
	client    *client.OpenAIClient
	formatter formatterPkg.MessageFormatter
}

// NewModelService 创建模型服务
func NewModelService(apiKey, baseURL string, formatter formatterPkg.MessageFormatter) *ModelService {
	if formatter == nil {
		formatter = formatterPkg.NewOpenAIFormatter()
	}
	return &ModelService{
		client:    client.NewOpenAIClient(apiKey, baseURL),
		formatter: formatter,
	}
}

// ChatCompletionParams 聊天参数
type ChatCompletionParams struct {
	ModelName           string
	Messages            []*schema.Message
	Temperature         float32
	MaxCompletionTokens int
	TopP                float32
	N                   int
	Stop                []string
	ResponseFormat      *openai.ChatCompletionResponseFormat
}

// ChatCompletion 执行一次对话补全
func (s *ModelService) ChatCompletion(ctx context.Context, params ChatCompletionParams) (*openai.ChatCompletionResponse, error) {
	openaiMessages, err := s.formatter.FormatMessages(params.Messages)
	if err != nil {
		return nil, errors.Newf(errors.ErrInvalidParameter, "failed to format messages: %v", err)
	}

	req := client.ChatCompletionRequest{
		Model:               params.ModelName,
		Messages:            openaiMessages,
		Temperature:         params.Temperature,
		MaxCompletionTokens: params.MaxCompletionTokens,
		TopP:                params.TopP,
		N:                   params.N,
		Stop:                params.Stop,
		ResponseFormat:      params.ResponseFormat,
	}

	return s.client.ChatCompletion(ctx, req)
}

// ChatCompletionText 执行一次对话补全，直接返回首个choice的文本
func (s *ModelService) ChatCompletionText(ctx context.Context, params ChatCompletionParams) (string, error) {
	resp, err := s.ChatCompletion(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.ErrLLMCallFailed, "model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
