package formatter

import (
	"github.com/cloudwego/eino/schema"
	"github.com/sashabaranov/go-openai"
)

// OpenAIFormatter OpenAI标准消息格式适配器
type OpenAIFormatter struct{}

// NewOpenAIFormatter 创建OpenAI格式适配器
func NewOpenAIFormatter() *OpenAIFormatter {
	return &OpenAIFormatter{}
}

// FormatMessages 转换消息格式为OpenAI标准格式
func (f *OpenAIFormatter) FormatMessages(messages []*schema.Message) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		if msg == nil {
			continue
		}
		result = append(result, f.formatSingleMessage(msg))
	}

	return result, nil
}

// formatSingleMessage 转换单条消息
func (f *OpenAIFormatter) formatSingleMessage(msg *schema.Message) openai.ChatCompletionMessage {
	openaiMsg := openai.ChatCompletionMessage{
		Role: string(msg.Role),
	}

	// 多模态内容优先，文本消息走Content
	if len(msg.MultiContent) > 0 {
		openaiMsg.MultiContent = f.convertMultiContent(msg.MultiContent)
	} else {
		openaiMsg.Content = msg.Content
	}

	return openaiMsg
}

// convertMultiContent 转换多模态内容分片
func (f *OpenAIFormatter) convertMultiContent(parts []schema.ChatMessagePart) []openai.ChatMessagePart {
	var contentParts []openai.ChatMessagePart

	for _, part := range parts {
		switch part.Type {
		case schema.ChatMessagePartTypeText:
			contentParts = append(contentParts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: part.Text,
			})

		case schema.ChatMessagePartTypeImageURL:
			if part.ImageURL != nil {
				contentParts = append(contentParts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    part.ImageURL.URL,
						Detail: openai.ImageURLDetail(part.ImageURL.Detail),
					},
				})
			}
		}
	}

	return contentParts
}
