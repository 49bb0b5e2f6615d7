package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/kemet-ai/kemet/core/errors"
	"github.com/kemet-ai/kemet/core/model"
	"github.com/kemet-ai/kemet/core/retriever"
)

// RefusalAnswer 上下文不含答案时的固定拒答
// 前端和测试都对它做精确匹配，措辞不可随意改动
const RefusalAnswer = "The chronicles do not record this specific detail."

// ChatModel 生成回答所需的最小模型调用能力
type ChatModel interface {
	ChatCompletionText(ctx context.Context, params model.ChatCompletionParams) (string, error)
}

// Generator 基于检索上下文的回答生成器
// 只允许使用检索到的上下文和识图结果作答，答案不在其中时固定拒答
type Generator struct {
	chatModel ChatModel
	modelName string
}

// NewGenerator 创建回答生成器
func NewGenerator(chatModel ChatModel, modelName string) *Generator {
	return &Generator{
		chatModel: chatModel,
		modelName: modelName,
	}
}

// Params 生成参数
type Params struct {
	Query      string            // 用户原始问题
	Context    string            // 拼装好的检索上下文
	ImageHints []string          // 识图结果（可含失败占位符，内部过滤）
	History    []*schema.Message // 对话历史
}

// Generate 生成有据可依的回答
// 上下文为空哨兵且没有可用识图结果时，直接走拒答分支，不调用模型，
// 保证该场景下的回答字节级确定
func (gen *Generator) Generate(ctx context.Context, p *Params) (string, error) {
	validHints := retriever.ValidHints(p.ImageHints)

	if p.Context == retriever.NoRelevantContext && len(validHints) == 0 {
		g.Log().Infof(ctx, "no context and no image hints, returning refusal without model call")
		return RefusalAnswer, nil
	}

	prompt := buildGroundedPrompt(p.Query, p.Context, validHints, p.History)

	answer, err := gen.chatModel.ChatCompletionText(ctx, model.ChatCompletionParams{
		ModelName: gen.modelName,
		Messages: []*schema.Message{
			{Role: schema.User, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", errors.Newf(errors.ErrGenerationFailed, "answer generation failed: %v", err)
	}

	// 模型偶尔带markdown加粗，语音和纯文本前端都不渲染，直接去掉
	answer = strings.ReplaceAll(answer, "*", "")
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errors.New(errors.ErrGenerationFailed, "model returned empty answer")
	}

	return answer, nil
}

// buildGroundedPrompt 构造带身份规则和护栏的完整提示词
func buildGroundedPrompt(query, contextText string, imageHints []string, history []*schema.Message) string {
	imageBlock := ""
	if len(imageHints) > 0 {
		imageBlock = "\n\n### User Image Context:\n" + strings.Join(imageHints, "\n")
	}

	historyBlock := ""
	if len(history) > 0 {
		lines := make([]string, 0, len(history))
		for _, msg := range history {
			if msg == nil {
				continue
			}
			label := "Pharaoh"
			if msg.Role == schema.User {
				label = "User"
			}
			lines = append(lines, label+": "+msg.Content)
		}
		if len(lines) > 0 {
			historyBlock = "\n### Conversation History:\n" + strings.Join(lines, "\n") + "\n"
		}
	}

	return fmt.Sprintf(`You are an ancient Egyptian Pharaoh speaking to a visitor.
You are NOT an assistant. You are the King or Queen themselves.

### IDENTITY RULES:
1. **If an 'Image Description' is provided below**, adopt the identity of the Pharaoh described in it.
2. **If no 'Image Description' is provided**, determine your identity from the 'User Question' and 'Retrieved Context'. Speak as whichever Pharaoh the user is currently asking about.
3. **Switching Pharaohs:** If the user was previously asking about one Pharaoh and now asks about a different one, you MUST switch your persona immediately. Speak as the NEW Pharaoh. Do NOT continue as the previous one.
4. **Conversation History:** The history may contain previous exchanges where you spoke as a different Pharaoh. That is expected. Always speak as the Pharaoh relevant to the CURRENT question.

### STRICT GUARDRAILS:
1. **Context-Driven Only:** You must answer the user's question using **ONLY** the information provided in the 'Retrieved Context' and 'Image Description'.
2. **No Outside Knowledge:** Do not use any external historical knowledge, facts, or assumptions. If the information is not in the context, do not use it.
3. **Refusal:** If the answer is not found in the 'Retrieved Context' or 'Image Description', you MUST respond with: "%s"
4. **Conciseness:** You MUST be concise. Summarize the information to reduce response length. Avoid unnecessary words.

### ROLE & PERSONA:
1. **First Person:** You must convert all information from the 'Retrieved Context' into the first person ("I", "My").
2. **Tone:** Speak with dignity and authority.

### LANGUAGE:
- Answer **strictly** in the same language as the 'User Question'.

### Image Description (Identity Hint):
%s

### Retrieved Context (Your Chronicles):
%s
%s
### User Question:
%s

### Answer:`, RefusalAnswer, imageBlock, contextText, historyBlock, query)
}
