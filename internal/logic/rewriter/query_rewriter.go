package rewriter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/os/gcache"
	coreModel "github.com/kemet-ai/kemet/core/model"
)

// rewritePrompt 指代消解提示词模板
// 要求模型只输出改写后的查询本身
const rewritePrompt = `Given the following conversation history and a new user question, rewrite the user question into a standalone search query that can be understood without the conversation history.

Rules:
- The rewritten query must be self-contained (resolve all pronouns like "he", "his", "it", "there")
- Keep it concise — a short search phrase, NOT a full sentence
- Do NOT answer the question, just rewrite it
- If the question is already self-contained, return it as-is
- Output ONLY the rewritten query, nothing else

### Conversation History:
%s

### New User Question:
%s

### Rewritten Query:`

// maxHistoryMessages 改写时最多带的历史消息条数，控制token消耗
const maxHistoryMessages = 6

// ChatModel 改写所需的最小模型调用能力
type ChatModel interface {
	ChatCompletionText(ctx context.Context, params coreModel.ChatCompletionParams) (string, error)
}

// QueryRewriter 查询重写器（用于指代消解）
// 改写是检索的优化项：任何失败都降级为原查询，绝不中断检索流程
type QueryRewriter struct {
	chatModel   ChatModel
	modelName   string
	cache       *gcache.Cache
	cacheExpire time.Duration
}

// NewQueryRewriter 创建查询重写器
func NewQueryRewriter(chatModel ChatModel, modelName string) *QueryRewriter {
	return &QueryRewriter{
		chatModel:   chatModel,
		modelName:   modelName,
		cache:       gcache.New(),
		cacheExpire: time.Minute * 5,
	}
}

// Rewrite 将追问改写为独立查询
// 没有历史时原样返回，连模型都不调；失败或改写为空时静默回退原查询
func (r *QueryRewriter) Rewrite(ctx context.Context, query string, history []*schema.Message) (string, error) {
	if len(history) == 0 {
		return query, nil
	}

	cacheKey := r.buildCacheKey(query, history)
	if cached, err := r.cache.Get(ctx, cacheKey); err == nil && cached != nil && cached.String() != "" {
		rewritten := cached.String()
		g.Log().Debugf(ctx, "query rewrite (cache hit): [%s] -> [%s]", query, rewritten)
		return rewritten, nil
	}

	rewritten, err := r.rewriteWithLLM(ctx, query, history)
	if err != nil {
		g.Log().Warningf(ctx, "query rewriting failed, using original: %v", err)
		return query, nil
	}

	r.cache.Set(ctx, cacheKey, rewritten, r.cacheExpire)

	g.Log().Infof(ctx, "query rewritten: [%s] -> [%s]", query, rewritten)
	return rewritten, nil
}

// rewriteWithLLM 调用模型执行改写
func (r *QueryRewriter) rewriteWithLLM(ctx context.Context, query string, history []*schema.Message) (string, error) {
	startIdx := 0
	if len(history) > maxHistoryMessages {
		startIdx = len(history) - maxHistoryMessages
	}

	lines := make([]string, 0, maxHistoryMessages)
	for _, msg := range history[startIdx:] {
		if msg == nil || msg.Role == schema.System {
			continue
		}
		label := "Assistant"
		if msg.Role == schema.User {
			label = "User"
		}
		lines = append(lines, label+": "+msg.Content)
	}

	prompt := fmt.Sprintf(rewritePrompt, strings.Join(lines, "\n"), query)

	rewritten, err := r.chatModel.ChatCompletionText(ctx, coreModel.ChatCompletionParams{
		ModelName: r.modelName,
		Messages: []*schema.Message{
			{Role: schema.User, Content: prompt},
		},
		Temperature:         0.1,
		MaxCompletionTokens: 200,
	})
	if err != nil {
		return "", err
	}

	// 模型偶尔把结果括在引号里
	rewritten = strings.TrimSpace(rewritten)
	rewritten = strings.Trim(rewritten, `"'`)
	rewritten = strings.TrimSpace(rewritten)

	if rewritten == "" {
		return "", fmt.Errorf("rewrite result is empty")
	}
	return rewritten, nil
}

// buildCacheKey 构建缓存键
// 用查询和最近几条消息的前缀拼接，历史变了缓存自然失效
func (r *QueryRewriter) buildCacheKey(query string, history []*schema.Message) string {
	var keyBuilder strings.Builder
	keyBuilder.WriteString(query)

	start := 0
	if len(history) > 4 {
		start = len(history) - 4
	}

	for i := start; i < len(history); i++ {
		keyBuilder.WriteString("|")
		keyBuilder.WriteString(string(history[i].Role))
		keyBuilder.WriteString(":")
		content := history[i].Content
		if len(content) > 50 {
			content = content[:50]
		}
		keyBuilder.WriteString(content)
	}

	return "query_rewrite:" + keyBuilder.String()
}
