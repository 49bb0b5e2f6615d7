package rewriter

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/kemet-ai/kemet/core/errors"
	coreModel "github.com/kemet-ai/kemet/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatModel 记录提示词并返回预设结果
type fakeChatModel struct {
	mu         sync.Mutex
	calls      int
	lastPrompt string
	result     string
	err        error
}

func (f *fakeChatModel) ChatCompletionText(ctx context.Context, params coreModel.ChatCompletionParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPrompt = params.Messages[0].Content
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

func historyOf(pairs ...string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(pairs))
	for i, content := range pairs {
		role := schema.User
		if i%2 == 1 {
			role = schema.Assistant
		}
		msgs = append(msgs, &schema.Message{Role: role, Content: content})
	}
	return msgs
}

func TestRewrite(t *testing.T) {
	ctx := context.Background()

	t.Run("无历史原样返回不调模型", func(t *testing.T) {
		cm := &fakeChatModel{result: "should not be used"}
		r := NewQueryRewriter(cm, "test-model")

		got, err := r.Rewrite(ctx, "who built the pyramids", nil)
		require.NoError(t, err)
		assert.Equal(t, "who built the pyramids", got)
		assert.Equal(t, 0, cm.calls)
	})

	t.Run("正常改写并返回模型结果", func(t *testing.T) {
		cm := &fakeChatModel{result: "Ramses II reign duration"}
		r := NewQueryRewriter(cm, "test-model")

		got, err := r.Rewrite(ctx, "how long did he reign", historyOf("tell me about Ramses II", "I am Ramses II."))
		require.NoError(t, err)
		assert.Equal(t, "Ramses II reign duration", got)
		assert.Equal(t, 1, cm.calls)
		assert.Contains(t, cm.lastPrompt, "User: tell me about Ramses II")
		assert.Contains(t, cm.lastPrompt, "Assistant: I am Ramses II.")
		assert.Contains(t, cm.lastPrompt, "how long did he reign")
	})

	t.Run("结果两侧引号被剥除", func(t *testing.T) {
		cm := &fakeChatModel{result: `  "Ramses II temples"  `}
		r := NewQueryRewriter(cm, "test-model")

		got, err := r.Rewrite(ctx, "his temples?", historyOf("Ramses II", "I am he."))
		require.NoError(t, err)
		assert.Equal(t, "Ramses II temples", got)
	})

	t.Run("模型失败静默回退原查询", func(t *testing.T) {
		cm := &fakeChatModel{err: errors.New(errors.ErrLLMCallFailed, "timeout")}
		r := NewQueryRewriter(cm, "test-model")

		got, err := r.Rewrite(ctx, "how long did he reign", historyOf("Ramses II", "I am he."))
		require.NoError(t, err)
		assert.Equal(t, "how long did he reign", got)
	})

	t.Run("改写结果为空回退原查询", func(t *testing.T) {
		cm := &fakeChatModel{result: `""`}
		r := NewQueryRewriter(cm, "test-model")

		got, err := r.Rewrite(ctx, "how long did he reign", historyOf("Ramses II", "I am he."))
		require.NoError(t, err)
		assert.Equal(t, "how long did he reign", got)
	})

	t.Run("只带最近六条历史", func(t *testing.T) {
		cm := &fakeChatModel{result: "rewritten"}
		r := NewQueryRewriter(cm, "test-model")

		msgs := make([]string, 0, 10)
		for i := 0; i < 10; i++ {
			msgs = append(msgs, fmt.Sprintf("message-%d", i))
		}
		_, err := r.Rewrite(ctx, "follow-up", historyOf(msgs...))
		require.NoError(t, err)
		assert.NotContains(t, cm.lastPrompt, "message-3")
		assert.Contains(t, cm.lastPrompt, "message-4")
		assert.Contains(t, cm.lastPrompt, "message-9")
	})

	t.Run("系统消息不进提示词", func(t *testing.T) {
		cm := &fakeChatModel{result: "rewritten"}
		r := NewQueryRewriter(cm, "test-model")

		history := []*schema.Message{
			{Role: schema.System, Content: "you are a pharaoh"},
			{Role: schema.User, Content: "tell me about Ramses"},
		}
		_, err := r.Rewrite(ctx, "his reign?", history)
		require.NoError(t, err)
		assert.NotContains(t, cm.lastPrompt, "you are a pharaoh")
	})

	t.Run("相同查询和历史命中缓存", func(t *testing.T) {
		cm := &fakeChatModel{result: "cached rewrite"}
		r := NewQueryRewriter(cm, "test-model")
		history := historyOf("Ramses II", "I am he.")

		first, err := r.Rewrite(ctx, "his reign?", history)
		require.NoError(t, err)
		second, err := r.Rewrite(ctx, "his reign?", history)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, cm.calls)
	})
}
