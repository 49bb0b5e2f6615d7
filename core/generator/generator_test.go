package generator

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/kemet-ai/kemet/core/errors"
	"github.com/kemet-ai/kemet/core/model"
	"github.com/kemet-ai/kemet/core/retriever"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatModel 记录调用并返回预设回答
type fakeChatModel struct {
	mu         sync.Mutex
	calls      int
	lastParams model.ChatCompletionParams
	answer     string
	err        error
}

func (f *fakeChatModel) ChatCompletionText(ctx context.Context, params model.ChatCompletionParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastParams = params
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("无上下文无识图直接拒答不调模型", func(t *testing.T) {
		cm := &fakeChatModel{answer: "should not be used"}
		gen := NewGenerator(cm, "test-model")

		answer, err := gen.Generate(ctx, &Params{
			Query:   "what did he eat for breakfast",
			Context: retriever.NoRelevantContext,
		})
		require.NoError(t, err)
		assert.Equal(t, RefusalAnswer, answer)
		assert.Equal(t, 0, cm.calls)
	})

	t.Run("全部识图失败等同无识图仍然拒答", func(t *testing.T) {
		cm := &fakeChatModel{answer: "should not be used"}
		gen := NewGenerator(cm, "test-model")

		answer, err := gen.Generate(ctx, &Params{
			Query:      "who is this",
			Context:    retriever.NoRelevantContext,
			ImageHints: []string{"[Image 1 processing failed: timeout]"},
		})
		require.NoError(t, err)
		assert.Equal(t, RefusalAnswer, answer)
		assert.Equal(t, 0, cm.calls)
	})

	t.Run("无上下文但有有效识图仍调模型", func(t *testing.T) {
		cm := &fakeChatModel{answer: "I am Ramses, the great builder."}
		gen := NewGenerator(cm, "test-model")

		answer, err := gen.Generate(ctx, &Params{
			Query:      "who is this",
			Context:    retriever.NoRelevantContext,
			ImageHints: []string{"A statue of Ramses II"},
		})
		require.NoError(t, err)
		assert.Equal(t, "I am Ramses, the great builder.", answer)
		assert.Equal(t, 1, cm.calls)
	})

	t.Run("提示词包含上下文历史和拒答指令", func(t *testing.T) {
		cm := &fakeChatModel{answer: "My temples stand at Abu Simbel."}
		gen := NewGenerator(cm, "test-model")

		history := []*schema.Message{
			{Role: schema.User, Content: "tell me about Ramses"},
			{Role: schema.Assistant, Content: "I am Ramses II."},
		}
		_, err := gen.Generate(ctx, &Params{
			Query:   "where are your temples",
			Context: "[Source 1] (Score: 0.900)\nFile: chronicles.pdf, Page: 3\nContent: Abu Simbel temples",
			History: history,
		})
		require.NoError(t, err)
		require.Equal(t, 1, cm.calls)
		require.Len(t, cm.lastParams.Messages, 1)

		prompt := cm.lastParams.Messages[0].Content
		assert.Contains(t, prompt, "Abu Simbel temples")
		assert.Contains(t, prompt, RefusalAnswer)
		assert.Contains(t, prompt, "User: tell me about Ramses")
		assert.Contains(t, prompt, "Pharaoh: I am Ramses II.")
		assert.Contains(t, prompt, "where are your temples")
		assert.Equal(t, "test-model", cm.lastParams.ModelName)
		assert.InDelta(t, 0.3, cm.lastParams.Temperature, 1e-6)
	})

	t.Run("回答中的星号被剥除", func(t *testing.T) {
		cm := &fakeChatModel{answer: "  I am **Ramses II**, the great.  "}
		gen := NewGenerator(cm, "test-model")

		answer, err := gen.Generate(ctx, &Params{
			Query:   "who are you",
			Context: "some context",
		})
		require.NoError(t, err)
		assert.Equal(t, "I am Ramses II, the great.", answer)
		assert.False(t, strings.Contains(answer, "*"))
	})

	t.Run("模型调用失败报错", func(t *testing.T) {
		cm := &fakeChatModel{err: errors.New(errors.ErrLLMCallFailed, "upstream down")}
		gen := NewGenerator(cm, "test-model")

		_, err := gen.Generate(ctx, &Params{Query: "q", Context: "ctx"})
		require.Error(t, err)
		assert.Equal(t, errors.ErrGenerationFailed, errors.GetAppError(err).Code)
	})

	t.Run("模型返回空串报错", func(t *testing.T) {
		cm := &fakeChatModel{answer: "   "}
		gen := NewGenerator(cm, "test-model")

		_, err := gen.Generate(ctx, &Params{Query: "q", Context: "ctx"})
		require.Error(t, err)
		assert.Equal(t, errors.ErrGenerationFailed, errors.GetAppError(err).Code)
	})
}
