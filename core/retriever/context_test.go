package retriever

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func doc(content, source string, page any, score float64) *schema.Document {
	d := &schema.Document{
		Content: content,
		MetaData: map[string]any{
			"source": source,
			"page":   page,
		},
	}
	return d.WithScore(score)
}

func TestAssembleContext(t *testing.T) {
	t.Run("空输入返回哨兵文本", func(t *testing.T) {
		assert.Equal(t, NoRelevantContext, AssembleContext(nil))
		assert.Equal(t, NoRelevantContext, AssembleContext([]*schema.Document{}))
	})

	t.Run("单文档格式", func(t *testing.T) {
		docs := []*schema.Document{
			doc("Ramses II ruled for 66 years.", "chronicles.pdf", 12, 0.8765),
		}
		got := AssembleContext(docs)
		assert.Equal(t, "[Source 1] (Score: 0.877)\nFile: chronicles.pdf, Page: 12\nContent: Ramses II ruled for 66 years.", got)
	})

	t.Run("多文档顺序保留且1-based编号", func(t *testing.T) {
		docs := []*schema.Document{
			doc("first", "a.pdf", 1, 0.9),
			doc("second", "b.pdf", 2, 0.5),
			doc("third", "c.pdf", 3, 0.7),
		}
		got := AssembleContext(docs)

		blocks := strings.Split(got, "\n\n---\n\n")
		assert.Len(t, blocks, 3)
		assert.Contains(t, blocks[0], "[Source 1]")
		assert.Contains(t, blocks[0], "Content: first")
		assert.Contains(t, blocks[1], "[Source 2]")
		assert.Contains(t, blocks[1], "Content: second")
		assert.Contains(t, blocks[2], "[Source 3]")
		assert.Contains(t, blocks[2], "Content: third")
	})

	t.Run("缺失元数据使用默认值", func(t *testing.T) {
		docs := []*schema.Document{
			(&schema.Document{Content: "no meta"}).WithScore(0.1),
		}
		got := AssembleContext(docs)
		assert.Contains(t, got, "File: Unknown, Page: N/A")
	})

	t.Run("拼装是纯函数，重复调用结果一致", func(t *testing.T) {
		docs := []*schema.Document{
			doc("alpha", "a.pdf", 1, 0.9),
			doc("beta", "b.pdf", 2, 0.8),
		}
		first := AssembleContext(docs)
		second := AssembleContext(docs)
		assert.Equal(t, first, second)
	})

	t.Run("分数保留三位小数", func(t *testing.T) {
		docs := []*schema.Document{
			doc("x", "a.pdf", 1, 0.123456),
		}
		assert.Contains(t, AssembleContext(docs), "(Score: 0.123)")
	})
}
