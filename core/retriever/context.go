package retriever

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/util/gconv"
)

// NoRelevantContext 空检索结果的哨兵文本
// 下游生成器对它做精确匹配来触发拒答路径，改动它属于破坏性变更
const NoRelevantContext = "No relevant context found."

// contextSeparator 上下文块之间的分隔，空行加横线让来源边界肉眼可辨
const contextSeparator = "\n\n---\n\n"

// AssembleContext 将重排后的文档拼装为生成器可用的上下文
// 文档顺序原样保留，不做任何重新排序或截断
func AssembleContext(docs []*schema.Document) string {
	if len(docs) == 0 {
		return NoRelevantContext
	}

	blocks := make([]string, 0, len(docs))
	for i, doc := range docs {
		source := "Unknown"
		page := "N/A"
		if doc.MetaData != nil {
			if v, ok := doc.MetaData["source"]; ok && gconv.String(v) != "" {
				source = gconv.String(v)
			}
			if v, ok := doc.MetaData["page"]; ok && gconv.String(v) != "" {
				page = gconv.String(v)
			}
		}

		block := fmt.Sprintf("[Source %d] (Score: %.3f)\nFile: %s, Page: %s\nContent: %s",
			i+1, doc.Score(), source, page, doc.Content)
		blocks = append(blocks, block)
	}

	return strings.Join(blocks, contextSeparator)
}
