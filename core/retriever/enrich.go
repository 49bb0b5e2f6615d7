package retriever

import (
	"strings"
)

// IsFailureMarker 判断识图结果是否是单图失败占位符
// 占位符形如 "[Image 2 processing failed: timeout]"，用于保留批次内的位置信息
func IsFailureMarker(hint string) bool {
	return strings.HasPrefix(hint, "[Image") && strings.Contains(hint, "processing failed")
}

// ValidHints 过滤掉失败占位符，只保留可用的识图结果
func ValidHints(hints []string) []string {
	var valid []string
	for _, h := range hints {
		h = strings.TrimSpace(h)
		if h == "" || IsFailureMarker(h) {
			continue
		}
		valid = append(valid, h)
	}
	return valid
}

// EnrichQuery 将识图结果拼入查询
// 失败占位符不参与拼接，全部失败时查询原样返回
func EnrichQuery(query string, hints []string) string {
	valid := ValidHints(hints)
	if len(valid) == 0 {
		return query
	}
	return query + ". Context: " + strings.Join(valid, ", ")
}
