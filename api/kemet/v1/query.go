package v1

import (
	"mime/multipart"

	"github.com/gogf/gf/v2/frame/g"
)

// QueryReq 问答请求
type QueryReq struct {
	g.Meta         `path:"/v1/query" method:"post" mime:"multipart/form-data" tags:"query"`
	ConversationID string                  `json:"conversation_id" v:""`           // 会话ID（可选，为空新建会话）
	Query          string                  `json:"query" v:"required#query参数不能为空"` // 用户问题
	TopK           *int                    `json:"top_k" v:""`                     // 粗召回数量（可选，缺省用服务端默认值，显式0视为越界）
	Images         []*multipart.FileHeader `json:"images" type:"file"`             // 附带图片（可选）
}

// QueryRes 问答响应
type QueryRes struct {
	g.Meta            `mime:"application/json"`
	ConversationID    string        `json:"conversation_id"`
	Answer            string        `json:"answer"`
	RewrittenQuery    string        `json:"rewritten_query"`
	SearchQuery       string        `json:"search_query"` // 实际用于检索的查询
	ImageDescriptions []string      `json:"image_descriptions,omitempty"`
	TopK              int           `json:"top_k"` // 实际生效的粗召回数量
	Sources           []*SourceItem `json:"sources"`
}

// SourceItem 回答引用的来源
type SourceItem struct {
	Content string  `json:"content"`
	File    string  `json:"file"`
	Page    string  `json:"page"`
	Score   float64 `json:"score"`
}

// RetrieveReq 纯检索请求（不走生成）
type RetrieveReq struct {
	g.Meta `path:"/v1/retrieve" method:"post" tags:"query"`
	Query  string `json:"query" v:"required#query参数不能为空"` // 检索查询
	TopK   *int   `json:"top_k" v:""`                     // 粗召回数量（可选，缺省用服务端默认值）
}

// RetrieveRes 纯检索响应
type RetrieveRes struct {
	g.Meta    `mime:"application/json"`
	Documents []*SourceItem `json:"documents"`
	Context   string        `json:"context"`
}
