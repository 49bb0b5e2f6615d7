package v1

import (
	"github.com/gogf/gf/v2/frame/g"
)

// ConversationCreateReq 创建会话请求
type ConversationCreateReq struct {
	g.Meta `path:"/v1/conversations" method:"post" tags:"conversation"`
	Title  string `json:"title" v:""` // 会话标题（可选）
}

// ConversationCreateRes 创建会话响应
type ConversationCreateRes struct {
	g.Meta     `mime:"application/json"`
	ConvID     string `json:"conv_id"`
	Title      string `json:"title"`
	CreateTime string `json:"create_time"`
}

// ConversationListReq 会话列表请求
type ConversationListReq struct {
	g.Meta   `path:"/v1/conversations" method:"get" tags:"conversation"`
	Page     int `json:"page" d:"1"`       // 页码，默认1
	PageSize int `json:"page_size" d:"20"` // 每页数量，默认20
}

// ConversationListRes 会话列表响应
type ConversationListRes struct {
	g.Meta        `mime:"application/json"`
	Conversations []*ConversationItem `json:"conversations"`
	Total         int64               `json:"total"`
	Page          int                 `json:"page"`
	PageSize      int                 `json:"page_size"`
}

// ConversationItem 会话列表项
type ConversationItem struct {
	ConvID      string `json:"conv_id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	LastMessage string `json:"last_message,omitempty"` // 最近一条消息内容预览
	CreateTime  string `json:"create_time"`
	UpdateTime  string `json:"update_time"`
}

// ConversationDetailReq 会话详情请求
type ConversationDetailReq struct {
	g.Meta   `path:"/v1/conversations/:conv_id" method:"get" tags:"conversation"`
	ConvID   string `json:"conv_id" v:"required"`
	Page     int    `json:"page" d:"1"`       // 消息页码
	PageSize int    `json:"page_size" d:"50"` // 每页消息数
}

// ConversationDetailRes 会话详情响应
type ConversationDetailRes struct {
	g.Meta       `mime:"application/json"`
	ConvID       string         `json:"conv_id"`
	Title        string         `json:"title"`
	Status       string         `json:"status"`
	MessageCount int64          `json:"message_count"`
	Messages     []*MessageItem `json:"messages"`
	CreateTime   string         `json:"create_time"`
	UpdateTime   string         `json:"update_time"`
}

// MessageItem 消息项
type MessageItem struct {
	MsgID      string   `json:"msg_id"`                // 消息ID
	Role       string   `json:"role"`                  // 角色：user/assistant
	Content    string   `json:"content"`               // 文本内容
	ImagePaths []string `json:"image_paths,omitempty"` // 附带图片的存储路径
	CreateTime string   `json:"create_time"`           // 创建时间
}

// ConversationDeleteReq 删除会话请求
type ConversationDeleteReq struct {
	g.Meta `path:"/v1/conversations/:conv_id" method:"delete" tags:"conversation"`
	ConvID string `json:"conv_id" v:"required"`
}

// ConversationDeleteRes 删除会话响应
type ConversationDeleteRes struct {
	g.Meta  `mime:"application/json"`
	Deleted bool `json:"deleted"` // 会话是否存在并被删除
}
