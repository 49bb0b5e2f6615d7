package kemet

import (
	"github.com/kemet-ai/kemet/internal/logic/chat"
	"github.com/kemet-ai/kemet/internal/logic/conversation"
)

// ControllerV1 v1接口控制器
// 依赖在启动时显式注入，控制器本身不做任何初始化
type ControllerV1 struct {
	chatService *chat.Service
	retriever   chat.Retriever
	convStore   *conversation.Store
	version     string
}

// NewV1 创建v1控制器
func NewV1(chatService *chat.Service, retriever chat.Retriever, convStore *conversation.Store, version string) *ControllerV1 {
	return &ControllerV1{
		chatService: chatService,
		retriever:   retriever,
		convStore:   convStore,
		version:     version,
	}
}
