package kemet

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gogf/gf/v2/frame/g"
	v1 "github.com/kemet-ai/kemet/api/kemet/v1"
	"github.com/kemet-ai/kemet/core/errors"
)

// ConversationCreate 创建会话
func (c *ControllerV1) ConversationCreate(ctx context.Context, req *v1.ConversationCreateReq) (res *v1.ConversationCreateRes, err error) {
	conv, err := c.convStore.Create(ctx, req.Title)
	if err != nil {
		g.Log().Errorf(ctx, "创建会话失败: %v", err)
		return nil, err
	}

	return &v1.ConversationCreateRes{
		ConvID:     conv.ConvID,
		Title:      conv.Title,
		CreateTime: formatTime(conv.CreateTime),
	}, nil
}

// ConversationList 获取会话列表
func (c *ControllerV1) ConversationList(ctx context.Context, req *v1.ConversationListReq) (res *v1.ConversationListRes, err error) {
	items, total, err := c.convStore.List(ctx, req.Page, req.PageSize)
	if err != nil {
		g.Log().Errorf(ctx, "查询会话列表失败: %v", err)
		return nil, err
	}

	conversations := make([]*v1.ConversationItem, 0, len(items))
	for _, item := range items {
		// 预览取不到时留空，不影响列表本身
		preview, err := c.convStore.LatestMessage(ctx, item.ConvID)
		if err != nil {
			g.Log().Warningf(ctx, "加载会话 %s 最近消息失败: %v", item.ConvID, err)
		}
		conversations = append(conversations, &v1.ConversationItem{
			ConvID:      item.ConvID,
			Title:       item.Title,
			Status:      item.Status,
			LastMessage: preview,
			CreateTime:  formatTime(item.CreateTime),
			UpdateTime:  formatTime(item.UpdateTime),
		})
	}

	return &v1.ConversationListRes{
		Conversations: conversations,
		Total:         total,
		Page:          req.Page,
		PageSize:      req.PageSize,
	}, nil
}

// ConversationDetail 获取会话详情及消息
func (c *ControllerV1) ConversationDetail(ctx context.Context, req *v1.ConversationDetailReq) (res *v1.ConversationDetailRes, err error) {
	conv, err := c.convStore.Get(ctx, req.ConvID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, errors.Newf(errors.ErrConversationNotFound, "conversation %s not found", req.ConvID)
	}

	msgs, total, err := c.convStore.Messages(ctx, req.ConvID, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	messages := make([]*v1.MessageItem, 0, len(msgs))
	for _, m := range msgs {
		item := &v1.MessageItem{
			MsgID:      m.MsgID,
			Role:       m.Role,
			Content:    m.Content,
			CreateTime: formatTime(m.CreateTime),
		}
		if len(m.ImagePaths) > 0 {
			var paths []string
			if err := sonic.Unmarshal([]byte(m.ImagePaths), &paths); err == nil {
				item.ImagePaths = paths
			}
		}
		messages = append(messages, item)
	}

	return &v1.ConversationDetailRes{
		ConvID:       conv.ConvID,
		Title:        conv.Title,
		Status:       conv.Status,
		MessageCount: total,
		Messages:     messages,
		CreateTime:   formatTime(conv.CreateTime),
		UpdateTime:   formatTime(conv.UpdateTime),
	}, nil
}

// ConversationDelete 删除会话及其消息
func (c *ControllerV1) ConversationDelete(ctx context.Context, req *v1.ConversationDeleteReq) (res *v1.ConversationDeleteRes, err error) {
	deleted, err := c.convStore.Delete(ctx, req.ConvID)
	if err != nil {
		g.Log().Errorf(ctx, "删除会话失败: %v", err)
		return nil, err
	}

	return &v1.ConversationDeleteRes{
		Deleted: deleted,
	}, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
