package conversation

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/google/uuid"
	"github.com/kemet-ai/kemet/core/errors"
	"github.com/kemet-ai/kemet/internal/dao"
	gormModel "github.com/kemet-ai/kemet/internal/model/gorm"
)

// Store 会话存储
// 会话ID对调用方是不透明字符串，消息按写入顺序保存
type Store struct{}

// NewStore 创建会话存储
func NewStore() *Store {
	return &Store{}
}

// Create 创建新会话，返回生成的会话ID
func (s *Store) Create(ctx context.Context, title string) (*gormModel.Conversation, error) {
	conv := &gormModel.Conversation{
		Title:  title,
		Status: "active",
	}
	if err := dao.Conversation.Create(ctx, conv); err != nil {
		return nil, errors.Newf(errors.ErrDatabaseInsert, "failed to create conversation: %v", err)
	}
	g.Log().Infof(ctx, "conversation created: %s", conv.ConvID)
	return conv, nil
}

// Get 获取会话，不存在时返回nil
func (s *Store) Get(ctx context.Context, convID string) (*gormModel.Conversation, error) {
	conv, err := dao.Conversation.GetByConvID(ctx, convID)
	if err != nil {
		return nil, errors.Newf(errors.ErrDatabaseQuery, "failed to get conversation: %v", err)
	}
	return conv, nil
}

// List 分页获取会话列表
func (s *Store) List(ctx context.Context, page, pageSize int) ([]*gormModel.Conversation, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	convs, total, err := dao.Conversation.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, errors.Newf(errors.ErrDatabaseQuery, "failed to list conversations: %v", err)
	}
	return convs, total, nil
}

// LatestMessage 获取会话最近一条消息的内容，没有消息时返回空串
func (s *Store) LatestMessage(ctx context.Context, convID string) (string, error) {
	records, err := dao.Message.ListRecent(ctx, convID, 1)
	if err != nil {
		return "", errors.Newf(errors.ErrDatabaseQuery, "failed to load latest message: %v", err)
	}
	if len(records) == 0 {
		return "", nil
	}
	return records[0].Content, nil
}

// Append 向会话追加一条消息
// 会话不存在时记告警后静默丢弃，不报错：调用方持陈旧ID重放时
// 不应该让整个问答流程失败
func (s *Store) Append(ctx context.Context, convID, role, content string, imagePaths []string) error {
	conv, err := dao.Conversation.GetByConvID(ctx, convID)
	if err != nil {
		return errors.Newf(errors.ErrDatabaseQuery, "failed to check conversation: %v", err)
	}
	if conv == nil {
		g.Log().Warningf(ctx, "append to missing conversation %s, message dropped", convID)
		return nil
	}

	msg := &gormModel.Message{
		MsgID:   uuid.New().String(),
		ConvID:  convID,
		Role:    role,
		Content: content,
	}
	if len(imagePaths) > 0 {
		raw, err := sonic.Marshal(imagePaths)
		if err != nil {
			return errors.Newf(errors.ErrInvalidParameter, "failed to marshal image paths: %v", err)
		}
		msg.ImagePaths = gormModel.JSON(raw)
	}

	if err := dao.Message.Create(ctx, msg); err != nil {
		return errors.Newf(errors.ErrDatabaseInsert, "failed to append message: %v", err)
	}
	return nil
}

// History 获取会话最近limit条消息，时间升序
func (s *Store) History(ctx context.Context, convID string, limit int) ([]*schema.Message, error) {
	if limit <= 0 {
		return []*schema.Message{}, nil
	}

	records, err := dao.Message.ListRecent(ctx, convID, limit)
	if err != nil {
		return nil, errors.Newf(errors.ErrDatabaseQuery, "failed to load history: %v", err)
	}

	messages := make([]*schema.Message, 0, len(records))
	for _, rec := range records {
		messages = append(messages, &schema.Message{
			Role:    toRoleType(rec.Role),
			Content: rec.Content,
		})
	}
	return messages, nil
}

// Messages 分页获取会话消息原始记录
func (s *Store) Messages(ctx context.Context, convID string, page, pageSize int) ([]*gormModel.Message, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	msgs, total, err := dao.Message.ListByConvID(ctx, convID, page, pageSize)
	if err != nil {
		return nil, 0, errors.Newf(errors.ErrDatabaseQuery, "failed to list messages: %v", err)
	}
	return msgs, total, nil
}

// Delete 硬删除会话及其全部消息，返回会话是否存在过
func (s *Store) Delete(ctx context.Context, convID string) (bool, error) {
	deleted, err := dao.Conversation.DeleteWithMessages(ctx, convID)
	if err != nil {
		return false, errors.Newf(errors.ErrDatabaseDelete, "failed to delete conversation: %v", err)
	}
	if deleted {
		g.Log().Infof(ctx, "conversation deleted: %s", convID)
	}
	return deleted, nil
}

func toRoleType(role string) schema.RoleType {
	switch role {
	case "assistant":
		return schema.Assistant
	case "system":
		return schema.System
	default:
		return schema.User
	}
}
