package dao

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"
	gormModel "github.com/kemet-ai/kemet/internal/model/gorm"
	"gorm.io/gorm"
)

// ConversationDAO 会话数据访问对象
type ConversationDAO struct{}

var Conversation = &ConversationDAO{}

// Create 创建会话
func (d *ConversationDAO) Create(ctx context.Context, conversation *gormModel.Conversation) error {
	if err := GetDB().WithContext(ctx).Create(conversation).Error; err != nil {
		g.Log().Errorf(ctx, "创建会话失败: %v", err)
		return err
	}
	return nil
}

// GetByConvID 根据会话ID获取会话，不存在时返回nil
func (d *ConversationDAO) GetByConvID(ctx context.Context, convID string) (*gormModel.Conversation, error) {
	var conversation gormModel.Conversation
	if err := GetDB().WithContext(ctx).Where("conv_id = ?", convID).First(&conversation).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		g.Log().Errorf(ctx, "查询会话失败: %v", err)
		return nil, err
	}
	return &conversation, nil
}

// List 分页获取会话列表
func (d *ConversationDAO) List(ctx context.Context, page, pageSize int) ([]*gormModel.Conversation, int64, error) {
	var conversations []*gormModel.Conversation
	var total int64

	query := GetDB().WithContext(ctx).Model(&gormModel.Conversation{})

	if err := query.Count(&total).Error; err != nil {
		g.Log().Errorf(ctx, "统计会话总数失败: %v", err)
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("update_time DESC").Find(&conversations).Error; err != nil {
		g.Log().Errorf(ctx, "查询会话列表失败: %v", err)
		return nil, 0, err
	}

	return conversations, total, nil
}

// Update 更新会话
func (d *ConversationDAO) Update(ctx context.Context, conversation *gormModel.Conversation) error {
	if err := GetDB().WithContext(ctx).Save(conversation).Error; err != nil {
		g.Log().Errorf(ctx, "更新会话失败: %v", err)
		return err
	}
	return nil
}

// DeleteWithMessages 硬删除会话及其全部消息
// 返回是否真的删到了会话记录
func (d *ConversationDAO) DeleteWithMessages(ctx context.Context, convID string) (bool, error) {
	deleted := false
	err := GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conv_id = ?", convID).Delete(&gormModel.Message{}).Error; err != nil {
			return err
		}
		result := tx.Where("conv_id = ?", convID).Delete(&gormModel.Conversation{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		g.Log().Errorf(ctx, "删除会话失败: %v", err)
		return false, err
	}
	return deleted, nil
}
