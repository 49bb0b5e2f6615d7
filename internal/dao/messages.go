package dao

import (
	"context"
	"time"

	"github.com/gogf/gf/v2/frame/g"
	gormModel "github.com/kemet-ai/kemet/internal/model/gorm"
	"gorm.io/gorm"
)

// MessageDAO 消息数据访问对象
type MessageDAO struct{}

var Message = &MessageDAO{}

// Create 创建消息并刷新所属会话的更新时间
// 会话列表按update_time倒序排列，追加消息必须让会话浮到最前
func (d *MessageDAO) Create(ctx context.Context, message *gormModel.Message) error {
	err := GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&gormModel.Conversation{}).
			Where("conv_id = ?", message.ConvID).
			Update("update_time", time.Now()).Error
	})
	if err != nil {
		g.Log().Errorf(ctx, "创建消息失败: %v", err)
		return err
	}
	return nil
}

// GetByMsgID 根据消息ID获取消息
func (d *MessageDAO) GetByMsgID(ctx context.Context, msgID string) (*gormModel.Message, error) {
	var message gormModel.Message
	if err := GetDB().WithContext(ctx).Where("msg_id = ?", msgID).First(&message).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		g.Log().Errorf(ctx, "查询消息失败: %v", err)
		return nil, err
	}
	return &message, nil
}

// ListByConvID 根据会话ID分页获取消息列表，时间升序
func (d *MessageDAO) ListByConvID(ctx context.Context, convID string, page, pageSize int) ([]*gormModel.Message, int64, error) {
	var messages []*gormModel.Message
	var total int64

	query := GetDB().WithContext(ctx).Model(&gormModel.Message{}).Where("conv_id = ?", convID)

	if err := query.Count(&total).Error; err != nil {
		g.Log().Errorf(ctx, "统计消息总数失败: %v", err)
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("id ASC").Find(&messages).Error; err != nil {
		g.Log().Errorf(ctx, "查询消息列表失败: %v", err)
		return nil, 0, err
	}

	return messages, total, nil
}

// ListRecent 获取会话最近limit条消息，按时间升序返回
// 同一秒内的消息用自增id保证稳定顺序
func (d *MessageDAO) ListRecent(ctx context.Context, convID string, limit int) ([]*gormModel.Message, error) {
	var messages []*gormModel.Message

	err := GetDB().WithContext(ctx).
		Where("conv_id = ?", convID).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		g.Log().Errorf(ctx, "查询最近消息失败: %v", err)
		return nil, err
	}

	// 倒序查出来的结果翻回时间升序
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// DeleteByConvID 删除会话的全部消息
func (d *MessageDAO) DeleteByConvID(ctx context.Context, convID string) error {
	if err := GetDB().WithContext(ctx).Where("conv_id = ?", convID).Delete(&gormModel.Message{}).Error; err != nil {
		g.Log().Errorf(ctx, "删除会话消息失败: %v", err)
		return err
	}
	return nil
}
