package gorm

import (
	"time"
)

// Message 消息表
type Message struct {
	ID         uint64     `gorm:"primaryKey;column:id;type:bigint;autoIncrement"`
	MsgID      string     `gorm:"column:msg_id;type:varchar(64);uniqueIndex;not null"` // 消息ID
	ConvID     string     `gorm:"column:conv_id;type:varchar(64);not null;index"`      // 会话ID
	Role       string     `gorm:"column:role;type:varchar(20);not null"`               // 角色：user / assistant
	Content    string     `gorm:"column:content;type:text"`                            // 消息文本
	ImagePaths JSON       `gorm:"column:image_paths;type:json"`                        // 随消息上传的图片存储路径
	Metadata   JSON       `gorm:"column:metadata;type:json"`                           // 自定义扩展
	CreateTime *time.Time `gorm:"column:create_time;autoCreateTime"`                   // 创建时间
}

// TableName 设置表名
func (Message) TableName() string {
	return "messages"
}
