package models

import (
	"time"
)

// Community 社区（频道）登记表
type Community struct {
	ID        uint      `gorm:"primarykey" json:"id"`                             // 主键
	ChatID    int64     `gorm:"not null;uniqueIndex" json:"chat_id"`              // 外部平台频道ID
	Title     string    `gorm:"type:varchar(255);default:''" json:"title"`        // 频道名称
	IsEnabled bool      `gorm:"not null" json:"is_enabled"`                       // 活动是否开启，写入方必须显式赋值
	CreatedAt time.Time `gorm:"index" json:"created_at"`                          // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                          // 更新时间
}

// TableName 指定表名
func (Community) TableName() string {
	return "communities"
}
