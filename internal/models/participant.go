package models

import (
	"time"
)

// Participant 活动参与者表
// 计数字段（points / referral_count）是 ACTIVE 边的缓存，可随时由边重算校验。
// 参与者只做软停用（is_active=false），不做物理删除。
type Participant struct {
	ID                   uint       `gorm:"primarykey" json:"id"`                                                                 // 主键
	ExternalUserID       int64      `gorm:"not null;uniqueIndex:idx_participant_external,priority:1" json:"external_user_id"`    // 外部平台用户ID
	CommunityID          int64      `gorm:"not null;index;uniqueIndex:idx_participant_external,priority:2" json:"community_id"`  // 社区（频道）ID
	ReferralCode         string     `gorm:"type:varchar(32);not null;uniqueIndex" json:"referral_code"`                          // 邀请码，生成后不可变
	DisplayName          string     `gorm:"type:varchar(128);default:''" json:"display_name"`                                    // 昵称
	Username             string     `gorm:"type:varchar(64);default:''" json:"username"`                                         // 平台用户名
	Points               int        `gorm:"not null;default:0" json:"points"`                                                    // 当前积分
	TaskCompleted        bool       `gorm:"not null;default:false" json:"task_completed"`                                        // 一次性任务是否已完成
	ReferredByID         *uint      `gorm:"index" json:"referred_by_id,omitempty"`                                               // 邀请人，创建时写入一次
	ReferralCount        int        `gorm:"not null;default:0" json:"referral_count"`                                            // 当前有效邀请数
	IsActive             bool       `gorm:"not null;index" json:"is_active"`                                                     // 是否在社区内，写入方必须显式赋值（列默认会吞掉显式 false）
	FirstReferralPointAt *time.Time `json:"first_referral_point_at,omitempty"`                                                   // 首次获得邀请积分时间，仅用于排名平分
	JoinedAt             time.Time  `gorm:"not null;index" json:"joined_at"`                                                     // 首次加入时间
	CreatedAt            time.Time  `gorm:"index" json:"created_at"`                                                             // 创建时间
	UpdatedAt            time.Time  `gorm:"index" json:"updated_at"`                                                             // 更新时间

	ReferredBy *Participant `gorm:"foreignKey:ReferredByID" json:"referred_by,omitempty"` // 邀请人信息
}

// TableName 指定表名
func (Participant) TableName() string {
	return "participants"
}
